package api

import (
	"errors"   // Error inspection
	"fmt"      // Message formatting
	"net/http" // HTTP status codes
	"reflect"  // Kind checks for messages
	"strings"  // String manipulation

	"calculator_app/internal/calc"  // Calculation errors
	"calculator_app/internal/utils" // Password rules

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Validation errors
	"github.com/sirupsen/logrus"             // Logging library
)

// Sentinel errors shared by the handlers
var (
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("calculation not found")
)

// FieldError describes one failed field in a request body
type FieldError struct {
	Field   string `json:"field"`   // JSON name of the field
	Kind    string `json:"kind"`    // Validation rule that failed
	Message string `json:"message"` // Human readable reason
}

// respondError writes the standard error body
func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// respondInternal logs err with fields and writes a 500
func respondInternal(c *gin.Context, msg string, err error, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["error"] = err.Error()
	logrus.WithFields(fields).Error(msg)
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, msg)
}

// respondBindError maps a failed ShouldBind* call to 422
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Kind: fe.Tag(), Message: fieldMessage(fe)})
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": fields})
		return
	}
	var calcErr *calc.Error
	if errors.As(err, &calcErr) {
		respondError(c, http.StatusUnprocessableEntity, calcErr.Message)
		return
	}
	respondError(c, http.StatusUnprocessableEntity, "Invalid request body")
}

// respondCalcError maps calculation errors to 422 and anything else to 500
func respondCalcError(c *gin.Context, err error) bool {
	var calcErr *calc.Error
	if errors.As(err, &calcErr) {
		respondError(c, http.StatusUnprocessableEntity, calcErr.Message)
		return true
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isList {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return "Password inputs do not match"
	case "strongpassword":
		if s, ok := fe.Value().(string); ok {
			return utils.PasswordProblem(s)
		}
	case "calctype":
		names := make([]string, 0)
		for _, t := range calc.Types() {
			names = append(names, string(t))
		}
		return "must be one of " + strings.Join(names, ", ")
	}
	return "is invalid"
}

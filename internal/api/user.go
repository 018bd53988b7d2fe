package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"calculator_app/internal/domain"     // Importing domain models
	"calculator_app/internal/middleware" // Current user lookup
	"calculator_app/internal/utils"      // Password hashing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// UserUpdateRequest replaces the editable profile fields
type UserUpdateRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=50"`
	LastName  string `json:"last_name" binding:"required,min=1,max=50"`
	Email     string `json:"email" binding:"required,email,max=120"`
	Username  string `json:"username" binding:"required,min=1,max=50"`
}

// PasswordUpdateRequest changes the password of the current user
type PasswordUpdateRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,min=1,max=128"`
	Password        string `json:"password" binding:"required,max=128,strongpassword"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// GetMeHandler returns the authenticated user
func GetMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateMeHandler updates the profile of the authenticated user
func UpdateMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var req UserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		username := strings.TrimSpace(req.Username)
		email := strings.ToLower(strings.TrimSpace(req.Email))
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var count int64
			// Another account already holding the new name or email is a conflict
			if err := tx.Model(&domain.User{}).
				Where("(username = ? OR email = ?) AND id <> ?", username, email, user.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrUserExists
			}
			return tx.Model(user).Updates(map[string]any{
				"username":   username,
				"email":      email,
				"first_name": strings.TrimSpace(req.FirstName),
				"last_name":  strings.TrimSpace(req.LastName),
			}).Error
		})
		if errors.Is(err, ErrUserExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusBadRequest, "Username or email already exists")
			return
		} else if err != nil {
			respondInternal(c, "Failed to update user", err, logrus.Fields{"user_id": user.ID})
			return
		}
		user.Username = username
		user.Email = email
		user.FirstName = strings.TrimSpace(req.FirstName)
		user.LastName = strings.TrimSpace(req.LastName)
		c.JSON(http.StatusOK, user)
	}
}

// ChangePasswordHandler replaces the password after checking the current one
func ChangePasswordHandler(db *gorm.DB, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var req PasswordUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.CurrentPassword == req.Password {
			respondError(c, http.StatusUnprocessableEntity, "New password cannot match current password")
			return
		}
		if !utils.CheckPassword(user.Password, req.CurrentPassword) {
			respondError(c, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		hash, err := utils.HashPassword(req.Password, bcryptCost)
		if err != nil {
			respondInternal(c, "Failed to hash password", err, nil)
			return
		}
		if err := db.WithContext(c.Request.Context()).Model(user).Update("password", hash).Error; err != nil {
			respondInternal(c, "Failed to update password", err, logrus.Fields{"user_id": user.ID})
			return
		}
		logrus.WithField("user_id", user.ID).Info("Password changed")
		c.Status(http.StatusNoContent)
	}
}

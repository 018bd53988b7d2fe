package api

import (
	"reflect" // Struct tag lookup
	"strings" // String manipulation

	"calculator_app/internal/calc"  // Operation names
	"calculator_app/internal/utils" // Password rules

	"github.com/gin-gonic/gin/binding"       // Gin's validator engine
	"github.com/go-playground/validator/v10" // Validation library
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Report JSON names in field errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return utils.PasswordProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("calctype", func(fl validator.FieldLevel) bool {
		_, err := calc.ParseType(fl.Field().String())
		return err == nil
	})
}

package middleware

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"calculator_app/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // User IDs
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ActiveUserMiddleware loads the authenticated user on each request and refuses inactive accounts
func ActiveUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(UserIDKey) // Get userID from context
		id, isUUID := userID.(uuid.UUID)
		// Check if userID exists in context
		if !ok || !isUUID {
			unauthorized(c, "Could not validate credentials")
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Token outlived its account
				unauthorized(c, "Could not validate credentials")
				return
			}
			logrus.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Error("Failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		// Check if the account is still active
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Inactive user"})
			return
		}
		c.Set(UserKey, &user) // Store the user for handlers
		c.Next()
	}
}

// CurrentUser returns the user stored by ActiveUserMiddleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

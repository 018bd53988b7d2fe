package api

import (
	"context"  // Request contexts
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Timestamps

	"calculator_app/internal/domain"     // Importing domain models
	"calculator_app/internal/middleware" // Context keys
	"calculator_app/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// RegisterRequest is the registration form
type RegisterRequest struct {
	FirstName       string `json:"first_name" binding:"required,min=1,max=50"`
	LastName        string `json:"last_name" binding:"required,min=1,max=50"`
	Email           string `json:"email" binding:"required,email,max=120"`
	Username        string `json:"username" binding:"required,min=1,max=50"`
	Password        string `json:"password" binding:"required,max=128,strongpassword"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

// LoginRequest accepts a username or an email in Username
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required,min=1,max=120"` // Long enough for an email
	Password string `json:"password" form:"password" binding:"required,min=1,max=128"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthToken is returned by login and refresh
type AuthToken struct {
	AccessToken  string       `json:"access_token"`  // JWT access token
	RefreshToken string       `json:"refresh_token"` // JWT refresh token
	TokenType    string       `json:"token_type"`    // Always "bearer"
	ExpiresAt    time.Time    `json:"expires_at"`    // Access token expiry
	User         *domain.User `json:"user"`          // Authenticated user
}

// RegisterHandler creates a user account
func RegisterHandler(db *gorm.DB, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		username := strings.TrimSpace(req.Username)
		email := strings.ToLower(strings.TrimSpace(req.Email))
		// Reject duplicates up front for a clear message
		var count int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).
			Where("username = ? OR email = ?", username, email).
			Count(&count).Error; err != nil {
			respondInternal(c, "Failed to register user", err, nil)
			return
		}
		if count > 0 {
			respondError(c, http.StatusBadRequest, "Username or email already exists")
			return
		}
		// Hash the password and create the user
		hash, err := utils.HashPassword(req.Password, bcryptCost)
		if err != nil {
			respondInternal(c, "Failed to hash password", err, nil)
			return
		}
		user := domain.User{
			Username:  username,
			Email:     email,
			Password:  hash,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			IsActive:  true,
		}
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			// Lost a race with a concurrent registration
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, http.StatusBadRequest, "Username or email already exists")
				return
			}
			respondInternal(c, "Failed to register user", err, nil)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("User registered")
		c.JSON(http.StatusCreated, &user)
	}
}

// authenticate looks a user up by username or email and checks the password
func authenticate(ctx context.Context, db *gorm.DB, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	var user domain.User
	err := db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// issueTokens builds the login response for a user
func issueTokens(tokens *utils.TokenIssuer, user *domain.User) (*AuthToken, error) {
	access, expiresAt, err := tokens.GenerateJWT(user.ID, utils.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := tokens.GenerateJWT(user.ID, utils.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &AuthToken{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func invalidCredentials(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	respondError(c, http.StatusUnauthorized, "Invalid username or password")
}

// LoginHandler authenticates a JSON login and returns an access/refresh token pair
func LoginHandler(db *gorm.DB, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := authenticate(c.Request.Context(), db, req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			invalidCredentials(c)
			return
		} else if err != nil {
			respondInternal(c, "Login failed", err, logrus.Fields{"username": req.Username})
			return
		}
		resp, err := issueTokens(tokens, user)
		if err != nil {
			respondInternal(c, "Failed to generate token", err, logrus.Fields{"user_id": user.ID})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// TokenHandler is the form-encoded OAuth2 password flow used by API tooling
func TokenHandler(db *gorm.DB, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBind(&req); err != nil {
			respondBindError(c, err)
			return
		}
		user, err := authenticate(c.Request.Context(), db, req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			invalidCredentials(c)
			return
		} else if err != nil {
			respondInternal(c, "Login failed", err, logrus.Fields{"username": req.Username})
			return
		}
		access, _, err := tokens.GenerateJWT(user.ID, utils.AccessToken)
		if err != nil {
			respondInternal(c, "Failed to generate token", err, logrus.Fields{"user_id": user.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
	}
}

// RefreshHandler trades a refresh token for a new token pair; the old refresh token is revoked
func RefreshHandler(db *gorm.DB, rdb *redis.Client, tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		ctx := c.Request.Context()
		claims, err := tokens.ParseJWT(req.RefreshToken, utils.RefreshToken)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		if revoked, _ := utils.IsTokenRevoked(ctx, rdb, claims.ID); revoked {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		var user domain.User
		if err := db.WithContext(ctx).First(&user, "id = ?", claims.UserID).Error; err != nil || !user.IsActive {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		resp, err := issueTokens(tokens, &user)
		if err != nil {
			respondInternal(c, "Failed to generate token", err, logrus.Fields{"user_id": user.ID})
			return
		}
		if err := utils.RevokeToken(ctx, rdb, claims.ID, claims.ExpiresAt.Time); err != nil {
			logrus.WithError(err).Warn("Failed to revoke refresh token")
		}
		c.JSON(http.StatusOK, resp)
	}
}

// LogoutHandler revokes the presented access token
func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(middleware.ClaimsKey)
		claims, ok := v.(*utils.Claims)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if err := utils.RevokeToken(c.Request.Context(), rdb, claims.ID, claims.ExpiresAt.Time); err != nil {
			respondInternal(c, "Logout failed", err, logrus.Fields{"user_id": claims.UserID})
			return
		}
		logrus.WithField("user_id", claims.UserID).Info("User logged out")
		c.Status(http.StatusNoContent)
	}
}

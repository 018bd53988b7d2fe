package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"calculator_app/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Context keys set by the auth middlewares
const (
	UserIDKey = "userID"      // uuid.UUID of the authenticated user
	ClaimsKey = "tokenClaims" // *utils.Claims of the presented access token
	UserKey   = "user"        // *domain.User loaded by ActiveUserMiddleware
)

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// JWTAuthMiddleware validates access tokens and extracts user information
func JWTAuthMiddleware(tokens *utils.TokenIssuer, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Missing or invalid Authorization header")
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")       // Extract the token string and parse it
		claims, err := tokens.ParseJWT(tokenStr, utils.AccessToken) // Parse the JWT token
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}
		revoked, err := utils.IsTokenRevoked(c.Request.Context(), rdb, claims.ID)
		if err != nil {
			// Redis trouble should not lock everyone out
			logrus.WithError(err).Warn("Token denylist lookup failed")
		}
		if revoked {
			unauthorized(c, "Token has been revoked")
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(ClaimsKey, claims)        // Store claims for logout
		c.Next()                        // Proceed to the next handler
	}
}

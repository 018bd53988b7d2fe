package utils

import (
	"errors" // Sentinel errors
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Token identifiers
)

// Token types carried in the token_type claim
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented as an access token or the reverse
var ErrWrongTokenType = errors.New("wrong token type")

// JWT Claims
type Claims struct {
	UserID               uuid.UUID `json:"user_id"`    // Custom claim for user ID
	TokenType            string    `json:"token_type"` // access or refresh
	jwt.RegisteredClaims           // Standard JWT claims
}

// TokenIssuer signs and verifies access and refresh tokens
type TokenIssuer struct {
	AccessSecret  []byte        // Signing key for access tokens
	RefreshSecret []byte        // Signing key for refresh tokens
	AccessTTL     time.Duration // Access token lifetime
	RefreshTTL    time.Duration // Refresh token lifetime
}

// NewTokenIssuer builds a TokenIssuer from string secrets
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// GenerateJWT creates a signed token of the given type for a user ID and
// returns it along with its expiry
func (ti *TokenIssuer) GenerateJWT(userID uuid.UUID, tokenType string) (string, time.Time, error) {
	secret, ttl, err := ti.keyFor(tokenType)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	// Set token claims
	claims := Claims{
		UserID:    userID,    // Custom claim for user ID
		TokenType: tokenType, // access or refresh
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),              // Unique token ID, used for revocation
			ExpiresAt: jwt.NewNumericDate(expiresAt), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),       // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString(secret)                  // Sign the token with the secret
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT parses and validates a token string of the expected type
func (ti *TokenIssuer) ParseJWT(tokenStr, tokenType string) (*Claims, error) {
	secret, _, err := ti.keyFor(tokenType)
	if err != nil {
		return nil, err
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return secret, nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == uuid.Nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (ti *TokenIssuer) keyFor(tokenType string) ([]byte, time.Duration, error) {
	switch tokenType {
	case AccessToken:
		return ti.AccessSecret, ti.AccessTTL, nil
	case RefreshToken:
		return ti.RefreshSecret, ti.RefreshTTL, nil
	}
	return nil, 0, ErrWrongTokenType
}

package util

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Access tokens authenticate API calls, reset tokens are
// only valid for the password reset confirmation endpoint.
const (
	PurposeAccess = "access"
	PurposeReset  = "reset"
)

// Claims is the JWT payload.
type Claims struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateToken signs an access token bound to a session.
func GenerateToken(secret string, userID uint, sessionID string, ttl time.Duration) (string, error) {
	return sign(secret, &Claims{
		UserID:    userID,
		SessionID: sessionID,
		Purpose:   PurposeAccess,
	}, ttl)
}

// GenerateResetToken signs a short-lived token for password reset.
func GenerateResetToken(secret string, userID uint, ttl time.Duration) (string, error) {
	return sign(secret, &Claims{
		UserID:  userID,
		Purpose: PurposeReset,
	}, ttl)
}

func sign(secret string, claims *Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken parses and validates a JWT, returning its Claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

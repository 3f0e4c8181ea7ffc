package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims are the claims carried in a session token. Role is the user's
// platform_role at login time so middleware can gate admin and helpdesk
// routes without a database round trip.
type AppClaims struct {
	UserID int64  `json:"userID"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed HS256 token for the user, valid for 24 hours.
func GenerateJWT(userID int64, role, secret string) (string, error) {
	claims := &AppClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT parses the token, verifies the signature and expiry, and
// returns the claims.
func ValidateJWT(tokenString, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

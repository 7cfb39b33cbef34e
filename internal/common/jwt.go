package common

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity and entitlements carried by a verified token. It is never persisted.
type Principal struct {
	UserID        string   `json:"userId"`
	Roles         []string `json:"roles"`
	Plan          string   `json:"plan"`
	Addons        []string `json:"addons"`
	Name          string   `json:"name"`
	VerifiedEmail bool     `json:"verifiedEmail"`
}

// Claims matches the token layout issued by the auth service: {"user": {...}, "exp": ...}.
type Claims struct {
	User Principal `json:"user"`
	jwt.RegisteredClaims
}

var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("invalid token")
)

func GenerateToken(secret []byte, principal Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		User: principal,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  principal.UserID,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidToken checks signature and expiry and returns the decoded claims.
func ValidToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}

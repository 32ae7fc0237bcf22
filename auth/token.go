// Package auth validates the bearer credentials presented at the
// WebSocket handshake and on the registration API. Tokens are issued
// elsewhere; this package only proves them.
package auth

import (
	goerrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/domain"
	"chat-relay/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
// Claim names match the external issuer's payload.
type CustomClaims struct {
	UserID      string `json:"id"`
	DisplayName string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is the trusted result of a successful validation. Once bound
// to a connection it is the only sender identity that connection can use.
type Identity struct {
	ID          string
	DisplayName string
}

// TokenValidator checks externally issued HS256 tokens against a shared
// secret loaded from configuration.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses and validates the signature and expiration of a JWT
// string, then extracts the identity claims. Failures map onto the
// terminal handshake errors.
func (v *TokenValidator) Validate(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, errors.ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.ErrTokenExpired
		}
		return Identity{}, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.ErrInvalidToken
	}
	if claims.UserID == "" {
		return Identity{}, errors.ErrMissingIdentity
	}
	// The id charset excludes the room-key separator: an id that fails
	// this check could collide distinct pairs onto one room key.
	if !domain.ValidID(claims.UserID) {
		return Identity{}, errors.ErrInvalidIdentity
	}

	return Identity{ID: claims.UserID, DisplayName: claims.DisplayName}, nil
}

// GenerateToken creates a signed JWT for a specific user. The server
// never calls this at runtime; it exists for the tokengen tool and tests,
// standing in for the external issuer.
func GenerateToken(secret, userID, displayName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-relay",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

package model

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of a bearer token: the user id plus the
// registered expiry and issue times.
type TokenClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

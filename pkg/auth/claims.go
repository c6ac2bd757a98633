package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the JWT presented by storefront buyers. The subject is the buyer id.
type AccessTokenClaims struct {
	BuyerID string `json:"buyer_id"`
	jwt.RegisteredClaims
}

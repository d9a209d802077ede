package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for API access tokens.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	FoundationID string   `json:"foundation_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies who performs a privileged operation.
type Actor struct {
	UserID    string
	Role      UserRole
	IP        string
	UserAgent string
}

// ActorFromClaims builds an Actor from verified token claims.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

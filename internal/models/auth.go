package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies who performs a workflow operation and in which tenant.
// Every content operation receives it explicitly.
type Actor struct {
	TenantID string
	UserID   string
	Role     UserRole
}

// ActorFromClaims converts validated token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{TenantID: claims.TenantID, UserID: claims.UserID, Role: claims.Role}
}

// Valid reports whether the actor carries both a tenant and a user.
func (a Actor) Valid() bool {
	return a.TenantID != "" && a.UserID != ""
}

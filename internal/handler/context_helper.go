package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/homepage-content-api/internal/middleware"
	"github.com/noah-isme/homepage-content-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext returns the tenant and user resolved by the JWT
// middleware. Services reject the zero Actor as unauthorized.
func actorFromContext(c *gin.Context) models.Actor {
	return models.ActorFromClaims(claimsFromContext(c))
}

package testutil

import (
	"strings"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/middleware"
)

// MockValidatedClaims builds the claims EnsureValidToken would store for a token
func MockValidatedClaims(subject, role string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: subject},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
			Role:  role,
		},
	}
}

// MockToken returns a middleware standing in for EnsureValidToken
func MockToken(subject, role, accessToken string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, subject)
		c.Set(middleware.ContextAccessToken, accessToken)
		c.Set(middleware.ContextClaims, MockValidatedClaims(subject, role, scopes))
		c.Next()
	}
}

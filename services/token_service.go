package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/models"
)

// Scopes granted to local tokens, by role
const (
	ScopeReadOrders   = "read:orders"
	ScopeWriteOrders  = "write:orders"
	ScopeImportOrders = "import:orders"
	ScopeManageUsers  = "manage:users"
)

// ErrTokenIssuerDisabled is returned when tokens come from Auth0 instead
var ErrTokenIssuerDisabled = errors.New("local token issuing is disabled")

// TokenClaims are the claims of a locally issued access token
type TokenClaims struct {
	Scope string `json:"scope"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 access tokens accepted by middleware.EnsureValidToken
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenService creates a token issuer from the local JWT settings
func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.TokenTTL,
		now:      time.Now,
	}
}

// Issue signs an access token for user. The subject is the user ID.
func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrTokenIssuerDisabled
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := TokenClaims{
		Scope: ScopesForRole(user.Role),
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a locally issued token and returns its claims
func (s *TokenService) Parse(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// ScopesForRole returns the space-separated scope string for a role
func ScopesForRole(role string) string {
	switch role {
	case models.RoleSuperAdmin:
		return ScopeReadOrders + " " + ScopeWriteOrders + " " + ScopeImportOrders + " " + ScopeManageUsers
	case models.RoleAdmin:
		return ScopeReadOrders + " " + ScopeWriteOrders + " " + ScopeImportOrders
	default:
		return ScopeReadOrders + " " + ScopeWriteOrders
	}
}

package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes"` // "admin": true или "latency.read": true
	jwt.RegisteredClaims
}

// Scopes, которые проверяет API.
const (
	ScopeLatencyRead = "latency.read"
	ScopeSamplesPush = "samples.write"
	ScopeAdmin       = "admin"
)

// TokenIssuer: iss токенов, которые выпускает консоль.
const TokenIssuer = "netpulse-console"

// IsKnownScope: scope, который понимает хотя бы один из периметров.
func IsKnownScope(scope string) bool {
	switch scope {
	case ScopeLatencyRead, ScopeSamplesPush, ScopeAdmin:
		return true
	}
	return false
}

// HasScope: admin покрывает любой scope.
func (c *CustomClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return c.Scopes[ScopeAdmin] || c.Scopes[scope]
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}

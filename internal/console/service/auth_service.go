package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/netpulse/internal/domain"
)

// CredentialVerifier: проверка логина/пароля оператора (auth.BasicVerifier).
type CredentialVerifier interface {
	Verify(username, password string) error
}

type AuthService struct {
	credentials CredentialVerifier
	privateKey  *rsa.PrivateKey
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthService(credentials CredentialVerifier, privateKey *rsa.PrivateKey, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		credentials: credentials,
		privateKey:  privateKey,
		ttl:         ttl,
		now:         time.Now,
	}
}

func (s *AuthService) GenerateToken(_ context.Context, username, password string) (*domain.TokenResponse, error) {
	// 1. Аутентификация (bcrypt-хэш из конфига)
	if s.credentials == nil || s.privateKey == nil {
		return nil, errors.New("token issuing is not configured")
	}
	if err := s.credentials.Verify(username, password); err != nil {
		return nil, errors.New("invalid credentials")
	}

	// 2. Формирование Claims: оператор консоли, admin
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &domain.CustomClaims{
		UserID: username,
		Scopes: map[string]bool{domain.ScopeAdmin: true},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    domain.TokenIssuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	// 3. Подпись токена ЗАКРЫТЫМ КЛЮЧОМ (RS256)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

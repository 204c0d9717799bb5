package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/netpulse/internal/domain"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenScopes  = errors.New("token carries no netpulse scopes")
)

// TokenVerifier проверяет токены, выпущенные консолью: RS256, наш issuer, обязательный exp.
// Из claims выбрасываются неизвестные scopes; токен без единого известного scope не принимается.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

type VerifierOption func(*verifierOptions)

type verifierOptions struct {
	issuer string
	leeway time.Duration
}

// WithIssuer меняет ожидаемый iss (по умолчанию domain.TokenIssuer).
func WithIssuer(iss string) VerifierOption {
	return func(o *verifierOptions) { o.issuer = iss }
}

// WithLeeway допускает расхождение часов между консолью и сервисом.
func WithLeeway(d time.Duration) VerifierOption {
	return func(o *verifierOptions) { o.leeway = d }
}

func NewTokenVerifier(pub *rsa.PublicKey, opts ...VerifierOption) *TokenVerifier {
	o := verifierOptions{issuer: domain.TokenIssuer}
	for _, opt := range opts {
		opt(&o)
	}
	return &TokenVerifier{
		publicKey: pub,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(o.issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(o.leeway),
		),
	}
}

// VerifyToken принимает как голый токен, так и значение заголовка "Bearer <token>".
func (v *TokenVerifier) VerifyToken(raw string) (*domain.CustomClaims, error) {
	tokenStr := strings.TrimSpace(raw)
	if len(tokenStr) > 7 && strings.EqualFold(tokenStr[:7], "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &domain.CustomClaims{}
	if _, err := v.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no user", ErrTokenInvalid)
	}

	known := make(map[string]bool, len(claims.Scopes))
	for scope, granted := range claims.Scopes {
		if granted && domain.IsKnownScope(scope) {
			known[scope] = true
		}
	}
	if len(known) == 0 {
		return nil, ErrTokenScopes
	}
	claims.Scopes = known
	return claims, nil
}

// ParseRSAPublicKey разбирает PEM открытого ключа для проверки токенов.
func ParseRSAPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	if len(pemData) == 0 {
		return nil, errors.New("auth: public key is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	return key, nil
}

// ParseRSAPrivateKey нужен только консоли, которая подписывает токены.
func ParseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	if len(pemData) == 0 {
		return nil, errors.New("auth: private key is empty")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	return key, nil
}

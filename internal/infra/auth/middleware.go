package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator: интерфейс, который должны реализовать и шлюз, и консоль
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// PasswordVerifier: проверка Basic-авторизации.
type PasswordVerifier interface {
	Verify(username, password string) error
}

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext возвращает claims, положенные middleware. Для Basic-авторизации
// это синтетические claims с admin scope.
func ClaimsFromContext(ctx context.Context) (*domain.CustomClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*domain.CustomClaims)
	return c, ok
}

// WithClaims кладет claims в контекст (для транспортов без HTTP).
func WithClaims(ctx context.Context, claims *domain.CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// NewMiddleware принимает Bearer (RS256), если задан tokens, и Basic, если задан passwords.
// Если не задано ни то ни другое, периметр открыт.
func NewMiddleware(tokens TokenValidator, passwords PasswordVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil && passwords == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			var (
				claims *domain.CustomClaims
				err    error
			)
			switch {
			case tokens != nil && strings.HasPrefix(authHeader, "Bearer "):
				claims, err = tokens.VerifyToken(authHeader)
			case passwords != nil:
				user, pass, ok := r.BasicAuth()
				if !ok {
					w.Header().Set("WWW-Authenticate", `Basic realm="netpulse"`)
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				if err = passwords.Verify(user, pass); err == nil {
					claims = &domain.CustomClaims{UserID: user, Scopes: map[string]bool{domain.ScopeAdmin: true}}
				}
			default:
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err != nil {
				logger.Warn("auth failure", zap.Error(err), zap.String("path", r.URL.Path))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireScope пропускает запрос, только если у claims есть scope (admin покрывает все).
// Без claims в контексте (открытый периметр) запрос пропускается.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := ClaimsFromContext(r.Context()); ok && !claims.HasScope(scope) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

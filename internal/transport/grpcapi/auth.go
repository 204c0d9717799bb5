package grpcapi

import (
	"context"

	"github.com/google/uuid"
	"github.com/xela07ax/netpulse/internal/engine"
	"github.com/xela07ax/netpulse/internal/infra/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryAuthInterceptor проверяет bearer-токен в метаданных и нужный scope.
// С validator == nil проверка выключена (как открытый периметр HTTP).
func UnaryAuthInterceptor(validator auth.TokenValidator, scope string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		// 1. Извлекаем метаданные из контекста
		md, _ := metadata.FromIncomingContext(ctx)

		// Trace-ID: из метаданных или новый
		traceID := uuid.New().String()
		if ids := md.Get("x-trace-id"); len(ids) > 0 && ids[0] != "" {
			traceID = ids[0]
		}
		ctx = engine.WithTraceID(ctx, traceID)

		if validator == nil {
			return handler(ctx, req)
		}

		// 2. Ищем токен (в gRPC заголовки в нижнем регистре)
		tokens := md.Get("authorization")
		if len(tokens) == 0 {
			return nil, status.Errorf(codes.Unauthenticated, "missing access token")
		}

		// 3. Та же проверка RS256, что и в HTTP
		claims, err := validator.VerifyToken(tokens[0])
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid access token")
		}
		if !claims.HasScope(scope) {
			return nil, status.Errorf(codes.PermissionDenied, "scope %q required", scope)
		}

		return handler(auth.WithClaims(ctx, claims), req)
	}
}

package grpcapi

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Analyzer: то, что транспорту нужно от engine.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.AnalyticsRequest) (*domain.AnalyticsResponse, error)
}

type Server struct {
	analyzer Analyzer
	logger   *zap.Logger
}

func NewServer(analyzer Analyzer, logger *zap.Logger) *Server {
	return &Server{analyzer: analyzer, logger: logger.Named("grpc-analytics")}
}

func (s *Server) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	// 1. Struct -> JSON -> доменный запрос (тот же контракт, что и у HTTP)
	var req domain.AnalyticsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}

	// 2. Единый пайплайн пересчета
	resp, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		code := codeFor(err)
		if code == codes.Internal || code == codes.Unavailable {
			s.logger.Error("analyze failed", zap.Error(err))
		}
		return nil, status.Error(code, err.Error())
	}

	// 3. Собираем ответ обратно в Struct
	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrInvalidThreshold):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrSourceUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

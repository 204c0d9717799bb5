package grpcapi

import (
	"context"

	"github.com/xela07ax/netpulse/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client: типизированная обертка над сервисом аналитики.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient: token без префикса "Bearer ". Пустой token отключает авторизацию.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

func (c *Client) Analyze(ctx context.Context, req domain.AnalyticsRequest, opts ...grpc.CallOption) (*domain.AnalyticsResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, AnalyzeMethod, in, out, opts...); err != nil {
		return nil, err
	}

	var resp domain.AnalyticsResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

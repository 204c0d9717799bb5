package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

// Ответ коллектора за год с минутной детализацией укладывается с запасом.
const maxBodySize = 64 << 20

// HTTPSource забирает серии у внешнего коллектора (GET /api/latency).
type HTTPSource struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *zap.Logger
}

func NewHTTPSource(cfg infra.SourceConfig, logger *zap.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.Named("http-source"),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, req Request) (*domain.LatencyQuery, error) {
	params := url.Values{}
	if req.Start != "" && req.End != "" {
		params.Set("start", req.Start)
		params.Set("end", req.End)
	}
	endpoint := s.baseURL + "/api/latency"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("http source: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.username != "" {
		httpReq.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http source: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		s.logger.Warn("collector throttled", zap.Int("status", resp.StatusCode), zap.Duration("retry_after", retryAfter))
		return nil, &ThrottleError{
			RetryAfter: retryAfter,
			Cause:      fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http source: %w: status %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var q domain.LatencyQuery
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&q); err != nil {
		return nil, fmt.Errorf("http source: decode response: %w", err)
	}
	if q.Targets == nil {
		q.Targets = []domain.Target{}
	}
	return &q, nil
}

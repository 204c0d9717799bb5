package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/source"
	"go.uber.org/zap"
)

// AnalyticsService: то, что хендлеру нужно от engine.Engine.
type AnalyticsService interface {
	Latency(ctx context.Context, req source.Request) (*domain.LatencyQuery, error)
	Analyze(ctx context.Context, req domain.AnalyticsRequest) (*domain.AnalyticsResponse, error)
}

type LatencyHandler struct {
	service AnalyticsService
	logger  *zap.Logger
}

func NewLatencyHandler(s AnalyticsService, logger *zap.Logger) *LatencyHandler {
	return &LatencyHandler{service: s, logger: logger.Named("latency-handler")}
}

// Raw: GET /api/v1/latency?start=&end=, ответ в формате коллектора.
func (h *LatencyHandler) Raw(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.service.Latency(r.Context(), source.Request{Start: q.Get("start"), End: q.Get("end")})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Analytics: GET /api/v1/latency/analytics с параметрами в query string.
func (h *LatencyHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalyticsQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.analyze(w, r, req)
}

// AnalyticsJSON: POST /api/v1/latency/analytics с телом domain.AnalyticsRequest.
func (h *LatencyHandler) AnalyticsJSON(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyticsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
		return
	}
	h.analyze(w, r, req)
}

func (h *LatencyHandler) analyze(w http.ResponseWriter, r *http.Request, req domain.AnalyticsRequest) {
	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAnalyticsQuery(q url.Values) (domain.AnalyticsRequest, error) {
	req := domain.AnalyticsRequest{Start: q.Get("start"), End: q.Get("end")}

	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %q", domain.ErrInvalidThreshold, raw)
		}
		req.Threshold = &v
	}

	// Зум задается, если пришла хотя бы одна граница; вторая берется по умолчанию
	zs, ze := q.Get("zoom_start"), q.Get("zoom_end")
	if zs != "" || ze != "" {
		zoom := domain.DefaultZoom()
		if zs != "" {
			v, err := strconv.ParseFloat(zs, 64)
			if err != nil {
				return req, fmt.Errorf("%w: bad zoom_start %q", domain.ErrInvalidRange, zs)
			}
			zoom.StartPct = v
		}
		if ze != "" {
			v, err := strconv.ParseFloat(ze, 64)
			if err != nil {
				return req, fmt.Errorf("%w: bad zoom_end %q", domain.ErrInvalidRange, ze)
			}
			zoom.EndPct = v
		}
		req.Zoom = &zoom
	}
	return req, nil
}

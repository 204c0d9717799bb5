package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/netpulse/internal/analytics"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/source"
	"go.uber.org/zap"
)

// ThresholdProvider отдает актуальный порог потерь.
type ThresholdProvider interface {
	Threshold() float64
}

// Engine это ядро дашборда: загрузка серий, выбор активных целей и пересчет аналитики.
type Engine struct {
	source     LatencySource
	thresholds ThresholdProvider
	metrics    *Metrics
	logger     *zap.Logger
}

func NewEngine(src LatencySource, thresholds ThresholdProvider, metrics *Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		source:     src,
		thresholds: thresholds,
		metrics:    metrics,
		logger:     logger.With(zap.String("mod", "engine")),
	}
}

// Latency возвращает сырые серии в формате коллектора.
func (e *Engine) Latency(ctx context.Context, req source.Request) (*domain.LatencyQuery, error) {
	e.metrics.TotalRequests.WithLabelValues("latency").Inc()
	start := time.Now()

	q, err := e.source.Fetch(ctx, req)
	e.observe("latency", start, err)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch: %w", err)
	}
	return q, nil
}

// Analyze загружает окно и пересчитывает снимок для заданного набора целей, зума и порога.
func (e *Engine) Analyze(ctx context.Context, req domain.AnalyticsRequest) (resp *domain.AnalyticsResponse, err error) {
	e.metrics.TotalRequests.WithLabelValues("analyze").Inc()
	start := time.Now()
	defer func() { e.observe("analyze", start, err) }()

	// 1. Порог: из запроса или текущий из Redis/конфига
	threshold := e.thresholds.Threshold()
	if req.Threshold != nil {
		if err := domain.ValidateThreshold(*req.Threshold); err != nil {
			return nil, err
		}
		threshold = *req.Threshold
	}

	// 2. Загрузка окна
	q, err := e.source.Fetch(ctx, source.Request{Start: req.Start, End: req.End})
	if err != nil {
		return nil, fmt.Errorf("engine: fetch: %w", err)
	}

	// 3. Активные цели: пустой список, все (как при первой загрузке), неизвестные теги игнорируем
	active := domain.AllActive(q.Targets)
	if len(req.Tags) > 0 {
		requested := domain.NewActiveTargetSet(req.Tags...)
		for tag := range active {
			if !requested.Has(tag) {
				active.Remove(tag)
			}
		}
	}

	// 4. Зум сбрасывается на весь диапазон, если не задан
	zoom := domain.DefaultZoom()
	if req.Zoom != nil {
		zoom = req.Zoom.Normalize()
	}

	snap := analytics.Compute(analytics.Input{
		Targets:     q.Targets,
		Active:      active,
		Zoom:        zoom,
		Threshold:   threshold,
		Granularity: q.Granularity,
	})

	e.logger.Debug("analytics recomputed",
		zap.String("trace_id", TraceID(ctx)),
		zap.Int("targets", len(q.Targets)),
		zap.Int("active", active.Len()),
		zap.Int("intervals", len(snap.LossIntervals)),
		zap.Float64("threshold", threshold))

	return &domain.AnalyticsResponse{
		Start:    q.Start,
		End:      q.End,
		Targets:  q.Tags(),
		Active:   active.Tags(),
		Snapshot: snap,
	}, nil
}

func (e *Engine) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		e.metrics.ErrorTotal.WithLabelValues(errorType(err)).Inc()
	}
	e.metrics.AnalysisDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, domain.ErrInvalidThreshold):
		return "invalid_threshold"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "source"
	}
}

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/netpulse/internal/analytics"
	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
)

// Analyzer: то, что наблюдателю нужно от Engine.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.AnalyticsRequest) (*domain.AnalyticsResponse, error)
}

// AlertPublisher: получатель алертов (Redis, Kafka).
type AlertPublisher interface {
	Publish(ctx context.Context, a domain.LossAlert) error
}

// Watcher периодически пересчитывает аналитику по всем целям и шлет алерт
// на каждый новый интервал аномальных потерь в окне наблюдения.
type Watcher struct {
	analyzer  Analyzer
	publisher AlertPublisher
	interval  time.Duration
	lookback  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seen map[int64]struct{} // начала уже отправленных интервалов

	metrics *Metrics
	logger  *zap.Logger
}

func NewWatcher(analyzer Analyzer, publisher AlertPublisher, interval, lookback time.Duration, metrics *Metrics, logger *zap.Logger) *Watcher {
	return &Watcher{
		analyzer:  analyzer,
		publisher: publisher,
		interval:  interval,
		lookback:  lookback,
		now:       time.Now,
		seen:      make(map[int64]struct{}),
		metrics:   metrics,
		logger:    logger.Named("watcher"),
	}
}

// Run крутит цикл до отмены контекста.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("anomaly watcher started", zap.Duration("interval", w.interval), zap.Duration("lookback", w.lookback))
	for {
		if _, err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("anomaly check failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("anomaly watcher stopping by context")
			return
		case <-ticker.C:
		}
	}
}

// Tick выполняет одну проверку и возвращает отправленные алерты.
func (w *Watcher) Tick(ctx context.Context) ([]domain.LossAlert, error) {
	ctx = WithTraceID(ctx, uuid.New().String())
	resp, err := w.analyzer.Analyze(ctx, domain.AnalyticsRequest{})
	if err != nil {
		return nil, err
	}

	now := w.now()
	cutoff := now.Add(-w.lookback).Unix()

	var lastTs int64
	if n := len(resp.LossSeries); n > 0 {
		lastTs = resp.LossSeries[n-1].Timestamp
	}
	lookback := float64(cutoff)
	anomalyMin := analytics.AnomalyMinutes(resp.LossSeries, resp.Threshold, resp.Granularity,
		&domain.TimeRange{Start: &lookback})

	w.mu.Lock()
	defer w.mu.Unlock()

	// Забываем интервалы, ушедшие за окно наблюдения
	for start := range w.seen {
		if start < cutoff {
			delete(w.seen, start)
		}
	}

	var sent []domain.LossAlert
	for _, iv := range resp.LossIntervals {
		if iv.Start < cutoff {
			continue
		}
		if _, ok := w.seen[iv.Start]; ok {
			continue
		}

		a := domain.LossAlert{
			ID:         uuid.New().String(),
			Interval:   iv,
			Minutes:    intervalMinutes(resp, iv),
			PeakLoss:   peakLoss(resp.LossSeries, iv),
			Threshold:  resp.Threshold,
			Targets:    resp.Active,
			Ongoing:    iv.End >= lastTs,
			DetectedAt: now,
		}
		if w.publisher != nil {
			if err := w.publisher.Publish(ctx, a); err != nil {
				w.metrics.AlertsTotal.WithLabelValues("failed").Inc()
				w.logger.Warn("alert delivery failed", zap.Int64("start", iv.Start), zap.Error(err))
				continue // Повторим на следующем тике
			}
			w.metrics.AlertsTotal.WithLabelValues("sent").Inc()
		}
		w.seen[iv.Start] = struct{}{}
		sent = append(sent, a)
	}

	if anomalyMin != nil {
		w.metrics.AnomalyMinutes.Set(*anomalyMin)
	} else {
		w.metrics.AnomalyMinutes.Set(0)
	}
	if len(sent) > 0 {
		w.logger.Info("loss anomalies detected", zap.Int("alerts", len(sent)), zap.Float64("threshold", resp.Threshold))
	}
	return sent, nil
}

// intervalMinutes: длительность аномалии по точкам интервала, включая "хвост" последней точки.
func intervalMinutes(resp *domain.AnalyticsResponse, iv domain.Interval) float64 {
	m := analytics.AnomalyMinutes(resp.LossSeries, resp.Threshold, resp.Granularity,
		domain.NewTimeRange(float64(iv.Start), float64(iv.End)))
	if m == nil {
		return 0
	}
	return *m
}

// peakLoss: максимальный процент потерь среди точек интервала [start, end].
func peakLoss(series []domain.LossPoint, iv domain.Interval) float64 {
	var peak float64
	for _, p := range series {
		if p.Loss == nil || p.Timestamp < iv.Start || p.Timestamp > iv.End {
			continue
		}
		peak = max(peak, *p.Loss)
	}
	return peak
}

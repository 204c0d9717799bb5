package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xela07ax/netpulse/internal/domain"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	resp *domain.AnalyticsResponse
	err  error
}

func (f *fakeAnalyzer) Analyze(context.Context, domain.AnalyticsRequest) (*domain.AnalyticsResponse, error) {
	return f.resp, f.err
}

func lossResponse(intervals ...domain.Interval) *domain.AnalyticsResponse {
	return &domain.AnalyticsResponse{
		Active: []string{"HK"},
		Snapshot: domain.Snapshot{
			Threshold:     1,
			Granularity:   1,
			LossIntervals: intervals,
			LossSeries: []domain.LossPoint{
				{Timestamp: 1000, Loss: ptr(0)},
				{Timestamp: 1030, Loss: ptr(40)},
				{Timestamp: 1060, Loss: ptr(60)},
				{Timestamp: 1120, Loss: ptr(0)},
				{Timestamp: 1150, Loss: ptr(70)},
				{Timestamp: 1180, Loss: ptr(80)},
			},
		},
	}
}

func newTestWatcher(a Analyzer, p AlertPublisher, m *Metrics) *Watcher {
	w := NewWatcher(a, p, time.Minute, 10*time.Minute, m, zap.NewNop())
	w.now = func() time.Time { return time.Unix(1200, 0) }
	return w
}

func TestWatcherTick(t *testing.T) {
	an := &fakeAnalyzer{resp: lossResponse(
		domain.Interval{Start: 1030, End: 1060},
		domain.Interval{Start: 1150, End: 1180},
	)}
	pub := &fakePublisher{}
	m := NewMetrics(nil)
	w := newTestWatcher(an, pub, m)

	alerts, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 2 || len(pub.alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Ongoing || !alerts[1].Ongoing {
		t.Fatalf("expected only the trailing interval to be ongoing, got %+v", alerts)
	}
	if alerts[0].PeakLoss != 60 || alerts[1].PeakLoss != 80 {
		t.Fatalf("unexpected peak loss %v / %v", alerts[0].PeakLoss, alerts[1].PeakLoss)
	}
	// Длительность идет по точкам: 30с до следующей аномальной точки и 60с до возврата под порог
	if alerts[0].Minutes != 1.5 || alerts[0].Threshold != 1 || alerts[0].Targets[0] != "HK" {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}
	// Последняя точка серии длится одну гранулу
	if alerts[1].Minutes != 1.5 {
		t.Fatalf("expected 1.5 minutes for the trailing interval, got %v", alerts[1].Minutes)
	}
	if got := testutil.ToFloat64(m.AnomalyMinutes); got != 3 {
		t.Fatalf("expected 3 anomaly minutes, got %v", got)
	}

	// Повторный тик по тем же интервалам не шлет дубли
	alerts, _ = w.Tick(context.Background())
	if len(alerts) != 0 || len(pub.alerts) != 2 {
		t.Fatalf("expected no duplicate alerts, got %d", len(alerts))
	}
	if got := testutil.ToFloat64(m.AlertsTotal.WithLabelValues("sent")); got != 2 {
		t.Fatalf("expected 2 sent alerts, got %v", got)
	}
}

func TestWatcherLookback(t *testing.T) {
	an := &fakeAnalyzer{resp: lossResponse(domain.Interval{Start: 60, End: 660})}
	w := newTestWatcher(an, &fakePublisher{}, NewMetrics(nil))
	w.lookback = time.Minute // cutoff = 1140

	alerts, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected intervals before the lookback to be skipped, got %+v", alerts)
	}

	// В минуты попадают только точки внутри окна наблюдения: 1150 и 1180
	an.resp = lossResponse(domain.Interval{Start: 1030, End: 1180})
	alerts, _ = w.Tick(context.Background())
	if len(alerts) != 0 {
		t.Fatalf("expected no alert for an interval started before cutoff, got %+v", alerts)
	}
	if got := testutil.ToFloat64(w.metrics.AnomalyMinutes); got != 1.5 {
		t.Fatalf("expected 1.5 anomaly minutes inside lookback, got %v", got)
	}
}

func TestWatcherRetriesFailedPublish(t *testing.T) {
	an := &fakeAnalyzer{resp: lossResponse(domain.Interval{Start: 1030, End: 1060})}
	pub := &fakePublisher{err: errors.New("broker down")}
	m := NewMetrics(nil)
	w := newTestWatcher(an, pub, m)

	alerts, err := w.Tick(context.Background())
	if err != nil || len(alerts) != 0 {
		t.Fatalf("expected no delivered alerts, got %d (%v)", len(alerts), err)
	}
	if got := testutil.ToFloat64(m.AlertsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed alert, got %v", got)
	}

	pub.err = nil
	alerts, _ = w.Tick(context.Background())
	if len(alerts) != 1 {
		t.Fatalf("expected alert to be retried, got %d", len(alerts))
	}
}

func TestWatcherAnalyzeError(t *testing.T) {
	w := newTestWatcher(&fakeAnalyzer{err: domain.ErrSourceUnavailable}, nil, NewMetrics(nil))
	if _, err := w.Tick(context.Background()); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	w := newTestWatcher(&fakeAnalyzer{resp: lossResponse()}, nil, NewMetrics(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

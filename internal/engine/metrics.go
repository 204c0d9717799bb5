package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько занял пересчет (включая загрузку из источника)
	AnalysisDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов к движку
	TotalRequests *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Ошибки источника серий (до ретраев)
	SourceErrors *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило, 0.5 - пробуем)
	CircuitBreakerState *prometheus.GaugeVec

	// Ingest: заполненность буфера (backpressure) и сброшенные сэмплы
	IngestBufferFill prometheus.Gauge
	IngestDropped    prometheus.Counter

	// Аномалии: минуты аномальных потерь в окне наблюдения и текущий порог
	AnomalyMinutes prometheus.Gauge
	LossThreshold  prometheus.Gauge

	// Алерты по исходу доставки
	AlertsTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		AnalysisDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netpulse_analysis_duration_seconds",
			Help:    "Histogram of analytics recompute latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "netpulse_requests_total",
			Help: "Total number of processed analytics requests.",
		}, []string{"op"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "netpulse_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: invalid_range, invalid_threshold, source, rate_limit

		SourceErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "netpulse_source_errors_total",
			Help: "Total number of failed latency source calls.",
		}, []string{"source"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "netpulse_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"source"}),

		IngestBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "netpulse_ingest_buffer_utilization",
			Help: "Current number of samples in ingest buffer.",
		}),

		IngestDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "netpulse_ingest_dropped_total",
			Help: "Samples dropped because the ingest buffer was full or closed.",
		}),

		AnomalyMinutes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "netpulse_loss_anomaly_minutes",
			Help: "Minutes of anomalous packet loss within the alerting lookback window.",
		}),

		LossThreshold: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "netpulse_loss_threshold",
			Help: "Current loss threshold in percent.",
		}),

		AlertsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "netpulse_alerts_total",
			Help: "Loss alerts by delivery status.",
		}, []string{"status"}),
	}
}

// Package ingest принимает сэмплы от внешних коллекторов и пишет их пачками в хранилище.
//
// Горячий путь (HTTP-хендлер) никогда не ждет базу: сэмплы кладутся в буферизованный
// канал, а воркер сбрасывает их по таймеру или при наборе пачки. При переполнении
// буфера сэмпл отбрасывается (load shedding) и учитывается в метрике.
// Stop закрывает вход и дописывает остаток буфера (drain).
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/engine"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

var (
	ErrClosed     = errors.New("ingest: recorder is stopped")
	ErrBufferFull = errors.New("ingest: buffer is full")
)

// SampleWriter определяет, куда физически сохраняются сэмплы.
type SampleWriter interface {
	// WriteSamples сохраняет пачку за один запрос
	WriteSamples(ctx context.Context, records []domain.ProbeRecord) error
}

type Recorder struct {
	ch            chan domain.ProbeRecord
	repo          SampleWriter
	batchSize     int
	flushInterval time.Duration
	writeTimeout  time.Duration

	// closed под мьютексом: отправка в закрытый канал паникует
	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	metrics *engine.Metrics
	logger  *zap.Logger
}

func NewRecorder(repo SampleWriter, cfg infra.IngestConfig, metrics *engine.Metrics, logger *zap.Logger) *Recorder {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &Recorder{
		ch:            make(chan domain.ProbeRecord, bufferSize),
		repo:          repo,
		batchSize:     batchSize,
		flushInterval: interval,
		writeTimeout:  5 * time.Second,
		metrics:       metrics,
		logger:        logger.With(zap.String("mod", "ingest")),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop запирает вход и ждет, пока воркер все допишет.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch) // Завершение воркера только через закрытие канала
	r.mu.Unlock()

	r.logger.Info("stopping recorder: flushing buffer...")
	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

// Record ставит сэмплы в очередь без блокировки. Возвращает число принятых.
// Ошибка: если часть сэмплов отброшена.
func (r *Recorder) Record(records ...domain.ProbeRecord) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.metrics.IngestDropped.Add(float64(len(records)))
		return 0, ErrClosed
	}

	for i, rec := range records {
		select {
		case r.ch <- rec:
		default:
			// Backpressure: остаток пачки сбрасываем
			dropped := len(records) - i
			r.metrics.IngestDropped.Add(float64(dropped))
			r.logger.Error("ingest_buffer_overflow",
				zap.String("target", rec.Target),
				zap.Int("dropped", dropped),
			)
			r.metrics.IngestBufferFill.Set(float64(len(r.ch)))
			return i, ErrBufferFull
		}
	}
	r.metrics.IngestBufferFill.Set(float64(len(r.ch)))
	return len(records), nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.ProbeRecord, 0, r.batchSize)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к моменту остановки уже отменен
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()
		if err := r.repo.WriteSamples(ctx, batch); err != nil {
			r.logger.Error("ingest flush failed", zap.Int("samples", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		r.metrics.IngestBufferFill.Set(float64(len(r.ch)))
	}

	for {
		select {
		case rec, ok := <-r.ch:
			if !ok {
				flush() // Финальный сброс
				r.logger.Info("ingest worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/netpulse/internal/analytics"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/infra"
	"go.uber.org/zap"
)

// BucketReader: то, что источнику нужно от хранилища.
type BucketReader interface {
	Buckets(ctx context.Context, tag string, startTs, endTs, stepSec int64) ([]domain.Sample, error)
}

// PostgresSource собирает ответ в формате коллектора из собственной таблицы измерений.
type PostgresSource struct {
	repo          BucketReader
	targets       []infra.ProbeTarget
	loc           *time.Location
	defaultWindow time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

func NewPostgresSource(repo BucketReader, targets []infra.ProbeTarget, cfg infra.AnalyticsConfig, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{
		repo:          repo,
		targets:       targets,
		loc:           cfg.Location(),
		defaultWindow: cfg.DefaultWindow,
		now:           time.Now,
		logger:        logger.Named("pg-source"),
	}
}

func (s *PostgresSource) Fetch(ctx context.Context, req Request) (*domain.LatencyQuery, error) {
	w, err := ResolveWindow(req, s.now(), s.loc, s.defaultWindow)
	if err != nil {
		return nil, err
	}

	q := &domain.LatencyQuery{
		Granularity: w.Granularity,
		Start:       w.Start.Format(dateTimeLayout),
		End:         w.End.Format(dateTimeLayout),
		Targets:     make([]domain.Target, 0, len(s.targets)),
	}

	step := int64(w.Granularity) * 60
	var failed int
	for _, pt := range s.targets {
		points, err := s.repo.Buckets(ctx, pt.Tag, w.Start.Unix(), w.End.Unix(), step)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Одна цель не должна ронять весь дашборд
			s.logger.Warn("failed to load target", zap.String("tag", pt.Tag), zap.Error(err))
			failed++
			continue
		}
		q.Targets = append(q.Targets, domain.Target{
			Tag:    pt.Tag,
			IP:     pt.IP,
			Points: points,
			Stats:  precompute(pt.Tag, points),
		})
	}

	if failed > 0 && failed == len(s.targets) {
		return nil, fmt.Errorf("%w: all %d targets failed", domain.ErrSourceUnavailable, failed)
	}
	return q, nil
}

// precompute: справочная сводка по всей серии, нули вместо "нет данных".
func precompute(tag string, points []domain.Sample) *domain.PrecomputedStats {
	st := analytics.TargetStats(tag, points, nil)
	out := &domain.PrecomputedStats{Count: st.Count}
	if st.Avg != nil {
		out.Avg, out.Min, out.Max = *st.Avg, *st.Min, *st.Max
	}
	if st.LossRate != nil {
		out.Loss = *st.LossRate
	}
	return out
}

package analytics

import (
	"github.com/xela07ax/netpulse/internal/domain"
)

// Input: все, от чего зависит снимок. Zoom по умолчанию, domain.DefaultZoom().
type Input struct {
	Targets     []domain.Target
	Active      domain.ActiveTargetSet
	Zoom        domain.ZoomSelection
	Threshold   float64
	Granularity int
}

// Compute пересчитывает снимок аналитики с нуля.
func Compute(in Input) domain.Snapshot {
	// 1. Только активные цели, в исходном порядке
	active := make([]domain.Target, 0, len(in.Targets))
	for _, t := range in.Targets {
		if in.Active.Has(t.Tag) {
			active = append(active, t)
		}
	}

	granularity := NormalizeGranularity(in.Granularity)

	// 2. Окно зума
	full, ok := FullRange(active)
	window := MapZoom(full, ok, in.Zoom)

	// 3. Потери и аномалии
	series := BuildLossSeries(active)
	report := DetectAnomalies(series, in.Threshold, granularity, window)

	// 4. Статистика
	perTarget := make([]domain.Stats, 0, len(active))
	for _, t := range active {
		perTarget = append(perTarget, TargetStats(t.Tag, t.Points, window))
	}

	snap := domain.Snapshot{
		PerTarget:      perTarget,
		Merged:         MergeStats(perTarget),
		AnomalyMinutes: report.Minutes,
		LossIntervals:  report.Intervals,
		LossSeries:     series,
		Window:         window,
		Threshold:      in.Threshold,
		Granularity:    granularity,
	}
	if ok {
		snap.FullRange = &full
	}
	return snap
}

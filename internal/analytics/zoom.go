package analytics

import (
	"github.com/xela07ax/netpulse/internal/domain"
)

// FullRange: min/max timestamp по всем точкам переданных целей. ok=false, если точек нет.
func FullRange(targets []domain.Target) (domain.FullRange, bool) {
	var (
		r  domain.FullRange
		ok bool
	)
	for _, t := range targets {
		for _, p := range t.Points {
			if !ok {
				r = domain.FullRange{Min: p.Timestamp, Max: p.Timestamp}
				ok = true
				continue
			}
			r.Min = min(r.Min, p.Timestamp)
			r.Max = max(r.Max, p.Timestamp)
		}
	}
	return r, ok
}

// MapZoom переводит проценты выделения в абсолютное окно.
// Нет точек или нулевой размах: nil, окно не ограничивается.
func MapZoom(full domain.FullRange, ok bool, zoom domain.ZoomSelection) *domain.TimeRange {
	span := full.Span()
	if !ok || span <= 0 {
		return nil
	}
	z := zoom.Normalize()
	base := float64(full.Min)
	return domain.NewTimeRange(
		base+float64(span)*z.StartPct/100,
		base+float64(span)*z.EndPct/100,
	)
}

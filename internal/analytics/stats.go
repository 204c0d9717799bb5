package analytics

import (
	"github.com/xela07ax/netpulse/internal/domain"
)

// TargetStats считает статистику одной цели по сэмплам, попавшим в rng (границы включительно).
// RTT участвует только валидный; счетчики, только у сэмплов с определенным sent.
func TargetStats(tag string, points []domain.Sample, rng *domain.TimeRange) domain.Stats {
	st := domain.Stats{Tag: tag}

	var (
		sum      float64
		min, max float64
	)
	for _, p := range points {
		if !rng.Contains(p.Timestamp) {
			continue
		}
		if rtt, ok := p.RTT(); ok {
			if st.Count == 0 || rtt < min {
				min = rtt
			}
			if st.Count == 0 || rtt > max {
				max = rtt
			}
			sum += rtt
			st.Count++
		}
		if !p.SentMissing {
			sent, lost := p.Counters()
			st.Sent += sent
			st.Lost += lost
		}
	}

	if st.Count > 0 {
		avg := sum / float64(st.Count)
		st.Avg, st.Min, st.Max = &avg, &min, &max
	}
	st.LossRate = lossRate(st.Sent, st.Lost)
	return st
}

// MergeStats сводит статистику целей: avg взвешивается по count, min/max, по крайним значениям,
// loss_rate считается из суммарных счетчиков, а не усреднением процентов.
func MergeStats(perTarget []domain.Stats) domain.Stats {
	var (
		merged   domain.Stats
		weighted float64
		min, max *float64
	)
	for _, s := range perTarget {
		if s.Avg != nil && s.Count > 0 {
			weighted += *s.Avg * float64(s.Count)
			merged.Count += s.Count
		}
		if s.Min != nil && (min == nil || *s.Min < *min) {
			v := *s.Min
			min = &v
		}
		if s.Max != nil && (max == nil || *s.Max > *max) {
			v := *s.Max
			max = &v
		}
		merged.Sent += s.Sent
		merged.Lost += s.Lost
	}

	if merged.Count > 0 {
		avg := weighted / float64(merged.Count)
		merged.Avg = &avg
	}
	merged.Min, merged.Max = min, max
	merged.LossRate = lossRate(merged.Sent, merged.Lost)
	return merged
}

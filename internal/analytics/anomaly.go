package analytics

import (
	"sort"

	"github.com/xela07ax/netpulse/internal/domain"
)

// DetectAnomalies находит непрерывные участки серии, где loss >= threshold,
// и суммарную длительность аномалий в пределах rng (nil снимает ограничение).
//
// Длительность: каждая аномальная точка "длится" до следующей точки серии, последняя точка
// одну гранулу. Интервалы закрытые [start, end]: участок закрывается на последней аномальной
// точке перед той, что вернулась под порог или вышла за rng. Участок, открытый на последней
// точке серии, закрывается на ее ts. Интервалы нулевой ширины (одиночная точка) отбрасываются,
// в Minutes такая точка при этом учитывается.
func DetectAnomalies(series []domain.LossPoint, threshold float64, granularity int, rng *domain.TimeRange) domain.AnomalyReport {
	report := domain.AnomalyReport{Intervals: []domain.Interval{}}
	if len(series) == 0 {
		return report
	}

	points := ascending(series)
	step := int64(NormalizeGranularity(granularity)) * 60

	var (
		totalSec int64
		open     bool
		start    int64
	)
	for i, p := range points {
		if isAnomalous(p, threshold) && rng.Contains(p.Timestamp) {
			if i+1 < len(points) {
				totalSec += max(0, points[i+1].Timestamp-p.Timestamp)
			} else {
				totalSec += step
			}
			if !open {
				open, start = true, p.Timestamp
			}
			continue
		}
		if open {
			open = false
			report.Intervals = appendInterval(report.Intervals, start, points[i-1].Timestamp)
		}
	}
	if open {
		report.Intervals = appendInterval(report.Intervals, start, points[len(points)-1].Timestamp)
	}

	minutes := float64(totalSec) / 60
	report.Minutes = &minutes
	return report
}

// LossIntervals: только интервалы аномалий, без ограничения по окну.
func LossIntervals(series []domain.LossPoint, threshold float64, granularity int) []domain.Interval {
	return DetectAnomalies(series, threshold, granularity, nil).Intervals
}

// AnomalyMinutes: только длительность аномалий в окне rng; nil для пустой серии.
func AnomalyMinutes(series []domain.LossPoint, threshold float64, granularity int, rng *domain.TimeRange) *float64 {
	return DetectAnomalies(series, threshold, granularity, rng).Minutes
}

func isAnomalous(p domain.LossPoint, threshold float64) bool {
	return p.Loss != nil && *p.Loss >= threshold
}

func appendInterval(dst []domain.Interval, start, end int64) []domain.Interval {
	if end <= start {
		return dst
	}
	return append(dst, domain.Interval{Start: start, End: end})
}

// ascending возвращает серию по возрастанию ts. Вход не трогаем: при нарушенном порядке сортируем копию.
func ascending(series []domain.LossPoint) []domain.LossPoint {
	less := func(s []domain.LossPoint) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp }
	}
	if sort.SliceIsSorted(series, less(series)) {
		return series
	}
	cp := make([]domain.LossPoint, len(series))
	copy(cp, series)
	sort.SliceStable(cp, less(cp))
	return cp
}

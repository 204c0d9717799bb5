package analytics

import (
	"math"
	"time"
)

// Целевое число точек на графике.
const targetPoints = 1440

var granularitySteps = []int{1, 2, 3, 5, 10, 15, 30, 60, 120, 180, 240, 360, 720, 1440}

// ChooseGranularity подбирает шаг агрегации (минуты) так, чтобы окно давало ~1440 точек.
// Шаг округляется вверх до ближайшей "круглой" ступени.
func ChooseGranularity(d time.Duration) int {
	minutes := int(math.Ceil(d.Minutes()))
	if minutes <= 0 {
		return 1
	}

	raw := max(1, int(math.Ceil(float64(minutes)/targetPoints)))
	for _, step := range granularitySteps {
		if raw <= step {
			return step
		}
	}
	return raw
}

// NormalizeGranularity: неположительная гранулярность трактуется как 1 минута.
func NormalizeGranularity(g int) int {
	if g <= 0 {
		return 1
	}
	return g
}

package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ZoomSelection: выделенный пользователем участок шкалы в процентах от полного диапазона.
type ZoomSelection struct {
	StartPct float64 `json:"start_pct"`
	EndPct   float64 `json:"end_pct"`
}

// DefaultZoom: весь диапазон. Сбрасывается на каждую новую загрузку данных.
func DefaultZoom() ZoomSelection {
	return ZoomSelection{StartPct: 0, EndPct: 100}
}

// Normalize приводит недоверенный ввод к инварианту 0 <= start <= end <= 100.
func (z ZoomSelection) Normalize() ZoomSelection {
	start, end := z.StartPct, z.EndPct
	if math.IsNaN(start) {
		start = 0
	}
	if math.IsNaN(end) {
		end = 100
	}
	start, end = clampPct(start), clampPct(end)
	if start > end {
		start, end = end, start
	}
	return ZoomSelection{StartPct: start, EndPct: end}
}

func clampPct(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// ActiveTargetSet: теги, участвующие в агрегации. nil и пустой набор означают "никого".
type ActiveTargetSet map[string]struct{}

func NewActiveTargetSet(tags ...string) ActiveTargetSet {
	s := make(ActiveTargetSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// AllActive возвращает состояние первой загрузки, когда активны все цели.
func AllActive(targets []Target) ActiveTargetSet {
	s := make(ActiveTargetSet, len(targets))
	for _, t := range targets {
		s[t.Tag] = struct{}{}
	}
	return s
}

func (s ActiveTargetSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

func (s ActiveTargetSet) Add(tag string) {
	s[tag] = struct{}{}
}

func (s ActiveTargetSet) Remove(tag string) {
	delete(s, tag)
}

func (s ActiveTargetSet) Len() int {
	return len(s)
}

// Tags возвращает отсортированный список тегов.
func (s ActiveTargetSet) Tags() []string {
	tags := make([]string, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func (s ActiveTargetSet) Clone() ActiveTargetSet {
	c := make(ActiveTargetSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// FullRange: границы всех загруженных (активных) точек, в секундах.
type FullRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (r FullRange) Span() int64 {
	return r.Max - r.Min
}

// TimeRange: абсолютное окно в секундах. nil-граница означает отсутствие ограничения
// с этой стороны, nil *TimeRange означает отсутствие ограничения вообще.
type TimeRange struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

func NewTimeRange(start, end float64) *TimeRange {
	return &TimeRange{Start: &start, End: &end}
}

// Contains проверяет попадание ts в [Start, End] включительно.
func (r *TimeRange) Contains(ts int64) bool {
	if r == nil {
		return true
	}
	t := float64(ts)
	if r.Start != nil && t < *r.Start {
		return false
	}
	if r.End != nil && t > *r.End {
		return false
	}
	return true
}

// LossPoint: точка сводной серии потерь. Loss == nil: в этом бакете пробы не отправлялись.
type LossPoint struct {
	Timestamp int64    `json:"ts"`
	Loss      *float64 `json:"loss"`
}

// Interval: отрезок аномалии [Start, End] в секундах, от первой до последней аномальной точки.
type Interval struct {
	Start int64
	End   int64
}

// MarshalJSON кодирует интервал парой [start, end], как ее ждет слой отрисовки.
func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{i.Start, i.End})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var pair []int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("domain: interval must have 2 elements, got %d", len(pair))
	}
	i.Start, i.End = pair[0], pair[1]
	return nil
}

// AnomalyReport хранит результат детектора: интервалы и суммарная длительность в минутах.
type AnomalyReport struct {
	Intervals []Interval `json:"intervals"`
	Minutes   *float64   `json:"minutes"` // nil для пустой серии
}

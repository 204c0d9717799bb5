package domain

import "encoding/json"

// PrecomputedStats: сводка, посчитанная источником по всей (не зумированной) серии.
// Только для отображения: движок аналитики ее не использует.
type PrecomputedStats struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count,omitempty"`
	Loss  float64 `json:"loss,omitempty"`
}

// Target: цель пробы (узел, до которого меряем задержку).
type Target struct {
	Tag    string            `json:"tag"`
	IP     string            `json:"ip,omitempty"`
	Points []Sample          `json:"points"`
	Stats  *PrecomputedStats `json:"stats,omitempty"`
}

// UnmarshalJSON отбрасывает точки без валидного ts вместо того, чтобы ронять весь ответ.
func (t *Target) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tag    string            `json:"tag"`
		IP     string            `json:"ip"`
		Points []json.RawMessage `json:"points"`
		Stats  json.RawMessage   `json:"stats"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Target{Tag: raw.Tag, IP: raw.IP, Points: make([]Sample, 0, len(raw.Points))}
	for _, p := range raw.Points {
		var s Sample
		if err := json.Unmarshal(p, &s); err != nil {
			continue
		}
		out.Points = append(out.Points, s)
	}
	if len(raw.Stats) > 0 && string(raw.Stats) != "null" {
		var st PrecomputedStats
		if err := json.Unmarshal(raw.Stats, &st); err == nil {
			out.Stats = &st
		}
	}

	*t = out
	return nil
}

// LatencyQuery: ответ источника (совместим с /api/latency коллектора).
type LatencyQuery struct {
	Granularity int      `json:"granularity"` // ширина бакета в минутах
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Targets     []Target `json:"targets"`
}

// Tags возвращает теги в порядке источника.
func (q *LatencyQuery) Tags() []string {
	tags := make([]string, 0, len(q.Targets))
	for _, t := range q.Targets {
		tags = append(tags, t.Tag)
	}
	return tags
}

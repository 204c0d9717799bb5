package domain

import (
	"encoding/json"
	"errors"
	"math"
)

var errMissingTimestamp = errors.New("domain: sample has no valid ts")

// Sample: одно измерение пробы для цели (один бакет granularity).
type Sample struct {
	Timestamp int64    `json:"ts"`     // секунды от эпохи
	RTTMs     *float64 `json:"rtt_ms"` // nil: проба не вернулась или данных нет
	Sent      int64    `json:"sent"`
	Lost      int64    `json:"lost"`

	// SentMissing выставляется декодером, если sent не пришел или битый.
	// Такой сэмпл не участвует в sent/lost статистики окна.
	SentMissing bool `json:"-"`
}

// RTT возвращает валидное значение задержки. Отрицательные, NaN и Inf считаются отсутствующими.
func (s Sample) RTT() (float64, bool) {
	if s.RTTMs == nil {
		return 0, false
	}
	v := *s.RTTMs
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// Counters возвращает sent/lost, битые (отрицательные) значения превращаются в 0.
func (s Sample) Counters() (sent, lost int64) {
	if s.Sent > 0 {
		sent = s.Sent
	}
	if s.Lost > 0 {
		lost = s.Lost
	}
	return sent, lost
}

// UnmarshalJSON терпимо декодирует данные внешнего коллектора.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp json.RawMessage `json:"ts"`
		RTTMs     json.RawMessage `json:"rtt_ms"`
		Sent      json.RawMessage `json:"sent"`
		Lost      json.RawMessage `json:"lost"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, ok := decodeInt(raw.Timestamp)
	if !ok {
		return errMissingTimestamp
	}

	out := Sample{Timestamp: ts}
	if v, ok := decodeFloat(raw.RTTMs); ok && v >= 0 {
		out.RTTMs = &v
	}
	if sent, ok := decodeInt(raw.Sent); ok && sent >= 0 {
		out.Sent = sent
	} else {
		out.SentMissing = true
	}
	if lost, ok := decodeInt(raw.Lost); ok && lost >= 0 {
		out.Lost = lost
	}

	*s = out
	return nil
}

// ProbeRecord: сэмпл с именем цели, формат приема от коллекторов.
type ProbeRecord struct {
	Target string `json:"target"`
	Sample
}

func (r *ProbeRecord) UnmarshalJSON(data []byte) error {
	var head struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	var s Sample
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	r.Target = head.Target
	r.Sample = s
	return nil
}

func decodeFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0, false
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func decodeInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}

package domain

// Stats: статистика RTT и потерь по окну. nil-поля означают "нет данных", а не ноль.
type Stats struct {
	Tag      string   `json:"tag,omitempty"`
	Avg      *float64 `json:"avg"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Count    int      `json:"count"` // число сэмплов с валидным RTT
	Sent     int64    `json:"sent"`
	Lost     int64    `json:"lost"`
	LossRate *float64 `json:"loss_rate"` // проценты
}

package domain

// Snapshot: неизменяемый результат одного пересчета аналитики для слоя отрисовки.
type Snapshot struct {
	PerTarget      []Stats     `json:"per_target"`
	Merged         Stats       `json:"merged"`
	AnomalyMinutes *float64    `json:"anomaly_minutes"`
	LossIntervals  []Interval  `json:"loss_intervals"`
	LossSeries     []LossPoint `json:"loss_series"`
	FullRange      *FullRange  `json:"full_range"` // nil, если точек нет
	Window         *TimeRange  `json:"window"`     // nil при span <= 0
	Threshold      float64     `json:"threshold"`
	Granularity    int         `json:"granularity"`
}

// AnalyticsRequest: параметры запроса дашборда.
type AnalyticsRequest struct {
	Start     string         `json:"start,omitempty"` // YYYY-MM-DD, пусто, окно по умолчанию
	End       string         `json:"end,omitempty"`
	Tags      []string       `json:"tags,omitempty"` // пусто, активны все цели
	Zoom      *ZoomSelection `json:"zoom,omitempty"` // nil: весь диапазон
	Threshold *float64       `json:"threshold,omitempty"`
}

// AnalyticsResponse: снимок плюс контекст загрузки.
type AnalyticsResponse struct {
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Targets []string `json:"targets"` // все цели из ответа источника
	Active  []string `json:"active"`
	Snapshot
}

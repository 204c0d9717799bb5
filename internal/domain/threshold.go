package domain

// ThresholdRequest: тело PUT /v1/threshold.
type ThresholdRequest struct {
	Value float64 `json:"value"`
}

type ThresholdResponse struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"` // "redis" или "default"
}

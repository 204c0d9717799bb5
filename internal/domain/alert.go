package domain

import "time"

// LossAlert: событие о новом интервале аномальных потерь.
type LossAlert struct {
	ID         string    `json:"id"`
	Interval   Interval  `json:"interval"`
	Minutes    float64   `json:"minutes"`
	PeakLoss   float64   `json:"peak_loss"` // максимальный % потерь внутри интервала
	Threshold  float64   `json:"threshold"`
	Targets    []string  `json:"targets"`
	Ongoing    bool      `json:"ongoing"` // интервал еще не закрылся на момент обнаружения
	DetectedAt time.Time `json:"detected_at"`
}

package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidThreshold  = errors.New("invalid loss threshold")
	ErrInvalidRange      = errors.New("invalid time range")
	ErrSourceUnavailable = errors.New("latency source unavailable")
)

// DefaultLossThreshold: порог потерь (%) по умолчанию, с которого бакет считается аномальным.
const DefaultLossThreshold = 1.0

// ValidateThreshold проверяет порог, пришедший извне (API, Redis, конфиг).
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, v)
	}
	return nil
}

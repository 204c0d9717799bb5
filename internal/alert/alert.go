// Package alert доставляет события об аномальных потерях во внешние шины.
package alert

import (
	"context"

	"github.com/xela07ax/netpulse/internal/domain"
)

// Publisher: куда уходят алерты.
type Publisher interface {
	Publish(ctx context.Context, a domain.LossAlert) error
	Close() error
}

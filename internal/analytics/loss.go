// Package analytics: чистый движок аналитики задержек и потерь.
// Функции не держат состояния, не делают I/O и не мутируют входные данные,
// поэтому их можно вызывать из любого количества горутин.
package analytics

import (
	"sort"

	"github.com/xela07ax/netpulse/internal/domain"
)

type lossBucket struct {
	sent int64
	lost int64
}

// BuildLossSeries сводит сэмплы всех переданных целей в одну серию потерь:
// группировка по точному timestamp, суммы sent/lost, loss = lost/sent*100.
func BuildLossSeries(targets []domain.Target) []domain.LossPoint {
	buckets := make(map[int64]*lossBucket)
	for _, t := range targets {
		for _, p := range t.Points {
			b, ok := buckets[p.Timestamp]
			if !ok {
				b = &lossBucket{}
				buckets[p.Timestamp] = b
			}
			sent, lost := p.Counters()
			b.sent += sent
			b.lost += lost
		}
	}

	keys := make([]int64, 0, len(buckets))
	for ts := range buckets {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	series := make([]domain.LossPoint, 0, len(keys))
	for _, ts := range keys {
		b := buckets[ts]
		series = append(series, domain.LossPoint{Timestamp: ts, Loss: lossRate(b.sent, b.lost)})
	}
	return series
}

// lossRate возвращает nil, если ничего не отправлялось.
func lossRate(sent, lost int64) *float64 {
	if sent <= 0 {
		return nil
	}
	v := float64(lost) / float64(sent) * 100
	return &v
}

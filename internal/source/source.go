// Package source загружает сырые серии задержек и потерь: из собственной базы
// или с внешнего коллектора по HTTP.
package source

import (
	"fmt"
	"time"

	"github.com/xela07ax/netpulse/internal/analytics"
	"github.com/xela07ax/netpulse/internal/domain"
)

// Request: окно загрузки. Даты в формате YYYY-MM-DD; пустые, окно по умолчанию.
type Request struct {
	Start string
	End   string
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Window: разрешенное абсолютное окно запроса.
type Window struct {
	Start       time.Time
	End         time.Time
	Granularity int // минуты
}

// ResolveWindow переводит даты запроса в абсолютное окно в часовом поясе loc.
// Обе даты: с начала первого дня до конца последнего (сегодняшний день обрезается до now).
// Иначе: последние def до now. Перепутанные даты меняются местами.
func ResolveWindow(req Request, now time.Time, loc *time.Location, def time.Duration) (Window, error) {
	now = now.In(loc)

	if req.Start == "" || req.End == "" {
		return Window{
			Start:       now.Add(-def),
			End:         now,
			Granularity: analytics.ChooseGranularity(def),
		}, nil
	}

	start, err := time.ParseInLocation(dateLayout, req.Start, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: start %q", domain.ErrInvalidRange, req.Start)
	}
	endDay, err := time.ParseInLocation(dateLayout, req.End, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: end %q", domain.ErrInvalidRange, req.End)
	}
	if endDay.Before(start) {
		start, endDay = endDay, start
	}

	end := endDay.Add(24*time.Hour - time.Second) // включая последнюю секунду дня
	if endDay.Format(dateLayout) == now.Format(dateLayout) {
		end = now
	}
	if end.Before(start) {
		end = start
	}

	return Window{
		Start:       start,
		End:         end,
		Granularity: analytics.ChooseGranularity(end.Sub(start)),
	}, nil
}

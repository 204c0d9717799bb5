package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xela07ax/netpulse/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS latency_records (
	id     BIGSERIAL PRIMARY KEY,
	ts     BIGINT NOT NULL,
	target TEXT NOT NULL,
	rtt_ms DOUBLE PRECISION,
	sent   BIGINT,
	lost   BIGINT
);
CREATE INDEX IF NOT EXISTS idx_latency_target_ts ON latency_records (target, ts);`

// Бакеты: ts округляется вниз до шага агрегации, RTT усредняется, счетчики суммируются.
const bucketQuery = `SELECT (ts / $1) * $1 AS bucket_ts,
	AVG(rtt_ms) AS avg_rtt,
	SUM(COALESCE(sent, 0))::BIGINT AS sent,
	SUM(COALESCE(lost, 0))::BIGINT AS lost
FROM latency_records
WHERE target = $2 AND ts >= $3 AND ts <= $4
GROUP BY bucket_ts
ORDER BY bucket_ts`

// LatencyRepo хранит сырые измерения проб.
type LatencyRepo struct {
	db *sql.DB
}

func NewLatencyRepo(db *sql.DB) *LatencyRepo {
	return &LatencyRepo{db: db}
}

// EnsureSchema создает таблицу и индекс, если их нет.
func (r *LatencyRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

// Buckets возвращает агрегированную серию цели за [startTs, endTs] с шагом stepSec секунд.
func (r *LatencyRepo) Buckets(ctx context.Context, tag string, startTs, endTs, stepSec int64) ([]domain.Sample, error) {
	if stepSec <= 0 {
		stepSec = 60
	}

	rows, err := r.db.QueryContext(ctx, bucketQuery, stepSec, tag, startTs, endTs)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query buckets for %s: %w", tag, err)
	}
	defer rows.Close()

	points := make([]domain.Sample, 0)
	for rows.Next() {
		var (
			ts   int64
			rtt  sql.NullFloat64
			sent sql.NullInt64
			lost sql.NullInt64
		)
		if err := rows.Scan(&ts, &rtt, &sent, &lost); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan bucket: %w", err)
		}

		s := domain.Sample{Timestamp: ts, Sent: sent.Int64, Lost: lost.Int64}
		if rtt.Valid {
			v := rtt.Float64
			s.RTTMs = &v
		}
		points = append(points, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bucket rows: %w", err)
	}
	return points, nil
}

// WriteSamples пишет пачку измерений одним INSERT.
func (r *LatencyRepo) WriteSamples(ctx context.Context, records []domain.ProbeRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Количество колонок в таблице latency_records (без id)
	numFields := 5
	var sb strings.Builder
	vals := make([]interface{}, 0, len(records)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, rec := range records {
		p := i * numFields
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4, p+5)

		var rtt, sent interface{}
		if v, ok := rec.RTT(); ok {
			rtt = v
		}
		if !rec.SentMissing {
			sent = rec.Sent
		}
		vals = append(vals, rec.Timestamp, rec.Target, rtt, sent, rec.Lost)
	}

	query := "INSERT INTO latency_records (ts, target, rtt_ms, sent, lost) VALUES " + sb.String()
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write %d samples: %w", len(records), err)
	}
	return nil
}

// Ping проверяет доступность базы при старте
func (r *LatencyRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

package alert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/xela07ax/netpulse/internal/domain"
)

func sampleAlert() domain.LossAlert {
	return domain.LossAlert{
		ID:         "a-1",
		Interval:   domain.Interval{Start: 60, End: 180},
		Minutes:    2,
		PeakLoss:   40,
		Threshold:  1,
		Targets:    []string{"HK"},
		DetectedAt: time.Unix(200, 0).UTC(),
	}
}

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher(t *testing.T) {
	rdb := &fakeRedis{}
	p := NewRedisPublisher(rdb, "netpulse:alerts:loss")

	if err := p.Publish(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rdb.channel != "netpulse:alerts:loss" {
		t.Fatalf("expected alerts channel, got %q", rdb.channel)
	}

	var got map[string]any
	if err := json.Unmarshal(rdb.payload, &got); err != nil {
		t.Fatalf("expected JSON payload: %v", err)
	}
	iv, _ := got["interval"].([]any)
	if len(iv) != 2 || iv[0].(float64) != 60 {
		t.Fatalf("expected interval as [start,end], got %v", got["interval"])
	}

	rdb.err = errors.New("connection refused")
	if err := p.Publish(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected publish error")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "netpulse.loss-alerts")

	if err := p.Publish(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "a-1" {
		t.Fatalf("expected one message keyed by alert id, got %+v", w.msgs)
	}

	var back domain.LossAlert
	if err := json.Unmarshal(w.msgs[0].Value, &back); err != nil || back.Interval.End != 180 {
		t.Fatalf("expected alert round trip, got %+v %v", back, err)
	}

	w.err = errors.New("leader not available")
	if err := p.Publish(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected write error")
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Fatal("expected writer to be closed")
	}
}

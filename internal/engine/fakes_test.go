package engine

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/source"
)

// fakeSource отдает ответы по очереди; последний повторяется.
type fakeSource struct {
	mu      sync.Mutex
	results []*domain.LatencyQuery
	errs    []error
	calls   int
	lastReq source.Request
}

func (f *fakeSource) Fetch(ctx context.Context, req source.Request) (*domain.LatencyQuery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.lastReq = req
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.results) == 0 {
		return &domain.LatencyQuery{Granularity: 1, Targets: []domain.Target{}}, nil
	}
	return f.results[min(i, len(f.results)-1)], nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRedis: минимальный in-memory стенд для ключей порога.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	lockOK bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, lockOK: true}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Subscribe(_ context.Context, _ ...string) *redis.PubSub {
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(f.lockOK, nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

type fakePublisher struct {
	alerts []domain.LossAlert
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, a domain.LossAlert) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, a)
	return nil
}

func ptr(v float64) *float64 { return &v }

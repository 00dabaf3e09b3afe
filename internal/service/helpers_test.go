package service

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/target/dispatch-api/internal/domain/auth"
)

var (
	testNow   = time.Date(2026, 3, 9, 15, 30, 0, 0, time.UTC)
	testAdmin = auth.Actor{ID: "u-admin", Email: "ops.lead@example.com", Role: auth.RoleAdmin}
	testUser  = auth.Actor{ID: "u-user", Email: "dispatcher@example.com", Role: auth.RoleUser}
	testGuest = auth.Actor{ID: "u-guest", Email: "viewer@example.com", Role: auth.RoleGuest}
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type metricCall struct {
	Kind  string
	Name  string
	Value int64
	Tags  map[string]string
}

// recordingMetrics captures statsd calls.
type recordingMetrics struct {
	mu    sync.Mutex
	calls []metricCall
}

func (r *recordingMetrics) Count(name string, value int64, tags map[string]string) {
	r.add(metricCall{Kind: "count", Name: name, Value: value, Tags: tags})
}

func (r *recordingMetrics) Gauge(name string, value float64, tags map[string]string) {
	r.add(metricCall{Kind: "gauge", Name: name, Value: int64(value), Tags: tags})
}

func (r *recordingMetrics) Timing(name string, _ time.Duration, tags map[string]string) {
	r.add(metricCall{Kind: "timing", Name: name, Tags: tags})
}

func (r *recordingMetrics) add(c metricCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingMetrics) find(name string) (metricCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.Name == name {
			return c, true
		}
	}
	return metricCall{}, false
}

// Package metrics emits the standard dispatch counters and timings through a StatsD sink.
package metrics

import (
	"time"

	obserrors "github.com/target/dispatch-api/internal/observability/errors"
	"github.com/target/dispatch-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultSkipped = "skipped"
)

// JobMetric captures a job mutation for metric emission.
type JobMetric struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitJobMutation emits standardised job mutation metrics.
func EmitJobMutation(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := withErrorClass(map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}, in.Result, in.Err)

	sink.Count("job.mutation", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.mutation.duration", in.Duration, CloneTags(tags))
	}
}

// DeliveryMetric captures one notification delivery attempt to a sink.
type DeliveryMetric struct {
	Sink     string
	Kind     string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitDelivery emits notification delivery metrics.
func EmitDelivery(sink statsd.Sink, in DeliveryMetric) {
	if sink == nil {
		return
	}

	tags := withErrorClass(map[string]string{
		"sink":   in.Sink,
		"kind":   in.Kind,
		"result": in.Result,
	}, in.Result, in.Err)

	sink.Count("notify.delivery", 1, tags)
	if in.Duration > 0 {
		sink.Timing("notify.delivery.duration", in.Duration, CloneTags(tags))
	}
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err != nil && result == ResultError {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	return tags
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

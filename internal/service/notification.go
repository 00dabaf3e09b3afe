package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/dispatch"
	"github.com/target/dispatch-api/internal/domain/model"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/observability/metrics"
	"github.com/target/dispatch-api/internal/observability/notify"
	"github.com/target/dispatch-api/internal/observability/statsd"
)

const (
	defaultSinkTimeout = 5 * time.Second
	notifyKeyPrefix    = "notify:"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// NotificationConfig tunes delivery.
type NotificationConfig struct {
	// PortalOrigin is the public origin used to build job links.
	PortalOrigin string
	// SinkTimeout bounds each sink's delivery, retries included.
	SinkTimeout time.Duration
	// DedupeWindow suppresses an identical message for the same job. Zero disables it.
	DedupeWindow time.Duration
}

// NotificationServiceOptions groups dependencies for NotificationService.
type NotificationServiceOptions struct {
	Sinks   []SinkRegistration
	Cache   core.CacheRepository // Optional: dedupe store
	Config  NotificationConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
	Clock   core.TimeProvider
}

// DeliveryReport is the in-band outcome of a notification. Delivery problems
// never fail the mutation that triggered them; they show up as warnings.
type DeliveryReport struct {
	Link      *dispatch.Link `json:"link,omitempty"`
	Delivered []string       `json:"delivered,omitempty"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Warnings  []Warning      `json:"warnings,omitempty"`
}

// NotificationService fans job messages out to every registered sink.
type NotificationService struct {
	sinks   []SinkRegistration
	cache   core.CacheRepository
	cfg     NotificationConfig
	logger  *slog.Logger
	metrics statsd.Sink
	clock   core.TimeProvider
}

// NewNotificationService constructs a NotificationService. Nil sinks are skipped.
func NewNotificationService(opts NotificationServiceOptions) *NotificationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notifier")

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{Name: name, Sink: entry.Sink})
	}

	cfg := opts.Config
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &NotificationService{
		sinks:   sinks,
		cache:   opts.Cache,
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   clock,
	}
}

// PortalOrigin returns the origin used in job links.
func (s *NotificationService) PortalOrigin() string {
	return s.cfg.PortalOrigin
}

// NotifyAssignment tells sub that job is theirs.
func (s *NotificationService) NotifyAssignment(
	ctx context.Context,
	job model.Job,
	sub model.Subcontractor,
	platform dispatch.ClientPlatform,
) DeliveryReport {
	text := dispatch.BuildAssignmentMessage(job, s.cfg.PortalOrigin)
	return s.deliver(ctx, notify.KindAssignment, job, sub, platform, text)
}

// NotifyUpdate tells sub that job's status changed.
func (s *NotificationService) NotifyUpdate(
	ctx context.Context,
	job model.Job,
	sub model.Subcontractor,
	platform dispatch.ClientPlatform,
) DeliveryReport {
	text := dispatch.BuildUpdateMessage(job, s.cfg.PortalOrigin)
	return s.deliver(ctx, notify.KindUpdate, job, sub, platform, text)
}

func (s *NotificationService) deliver(
	ctx context.Context,
	kind notify.Kind,
	job model.Job,
	sub model.Subcontractor,
	platform dispatch.ClientPlatform,
	text string,
) DeliveryReport {
	var report DeliveryReport

	msg := notify.Message{
		Kind:       kind,
		JobID:      job.ID,
		JobStatus:  string(job.Status),
		Recipient:  sub.Name,
		Phone:      sub.Phone,
		Text:       text,
		PortalURL:  dispatch.PortalURL(s.cfg.PortalOrigin, job.ID),
		OccurredAt: s.clock.Now().UTC(),
	}

	link, err := dispatch.MessagingLink(platform, sub.Phone, text)
	if err != nil {
		s.logger.WarnContext(ctx, "subcontractor phone cannot be normalized",
			"job_id", job.ID, "subcontractor_id", sub.ID, "error", err)
		report.Warnings = append(report.Warnings, warningFrom(err))
	} else {
		report.Link = &link
		msg.Link = link.Fallback
		if digits, normErr := dispatch.NormalizePhone(sub.Phone); normErr == nil {
			msg.Phone = digits
		}
	}

	if len(s.sinks) == 0 {
		return report
	}
	if s.isDuplicate(ctx, msg) {
		report.Duplicate = true
		return report
	}

	delivered, warnings := s.fanOut(ctx, msg)
	if len(delivered) == 0 {
		s.releaseDedupe(ctx, msg)
	}
	report.Delivered = delivered
	report.Warnings = append(report.Warnings, warnings...)
	return report
}

// isDuplicate claims the dedupe key for msg. Cache failures never block delivery.
func (s *NotificationService) isDuplicate(ctx context.Context, msg notify.Message) bool {
	if s.cache == nil || s.cfg.DedupeWindow <= 0 {
		return false
	}
	claimed, err := s.cache.SetIfNotExists(ctx, dedupeKey(msg), []byte(msg.OccurredAt.Format(time.RFC3339)), s.cfg.DedupeWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "notification dedupe unavailable", "job_id", msg.JobID, "error", err)
		return false
	}
	if !claimed {
		s.logger.DebugContext(ctx, "suppressing duplicate notification", "job_id", msg.JobID, "kind", msg.Kind)
	}
	return !claimed
}

// releaseDedupe drops the claim after a delivery that reached no sink so a
// retry is not suppressed.
func (s *NotificationService) releaseDedupe(ctx context.Context, msg notify.Message) {
	if s.cache == nil || s.cfg.DedupeWindow <= 0 {
		return
	}
	if _, err := s.cache.Delete(context.WithoutCancel(ctx), dedupeKey(msg)); err != nil {
		s.logger.WarnContext(ctx, "release notification dedupe key", "job_id", msg.JobID, "error", err)
	}
}

func dedupeKey(msg notify.Message) string {
	sum := sha256.Sum256([]byte(msg.Phone + "\x00" + msg.Text))
	return notifyKeyPrefix + string(msg.Kind) + ":" + msg.JobID + ":" + hex.EncodeToString(sum[:8])
}

// fanOut delivers msg to every sink concurrently and waits for all of them.
// Results keep sink registration order.
func (s *NotificationService) fanOut(ctx context.Context, msg notify.Message) ([]string, []Warning) {
	errs := make([]error, len(s.sinks))

	var wg sync.WaitGroup
	for i, entry := range s.sinks {
		wg.Add(1)
		go func(i int, entry SinkRegistration) {
			defer wg.Done()
			errs[i] = s.sendOne(ctx, entry, msg)
		}(i, entry)
	}
	wg.Wait()

	var (
		delivered []string
		warnings  []Warning
	)
	for i, err := range errs {
		name := s.sinks[i].Name
		if err == nil {
			delivered = append(delivered, name)
			continue
		}
		warnings = append(warnings, warningFrom(
			apperrors.DeliveryFailure(err, fmt.Sprintf("notification via %s failed", name)),
		))
	}
	return delivered, warnings
}

func (s *NotificationService) sendOne(ctx context.Context, entry SinkRegistration, msg notify.Message) (err error) {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SinkTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
			s.logger.WarnContext(ctx, "notification sink failed",
				"sink", entry.Name, "job_id", msg.JobID, "kind", msg.Kind, "error", err)
		}
		metrics.EmitDelivery(s.metrics, metrics.DeliveryMetric{
			Sink:     entry.Name,
			Kind:     string(msg.Kind),
			Result:   result,
			Duration: time.Since(start),
			Err:      err,
		})
	}()

	return entry.Sink.Send(sendCtx, msg)
}

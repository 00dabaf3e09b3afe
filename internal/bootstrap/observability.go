package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/dispatch-api/config"
	"github.com/target/dispatch-api/internal/observability/notify/slack"
	"github.com/target/dispatch-api/internal/observability/notify/webhook"
	"github.com/target/dispatch-api/internal/observability/statsd"
	"github.com/target/dispatch-api/internal/service"
)

// BuildMetricsClient dials StatsD when metrics are enabled. A nil client
// means metrics are off; every consumer treats a nil sink as a no-op.
func BuildMetricsClient(cfg config.MetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		if logger != nil {
			logger.Error("failed to initialise statsd client; metrics disabled", "error", err)
		}
		return nil
	}
	return client
}

// BuildNotificationSinks builds one registration per enabled sink. A sink
// with invalid configuration is skipped and reported in the joined error so
// startup can log it without refusing to serve.
func BuildNotificationSinks(cfg config.NotifyConfig) ([]service.SinkRegistration, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var (
		sinks []service.SinkRegistration
		errs  []error
	)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("slack sink: %w", err))
		} else {
			sinks = append(sinks, service.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.Webhook.Enabled {
		sink, err := webhook.New(webhook.Config{
			URL:        cfg.Webhook.URL,
			Method:     cfg.Webhook.Method,
			Headers:    cfg.Webhook.Headers,
			BodyExpr:   cfg.Webhook.BodyExpr,
			OkStatus:   cfg.Webhook.OkStatus,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("webhook sink: %w", err))
		} else {
			sinks = append(sinks, service.SinkRegistration{Name: "webhook", Sink: sink})
		}
	}

	return sinks, errors.Join(errs...)
}

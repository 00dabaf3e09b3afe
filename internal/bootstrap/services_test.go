package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/target/dispatch-api/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Equal(t, []string{"http", "reaper"}, GetEnabledServices(&config.AppConfig{Services: "reaper, http"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "scheduler"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "bogus"}))

	prod := &config.AppConfig{Services: "http"}
	require.ErrorContains(t, ValidateServiceConfig(prod), "AUTH_TOKEN_SECRET")

	prod.IsDev = true
	require.NoError(t, ValidateServiceConfig(prod))

	reaperOnly := &config.AppConfig{Services: "reaper"}
	require.NoError(t, ValidateServiceConfig(reaperOnly))
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, slog.LevelDebug, logLevel.Level())

	require.Error(t, SetLogLevel("chatty"))
	assert.Equal(t, slog.LevelDebug, logLevel.Level())
}

func TestInvitationSecret(t *testing.T) {
	logger := discardLogger()

	t.Run("configured", func(t *testing.T) {
		cfg := &config.AppConfig{Auth: config.AuthConfig{TokenSecret: "0123456789abcdef0123456789abcdef"}}
		secret, err := invitationSecret(cfg, logger)
		require.NoError(t, err)
		assert.Equal(t, []byte(cfg.Auth.TokenSecret), secret)
	})

	t.Run("too short", func(t *testing.T) {
		cfg := &config.AppConfig{Auth: config.AuthConfig{TokenSecret: "short"}}
		_, err := invitationSecret(cfg, logger)
		require.Error(t, err)
	})

	t.Run("missing in production", func(t *testing.T) {
		_, err := invitationSecret(&config.AppConfig{}, logger)
		require.Error(t, err)
	})

	t.Run("ephemeral in development", func(t *testing.T) {
		a, err := invitationSecret(&config.AppConfig{IsDev: true}, logger)
		require.NoError(t, err)
		b, err := invitationSecret(&config.AppConfig{IsDev: true}, logger)
		require.NoError(t, err)
		assert.Len(t, a, minTokenSecretLen)
		assert.NotEqual(t, a, b)
	})
}

func TestResolveCookieDomain(t *testing.T) {
	assert.Equal(t, "dispatch.internal", ResolveCookieDomain(config.HTTPConfig{
		CookieDomain: "dispatch.internal",
		BaseURL:      "https://dispatch.example.com",
	}))
	assert.Equal(t, "example.com", ResolveCookieDomain(config.HTTPConfig{BaseURL: "https://dispatch.example.com"}))
	assert.Empty(t, ResolveCookieDomain(config.HTTPConfig{BaseURL: "http://localhost:8080"}))
}

func TestBuildNotificationSinks(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		sinks, err := BuildNotificationSinks(config.NotifyConfig{
			Slack: config.SlackNotifyConfig{Enabled: true, WebhookURL: "https://hooks.slack.test/x"},
		})
		require.NoError(t, err)
		assert.Empty(t, sinks)
	})

	t.Run("both sinks", func(t *testing.T) {
		sinks, err := BuildNotificationSinks(config.NotifyConfig{
			Enabled: true,
			Timeout: time.Second,
			Slack:   config.SlackNotifyConfig{Enabled: true, WebhookURL: "https://hooks.slack.test/x"},
			Webhook: config.WebhookNotifyConfig{
				Enabled:  true,
				URL:      "https://sms.example.com/send",
				BodyExpr: "{to: phone, body: text}",
			},
		})
		require.NoError(t, err)
		require.Len(t, sinks, 2)
		assert.Equal(t, "slack", sinks[0].Name)
		assert.Equal(t, "webhook", sinks[1].Name)
	})

	t.Run("bad expression skips only that sink", func(t *testing.T) {
		sinks, err := BuildNotificationSinks(config.NotifyConfig{
			Enabled: true,
			Slack:   config.SlackNotifyConfig{Enabled: true, WebhookURL: "https://hooks.slack.test/x"},
			Webhook: config.WebhookNotifyConfig{Enabled: true, URL: "https://sms.example.com/send", BodyExpr: "{to: "},
		})
		require.ErrorContains(t, err, "webhook sink")
		require.Len(t, sinks, 1)
		assert.Equal(t, "slack", sinks[0].Name)
	})
}

func TestBuildMetricsClient_Disabled(t *testing.T) {
	assert.Nil(t, BuildMetricsClient(config.MetricsConfig{StatsdAddress: "127.0.0.1:8125"}, discardLogger()))
}

func TestNewServices_RequiresDeps(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)
	_, err = NewServices(&ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
}

func TestRunServices_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := &config.AppConfig{
		Services: "http",
		HTTP:     config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServices(ctx, &RunConfig{Config: cfg, Services: &ServiceContainer{}, Logger: discardLogger()})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
	}
}

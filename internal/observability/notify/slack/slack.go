// Package slack delivers job notifications to a dispatch channel through an incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/dispatch-api/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client delivers job notifications to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	retryLimit int
	client     *http.Client
}

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   fallbackString(strings.TrimSpace(cfg.Username), "dispatch"),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// Send posts a formatted message to Slack.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(c.formatMessage(msg))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	if err := notify.Post(ctx, c.client, notify.Request{
		URL:     c.webhookURL,
		Body:    body,
		Retries: c.retryLimit,
	}); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

func (c *Client) formatMessage(msg notify.Message) map[string]any {
	text := strings.Builder{}
	writeHeader(&text, msg)
	appendField(&text, "To", recipientValue(msg))
	appendField(&text, "Status", strings.ToUpper(msg.JobStatus))
	appendField(&text, "Portal", linkValue(msg.PortalURL, "open job"))
	appendField(&text, "Send", linkValue(msg.Link, "open chat"))
	text.WriteString("```")
	text.WriteString(escapeSlackText(msg.Text))
	text.WriteString("```")

	out := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		out["channel"] = c.channel
	}
	return out
}

func writeHeader(text *strings.Builder, msg notify.Message) {
	switch msg.Kind {
	case notify.KindAssignment:
		text.WriteString("*Job assigned*")
	case notify.KindUpdate:
		text.WriteString("*Job updated*")
	default:
		text.WriteString("*Job notification*")
	}
	if msg.JobID != "" {
		text.WriteString(" `")
		text.WriteString(msg.JobID)
		text.WriteByte('`')
	}
	text.WriteByte('\n')
}

func recipientValue(msg notify.Message) string {
	name := escapeSlackText(strings.TrimSpace(msg.Recipient))
	switch {
	case name != "" && msg.Phone != "":
		return fmt.Sprintf("%s (%s)", name, msg.Phone)
	case name != "":
		return name
	default:
		return msg.Phone
	}
}

func linkValue(link, label string) string {
	if strings.TrimSpace(link) == "" {
		return ""
	}
	return fmt.Sprintf("<%s|%s>", link, label)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

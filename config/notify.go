package config

import (
	"strings"
	"time"
)

const defaultNotifyUsername = "dispatch"

// NotifyConfig controls best-effort delivery of job assignment and update messages.
type NotifyConfig struct {
	Enabled    bool          `env:"ENABLED"     envDefault:"false"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"RETRY_LIMIT" envDefault:"2"`
	// DedupeWindow suppresses identical messages for the same job within the window.
	DedupeWindow time.Duration `env:"DEDUPE_WINDOW" envDefault:"10m"`

	Slack   SlackNotifyConfig   `envPrefix:"SLACK_"`
	Webhook WebhookNotifyConfig `envPrefix:"WEBHOOK_"`
}

// Sanitize normalises notification configuration values.
func (c *NotifyConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.DedupeWindow < 0 {
		c.DedupeWindow = 0
	}

	c.Slack.sanitize()
	c.Webhook.sanitize()

	if !c.Enabled {
		c.Slack.Enabled = false
		c.Webhook.Enabled = false
		return
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		c.Slack.Enabled = false
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		c.Webhook.Enabled = false
	}
}

// SlackNotifyConfig posts dispatch messages into a Slack channel.
type SlackNotifyConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"dispatch"`
}

func (c *SlackNotifyConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	if c.Username = strings.TrimSpace(c.Username); c.Username == "" {
		c.Username = defaultNotifyUsername
	}
}

// WebhookNotifyConfig posts dispatch messages as JSON to an arbitrary receiver
// such as an SMS gateway. BodyExpr, when set, is a JMESPath expression that
// reshapes the default payload before it is sent.
type WebhookNotifyConfig struct {
	Enabled  bool              `env:"ENABLED"   envDefault:"false"`
	URL      string            `env:"URL"`
	Method   string            `env:"METHOD"    envDefault:"POST"`
	Headers  map[string]string `env:"HEADERS"`
	BodyExpr string            `env:"BODY_EXPR"`
	// OkStatus is the exact status code treated as delivered; 0 accepts any 2xx.
	OkStatus int `env:"OK_STATUS" envDefault:"0"`
}

func (c *WebhookNotifyConfig) sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.BodyExpr = strings.TrimSpace(c.BodyExpr)
	if c.Method = strings.ToUpper(strings.TrimSpace(c.Method)); c.Method == "" {
		c.Method = "POST"
	}
}

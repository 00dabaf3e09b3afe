// Package webhook delivers job notifications to an arbitrary JSON endpoint,
// such as an SMS or chat gateway.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmespath-community/go-jmespath"

	"github.com/target/dispatch-api/internal/observability/notify"
)

// Config describes the target endpoint and how to shape the request body.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	// BodyExpr is an optional JMESPath expression evaluated against the JSON
	// form of notify.Message. Its result becomes the request body. When empty
	// the message itself is sent.
	BodyExpr   string
	OkStatus   int
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Sink posts notify.Message values to a webhook.
type Sink struct {
	url      string
	method   string
	headers  map[string]string
	bodyExpr string
	okStatus int
	retries  int
	client   *http.Client
}

// New validates cfg and builds a Sink.
func New(cfg Config) (*Sink, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("webhook url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webhook url %q must be an absolute http(s) url", raw)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("unsupported webhook method %q", cfg.Method)
	}

	expr := strings.TrimSpace(cfg.BodyExpr)
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile webhook body expression: %w", err)
		}
	}
	if cfg.OkStatus != 0 && (cfg.OkStatus < 100 || cfg.OkStatus > 599) {
		return nil, fmt.Errorf("invalid webhook ok status %d", cfg.OkStatus)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		if k = strings.TrimSpace(k); k != "" {
			headers[k] = v
		}
	}

	return &Sink{
		url:      u.String(),
		method:   method,
		headers:  headers,
		bodyExpr: expr,
		okStatus: cfg.OkStatus,
		retries:  max(cfg.RetryLimit, 0),
		client:   client,
	}, nil
}

// Send implements notify.Sink.
func (s *Sink) Send(ctx context.Context, msg notify.Message) error {
	body, err := s.Body(msg)
	if err != nil {
		return err
	}
	if err := notify.Post(ctx, s.client, notify.Request{
		Method:   s.method,
		URL:      s.url,
		Headers:  s.headers,
		Body:     body,
		OKStatus: s.okStatus,
		Retries:  s.retries,
	}); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Body renders the request body for msg.
func (s *Sink) Body(msg notify.Message) ([]byte, error) {
	if s.bodyExpr == "" {
		return json.Marshal(msg)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	shaped, err := jmespath.Search(s.bodyExpr, data)
	if err != nil {
		return nil, fmt.Errorf("evaluate webhook body expression: %w", err)
	}
	if shaped == nil {
		return nil, errors.New("webhook body expression produced no value")
	}
	return json.Marshal(shaped)
}

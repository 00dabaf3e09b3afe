package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// Request describes one HTTP delivery attempt sequence.
type Request struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	OKStatus int // zero accepts any 2xx
	Retries  int
}

// Post sends req with linear backoff between attempts and returns the last error.
func Post(ctx context.Context, client *http.Client, req Request) error {
	if client == nil {
		client = http.DefaultClient
	}
	attempts := max(req.Retries, 0) + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = postOnce(ctx, client, req)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}

func postOnce(ctx context.Context, client *http.Client, req Request) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if statusOK(resp.StatusCode, req.OKStatus) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return fmt.Errorf("unexpected status %s (read body: %w)", resp.Status, readErr)
	}
	return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

func statusOK(got, want int) bool {
	if want != 0 {
		return got == want
	}
	return got >= 200 && got < 300
}

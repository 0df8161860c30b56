package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.Status)
}

// Retryable reports whether the request may succeed when sent again.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// SendOptions tune SendJSON.
type SendOptions struct {
	Headers     map[string]string
	MaxAttempts int           // default 1
	Backoff     time.Duration // doubled after each retry, default 500ms
}

// SendJSON POSTs body as JSON to url and returns the raw response body. It does not
// assume any provider; callers decide the URL and headers. Throttling and 5xx responses
// are retried up to MaxAttempts while ctx allows.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, opts SendOptions, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	attempts := max(opts.MaxAttempts, 1)
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	reqID := uuid.New().String()
	for attempt := 1; ; attempt++ {
		raw, err := sendOnce(ctx, client, url, bs, opts.Headers, reqID, attempt, logger)
		if err == nil {
			return raw, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || !se.Retryable() || attempt >= attempts {
			return raw, err
		}
		logger.Warn("llm.http.retry", "req_id", reqID, "attempt", attempt, "status", se.Status, "backoff_ms", backoff.Milliseconds())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func sendOnce(ctx context.Context, client *http.Client, url string, bs []byte, headers map[string]string, reqID string, attempt int, logger *slog.Logger) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("llm.http.request", "req_id", reqID, "url", url, "attempt", attempt, "content_length", len(bs))

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{Status: resp.StatusCode, Body: raw}
	}
	return raw, nil
}

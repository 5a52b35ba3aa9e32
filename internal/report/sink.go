package report

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
)

// Sink receives the finalized report.
type Sink interface {
	Submit(ctx context.Context, r Report) error
}

// HTTPSink posts the report as JSON to a candidate-intake endpoint.
type HTTPSink struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPSink(url, apiKey string) *HTTPSink {
	return &HTTPSink{url: url, apiKey: apiKey, client: &http.Client{Timeout: 15 * time.Second}}
}

func (h *HTTPSink) Submit(ctx context.Context, r Report) error {
	body, err := sonic.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("x-api-key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("report submission rejected: status %d", resp.StatusCode)
	}
	return nil
}

// SubmitWithRetry retries the sink with exponential backoff. The last
// error comes back once the budget is exhausted; callers log it and
// move on rather than failing the session.
func SubmitWithRetry(ctx context.Context, sink Sink, r Report, maxElapsed time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = maxElapsed

	operation := func() error {
		return sink.Submit(ctx, r)
	}
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

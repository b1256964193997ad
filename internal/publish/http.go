package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// ReadingPath is appended to the configured endpoint.
const ReadingPath = "/api/reading"

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// HTTPPublisher POSTs readings as JSON.
type HTTPPublisher struct {
	url     string
	client  *http.Client
	retries int
	log     *slog.Logger

	// newBackOff builds the retry schedule for one Publish call.
	newBackOff func() backoff.BackOff
}

// NewHTTPPublisher targets endpoint + ReadingPath. Retries is the number of
// extra attempts after a failed POST; zero means a single attempt.
func NewHTTPPublisher(endpoint string, timeout time.Duration, retries int, log *slog.Logger) (*HTTPPublisher, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("endpoint %q: scheme must be http or https", endpoint)
	}
	if retries < 0 {
		retries = 0
	}
	return &HTTPPublisher{
		url:     strings.TrimRight(endpoint, "/") + ReadingPath,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		log:     log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}, nil
}

// URL returns the full reading URL.
func (p *HTTPPublisher) URL() string {
	return p.url
}

// Publish sends r. Failures are returned as *logic.TransportError.
func (p *HTTPPublisher) Publish(ctx context.Context, r logic.Reading) error {
	body, err := FormatPayload(r)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}

	attempt := 0
	op := func() error {
		attempt++
		return p.post(ctx, body)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.retries)), ctx)
	notify := func(err error, wait time.Duration) {
		p.log.Warn("publish attempt failed", "attempt", attempt, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return &logic.TransportError{Op: "publish", Err: err}
	}
	return nil
}

func (p *HTTPPublisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post reading")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	// A rejected payload will be rejected again.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(statusErr)
	}
	return statusErr
}

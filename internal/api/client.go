package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Retry and backoff constants. Only idempotent requests that failed at the
// transport level are retried — a replayed login or logout could double-fire
// on the server.
const (
	maxRetries     = 3
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "gotmail-go/0.1"
)

// DefaultTimeout bounds every request. The transport default of "no
// timeout" would leave a caller suspended forever on a hung connection.
const DefaultTimeout = 30 * time.Second

// TokenSource provides the current session token. Defined at the consumer
// (api package) per Go convention "accept interfaces, return structs".
// The session package provides the real implementation.
type TokenSource interface {
	// Token returns the active session token, or ErrNoToken when the
	// client is not logged in.
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Used for the
// validate-token startup path, where the candidate token comes from the
// persistent store rather than live session state.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoToken
	}

	return string(t), nil
}

// Client is an HTTP client for the GotMail REST service. It handles
// request construction, auth-header attachment, JSON decoding, and error
// classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a GotMail API client. When httpClient is nil, a client
// with DefaultTimeout is used.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// WithTokens returns a copy of the client using the given token source.
// Used by the startup validation path to try a stored token without
// touching live session state.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	clone := *c
	clone.tokens = tokens

	return &clone
}

// FetchData issues a JSON request against the service. payload, when
// non-nil, is serialized as the request body. When auth is true the
// current session token is attached as the Authorization header; with no
// token available the call fails with ErrNoToken before any request is
// sent. The decoded JSON payload of a 2xx response is returned; an empty
// body yields nil.
func (c *Client) FetchData(
	ctx context.Context, method, path string, payload any, auth bool,
) (json.RawMessage, error) {
	var body []byte

	if payload != nil {
		var err error

		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: marshaling request body: %w", err)
		}
	}

	resp, err := c.do(ctx, method, path, "application/json", body, auth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeBody(resp.Body)
}

// do sends one request, retrying transport failures for idempotent
// methods, and classifies non-2xx responses. The caller must close the
// response body on success.
func (c *Client) do(
	ctx context.Context, method, path, contentType string, body []byte, auth bool,
) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, url, contentType, body, auth)
		if err != nil {
			// Context cancellation and missing tokens are not transport errors.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
			}

			if errors.Is(err, ErrNoToken) {
				return nil, err
			}

			if method == http.MethodGet && attempt < maxRetries {
				backoff := calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("api: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
		}

		// 2xx — success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		c.logger.Debug("request rejected",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(
	ctx context.Context, method, url, contentType string, body []byte, auth bool,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if auth {
		tok, tokErr := c.tokens.Token()
		if tokErr != nil {
			return nil, ErrNoToken
		}

		// The service reads the raw token from the Authorization header,
		// without a scheme prefix.
		req.Header.Set("Authorization", tok)
	}

	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

// decodeBody reads a response body and returns it as validated JSON.
// Empty bodies (e.g. 204 responses) yield nil.
func decodeBody(r io.Reader) (json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return raw, nil
}

// decodeInto unmarshals a raw JSON payload into out, classifying failures
// as ErrDecode.
func decodeInto(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return nil
}

// calcBackoff computes exponential backoff with ±25% jitter.
func calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

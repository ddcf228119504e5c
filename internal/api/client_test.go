package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// newTestClient creates a Client pointing at the given server URL with
// instant retry sleeps.
func newTestClient(t *testing.T, url string, tokens TokenSource) *Client {
	t.Helper()

	c := NewClient(url, http.DefaultClient, tokens, slog.Default())
	c.sleepFunc = noopSleep

	return c
}

func TestFetchData_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	raw, err := client.FetchData(context.Background(), http.MethodPost, "/x", map[string]string{"key": "value"}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestFetchData_AttachesAuthHeader(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok123"))

	_, err := client.FetchData(context.Background(), http.MethodGet, "/x", nil, true)
	require.NoError(t, err)
	// The service reads the raw token, no "Bearer " prefix.
	assert.Equal(t, "tok123", gotAuth)
}

func TestFetchData_NoAuthHeaderWhenUnauthenticated(t *testing.T) {
	var sawAuth bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok123"))

	_, err := client.FetchData(context.Background(), http.MethodGet, "/x", nil, false)
	require.NoError(t, err)
	assert.False(t, sawAuth)
}

func TestFetchData_NoTokenFailsBeforeRequest(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken(""))

	_, err := client.FetchData(context.Background(), http.MethodGet, "/x", nil, true)
	require.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, calls.Load(), "no request should be sent without a token")
}

func TestFetchData_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"server error", http.StatusInternalServerError, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL, StaticToken("tok"))

			_, err := client.FetchData(context.Background(), http.MethodPost, "/x", nil, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Body, "nope")
		})
	}
}

func TestFetchData_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // connection refused from here on

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	_, err := client.FetchData(context.Background(), http.MethodPost, "/x", nil, false)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestFetchData_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	_, err := client.FetchData(context.Background(), http.MethodGet, "/x", nil, false)
	require.ErrorIs(t, err, ErrDecode)
}

func TestFetchData_EmptyBodyYieldsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	raw, err := client.FetchData(context.Background(), http.MethodGet, "/x", nil, false)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDo_RetriesGetOnTransportFailure(t *testing.T) {
	// A server that drops the first connection then succeeds would need
	// raw socket control; instead verify the other half of the contract —
	// POSTs are never retried on transport failure.
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	var sleeps atomic.Int32

	client := newTestClient(t, srv.URL, StaticToken("tok"))
	client.sleepFunc = func(_ context.Context, _ time.Duration) error {
		sleeps.Add(1)
		return nil
	}

	_, err := client.FetchData(context.Background(), http.MethodPost, "/x", nil, false)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Zero(t, sleeps.Load(), "POST must not be retried")

	_, err = client.FetchData(context.Background(), http.MethodGet, "/x", nil, false)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(maxRetries), sleeps.Load(), "GET should retry with backoff")
}

func TestCalcBackoff_CapsAtMax(t *testing.T) {
	backoff := calcBackoff(10)
	assert.LessOrEqual(t, backoff, time.Duration(float64(maxBackoff)*(1+jitterFraction))+time.Second)
	assert.Positive(t, backoff)
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

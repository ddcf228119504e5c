package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoReply_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/settings/auto-reply", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"auto_reply_enabled":false}`))
		case http.MethodPut:
			var body AutoReplySettings
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.True(t, body.Enabled)
			_, _ = w.Write([]byte(`{"auto_reply_enabled":true,"auto_reply_message":"away"}`))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))
	ctx := context.Background()

	current, err := client.AutoReply(ctx)
	require.NoError(t, err)
	assert.False(t, current.Enabled)

	updated, err := client.UpdateAutoReply(ctx, AutoReplySettings{Enabled: true, Message: "away"})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, "away", updated.Message)
}

func TestUpdateAutoReply_InvertedRangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("request must not be sent")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	_, err := client.UpdateAutoReply(context.Background(), AutoReplySettings{
		Enabled:   true,
		StartDate: "2026-09-01T00:00:00Z",
		EndDate:   "2026-08-01T00:00:00Z",
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDarkMode_SetAndGet(t *testing.T) {
	dark := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/settings/dark-mode", r.URL.Path)

		if r.Method == http.MethodPatch {
			var body map[string]bool
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			dark = body["dark_mode"]
		}

		require.NoError(t, json.NewEncoder(w).Encode(map[string]bool{"dark_mode": dark}))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))
	ctx := context.Background()

	got, err := client.SetDarkMode(ctx, true)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = client.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestFont_Update(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/settings/font", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)

		_, _ = w.Write([]byte(`{"font_family":"Inter","font_size":14}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, StaticToken("tok"))

	updated, err := client.UpdateFont(context.Background(), FontSettings{FontFamily: "Inter", FontSize: 14})
	require.NoError(t, err)
	assert.Equal(t, "Inter", updated.FontFamily)
	assert.Equal(t, 14, updated.FontSize)
}

func TestValidateDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{"both empty", "", "", false},
		{"start only", "2026-08-01T00:00:00Z", "", false},
		{"ordered", "2026-08-01T00:00:00Z", "2026-09-01T00:00:00Z", false},
		{"equal", "2026-08-01T00:00:00Z", "2026-08-01T00:00:00Z", false},
		{"inverted", "2026-09-01T00:00:00Z", "2026-08-01T00:00:00Z", true},
		{"garbage start", "yesterday", "2026-08-01T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Settings endpoint paths.
const (
	pathAutoReply = "/user/settings/auto-reply"
	pathFont      = "/user/settings/font"
	pathDarkMode  = "/user/settings/dark-mode"
)

// AutoReplySettings controls the out-of-office auto-responder.
type AutoReplySettings struct {
	Enabled   bool   `json:"auto_reply_enabled"`
	Message   string `json:"auto_reply_message,omitempty"`
	StartDate string `json:"auto_reply_start_date,omitempty"` // RFC 3339
	EndDate   string `json:"auto_reply_end_date,omitempty"`   // RFC 3339
}

// FontSettings controls message rendering preferences.
type FontSettings struct {
	FontFamily string `json:"font_family,omitempty"`
	FontSize   int    `json:"font_size,omitempty"`
}

// darkModeResponse is the wire shape of the dark-mode endpoint.
type darkModeResponse struct {
	DarkMode bool `json:"dark_mode"`
}

// AutoReply fetches the authenticated user's auto-reply settings.
func (c *Client) AutoReply(ctx context.Context) (*AutoReplySettings, error) {
	raw, err := c.FetchData(ctx, http.MethodGet, pathAutoReply, nil, true)
	if err != nil {
		return nil, err
	}

	var settings AutoReplySettings
	if err := decodeInto(raw, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// UpdateAutoReply replaces the auto-reply settings. The date range is
// validated client-side because the service rejects inverted ranges with
// an unhelpful 400.
func (c *Client) UpdateAutoReply(ctx context.Context, settings AutoReplySettings) (*AutoReplySettings, error) {
	if err := validateDateRange(settings.StartDate, settings.EndDate); err != nil {
		return nil, err
	}

	raw, err := c.FetchData(ctx, http.MethodPut, pathAutoReply, settings, true)
	if err != nil {
		return nil, err
	}

	var updated AutoReplySettings
	if err := decodeInto(raw, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// Font fetches the authenticated user's font settings.
func (c *Client) Font(ctx context.Context) (*FontSettings, error) {
	raw, err := c.FetchData(ctx, http.MethodGet, pathFont, nil, true)
	if err != nil {
		return nil, err
	}

	var settings FontSettings
	if err := decodeInto(raw, &settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// UpdateFont replaces the font settings.
func (c *Client) UpdateFont(ctx context.Context, settings FontSettings) (*FontSettings, error) {
	raw, err := c.FetchData(ctx, http.MethodPut, pathFont, settings, true)
	if err != nil {
		return nil, err
	}

	var updated FontSettings
	if err := decodeInto(raw, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// DarkMode fetches the current dark mode preference.
func (c *Client) DarkMode(ctx context.Context) (bool, error) {
	raw, err := c.FetchData(ctx, http.MethodGet, pathDarkMode, nil, true)
	if err != nil {
		return false, err
	}

	var resp darkModeResponse
	if err := decodeInto(raw, &resp); err != nil {
		return false, err
	}

	return resp.DarkMode, nil
}

// SetDarkMode sets the dark mode preference.
func (c *Client) SetDarkMode(ctx context.Context, enabled bool) (bool, error) {
	payload := map[string]bool{"dark_mode": enabled}

	raw, err := c.FetchData(ctx, http.MethodPatch, pathDarkMode, payload, true)
	if err != nil {
		return false, err
	}

	var resp darkModeResponse
	if err := decodeInto(raw, &resp); err != nil {
		return false, err
	}

	return resp.DarkMode, nil
}

// validateDateRange checks that start is not after end. Empty values are
// allowed — the service fills defaults.
func validateDateRange(start, end string) error {
	if start == "" || end == "" {
		return nil
	}

	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return fmt.Errorf("%w: invalid start date %q", ErrInvalidArgument, start)
	}

	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return fmt.Errorf("%w: invalid end date %q", ErrInvalidArgument, end)
	}

	if startTime.After(endTime) {
		return fmt.Errorf("%w: start date after end date", ErrInvalidArgument)
	}

	return nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Endpoint paths on the GotMail service.
const (
	pathLogin         = "/auth/login"
	pathLogout        = "/auth/logout"
	pathRegister      = "/auth/register"
	pathValidateToken = "/auth/validate-token"
	pathProfile       = "/user/profile"
)

// ProfilePictureField is the multipart field name the service expects for
// the profile picture binary.
const ProfilePictureField = "profile_picture"

// Login exchanges credentials for an account and a session token. The
// call is unauthenticated. deviceID identifies this installation and may
// be empty.
func (c *Client) Login(ctx context.Context, phoneNumber, password, deviceID string) (*LoginResult, error) {
	payload := map[string]string{
		"phone_number": phoneNumber,
		"password":     password,
	}
	if deviceID != "" {
		payload["device_id"] = deviceID
	}

	raw, err := c.FetchData(ctx, http.MethodPost, pathLogin, payload, false)
	if err != nil {
		return nil, err
	}

	return decodeLoginResult(raw, true)
}

// Logout invalidates the server-side session for the given token. The
// token travels in the request body — by the time this is called the
// caller may already have dropped it from its auth state.
func (c *Client) Logout(ctx context.Context, token string) error {
	payload := map[string]string{"session_token": token}

	_, err := c.FetchData(ctx, http.MethodPost, pathLogout, payload, false)

	return err
}

// Register creates a new account. No session is created — registration
// is not implicit login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	raw, err := c.FetchData(ctx, http.MethodPost, pathRegister, req, false)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := decodeInto(raw, &account); err != nil {
		return nil, err
	}

	return &account, nil
}

// ValidateToken asks the service whether the given token still maps to a
// live session. The envelope is unauthenticated; the candidate token is
// carried in the body.
func (c *Client) ValidateToken(ctx context.Context, token string) (*Account, error) {
	payload := map[string]string{"session_token": token}

	raw, err := c.FetchData(ctx, http.MethodPost, pathValidateToken, payload, false)
	if err != nil {
		return nil, err
	}

	result, err := decodeLoginResult(raw, false)
	if err != nil {
		return nil, err
	}

	return &result.Account, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	raw, err := c.FetchData(ctx, http.MethodGet, pathProfile, nil, true)
	if err != nil {
		return nil, err
	}

	var profile UserProfile
	if err := decodeInto(raw, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// UpdateProfile sends the non-empty scalar fields of update as a JSON PUT.
// Fields left empty are omitted so they do not overwrite existing
// server-side values.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*ProfileResult, error) {
	raw, err := c.FetchData(ctx, http.MethodPut, pathProfile, update.fields(), true)
	if err != nil {
		return nil, err
	}

	return c.decodeProfileResult(raw)
}

// UploadProfilePicture sends the scalar fields and the picture binary as
// one multipart PUT against the profile endpoint.
func (c *Client) UploadProfilePicture(
	ctx context.Context, update ProfileUpdate, picture BinarySource,
) (*ProfileResult, error) {
	raw, err := c.UploadImage(ctx, http.MethodPut, pathProfile, update.fields(), picture, ProfilePictureField)
	if err != nil {
		return nil, err
	}

	return c.decodeProfileResult(raw)
}

// decodeLoginResult parses the login/validate response shape
// {"user": ..., "session_token": ...}. requireToken distinguishes login
// (token mandatory) from validation (token already known to the caller).
func decodeLoginResult(raw json.RawMessage, requireToken bool) (*LoginResult, error) {
	var resp loginResponse
	if err := decodeInto(raw, &resp); err != nil {
		return nil, err
	}

	if resp.User == nil {
		return nil, fmt.Errorf("%w: response missing user object", ErrDecode)
	}

	if requireToken && resp.SessionToken == "" {
		return nil, fmt.Errorf("%w: response missing session_token", ErrDecode)
	}

	return &LoginResult{Account: *resp.User, Token: resp.SessionToken}, nil
}

// profileUpdateResponse covers the shapes the profile endpoint is known
// to return: profile nested under "profile", under "user_profile", or
// flattened into the top-level object.
type profileUpdateResponse struct {
	User        *Account     `json:"user"`
	Profile     *UserProfile `json:"profile"`
	UserProfile *UserProfile `json:"user_profile"`
}

// decodeProfileResult normalizes the profile update response. The
// non-canonical nestings look like a backend inconsistency; they are
// logged so the divergence stays visible.
func (c *Client) decodeProfileResult(raw json.RawMessage) (*ProfileResult, error) {
	var resp profileUpdateResponse
	if err := decodeInto(raw, &resp); err != nil {
		return nil, err
	}

	result := &ProfileResult{}
	if resp.User != nil {
		result.Account = *resp.User
	}

	switch {
	case resp.Profile != nil:
		result.Profile = *resp.Profile
	case resp.UserProfile != nil:
		c.logger.Warn("profile response used non-canonical nesting",
			slog.String("shape", "user_profile"),
		)

		result.Profile = *resp.UserProfile
	default:
		// Flattened: profile (and possibly account) fields live at the
		// top level.
		var flat UserProfile
		if err := decodeInto(raw, &flat); err != nil {
			return nil, err
		}

		c.logger.Warn("profile response used non-canonical nesting",
			slog.String("shape", "flattened"),
		)

		result.Profile = flat

		if resp.User == nil {
			if err := decodeInto(raw, &result.Account); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

package session

import (
	"context"
	"log/slog"

	"github.com/gotmail/gotmail-go/internal/api"
)

// metaDeviceID is the token store metadata key for the installation ID.
const metaDeviceID = "device_id"

// Login exchanges credentials for a session. On success the returned
// token is persisted to the token store, the in-memory account and token
// are replaced, and subscribers are notified — in that order, so a
// subscriber reacting to the new state can already rely on the persisted
// token. On any failure the session is left unchanged and the pipeline
// error is returned as-is.
func (s *Session) Login(ctx context.Context, phoneNumber, password string) error {
	result, err := s.api.Login(ctx, phoneNumber, password, s.deviceID)
	if err != nil {
		return err
	}

	meta := s.store.Meta()
	if s.deviceID != "" {
		if meta == nil {
			meta = map[string]string{}
		}

		meta[metaDeviceID] = s.deviceID
	}

	if err := s.store.Save(result.Token, meta); err != nil {
		// State stays untouched: a session the store cannot persist would
		// silently evaporate on restart.
		return err
	}

	account := result.Account

	s.mu.Lock()
	s.account = &account
	s.token = result.Token
	s.notifyLocked()
	s.mu.Unlock()

	s.cacheSnapshot(ctx, &account, nil)

	s.logger.Info("logged in", slog.String("account_id", account.ID))

	return nil
}

// Logout ends the session. The remote logout call is best-effort — a
// network failure is logged and swallowed, never propagated — and the
// local session is cleared unconditionally: account, profile, and token
// are dropped, the persisted token is deleted, and subscribers are
// notified. The returned error is non-nil only when the persisted token
// could not be removed.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		token = s.store.Load()
	}

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.Warn("remote logout failed, clearing local session anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.Lock()
	s.account = nil
	s.profile = nil
	s.token = ""
	s.notifyLocked()
	s.mu.Unlock()

	s.cacheClear(ctx)

	if err := s.store.Remove(); err != nil {
		return err
	}

	s.logger.Info("logged out")

	return nil
}

// Register creates a new account. Registration is not implicit login: the
// session state is never mutated, and pipeline errors propagate as-is.
func (s *Session) Register(ctx context.Context, req api.RegisterRequest) (*api.Account, error) {
	account, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered account", slog.String("account_id", account.ID))

	return account, nil
}

// IsSessionValid is the startup/resume check. With no persisted token it
// returns false without a network call. Otherwise it validates the token
// against the service; on success the account and token are adopted into
// the session (with notification) and the result is true. Any failure —
// network, auth rejection, decode — yields false with nothing touched:
// the failure may be transient (offline), so neither the persisted token
// nor the in-memory state is cleared.
//
// The validation request is single-flight: concurrent callers share one
// outstanding request (and the first caller's context) rather than
// issuing duplicates.
func (s *Session) IsSessionValid(ctx context.Context) bool {
	valid, _, _ := s.validate.Do("validate", func() (any, error) {
		return s.validateOnce(ctx), nil
	})

	ok, _ := valid.(bool)

	return ok
}

func (s *Session) validateOnce(ctx context.Context) bool {
	token := s.store.Load()
	if token == "" {
		return false
	}

	account, err := s.api.ValidateToken(ctx, token)
	if err != nil {
		s.logger.Warn("session validation failed",
			slog.String("error", err.Error()),
		)

		return false
	}

	s.mu.Lock()
	s.account = account
	s.token = token
	s.notifyLocked()
	s.mu.Unlock()

	s.cacheSnapshot(ctx, account, nil)

	s.logger.Info("session validated", slog.String("account_id", account.ID))

	return true
}

// WatchStore observes the persisted token for external changes (another
// process logging out or rotating the token) until ctx is canceled. When
// the token disappears while this session is authenticated, the in-memory
// state is cleared and subscribers are notified.
func (s *Session) WatchStore(ctx context.Context) error {
	return s.store.Watch(ctx, func() {
		if s.store.Load() != "" {
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.account == nil && s.token == "" {
			return
		}

		s.logger.Info("persisted token removed externally, invalidating session")

		s.account = nil
		s.profile = nil
		s.token = ""
		s.notifyLocked()
	})
}

// Package session holds the client's notion of "who is logged in": the
// current account, profile, and session token, persisted token handling,
// and subscriber notification on every state change. A Session is
// constructed once at startup and passed explicitly to anything that
// needs it — there is no package-level singleton.
package session

import (
	"context"
	"log/slog"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"golang.org/x/sync/singleflight"

	"github.com/gotmail/gotmail-go/internal/api"
	"github.com/gotmail/gotmail-go/internal/cache"
	"github.com/gotmail/gotmail-go/internal/tokenstore"
)

// topicChanged is the event bus topic published after every state
// mutation.
const topicChanged = "session:changed"

// State is an immutable snapshot of the session aggregate, delivered to
// subscribers after each mutation. Account and Token are either both set
// or both absent; Profile may be absent even when authenticated (it is
// fetched lazily).
type State struct {
	Account *api.Account
	Profile *api.UserProfile
	Token   string
}

// Authenticated reports whether the snapshot represents a live session.
func (s State) Authenticated() bool {
	return s.Account != nil && s.Token != ""
}

// Session is the observable session aggregate. All mutations are applied
// under one mutex and followed by exactly one synchronous subscriber
// notification, so a subscriber never observes a partially-updated
// aggregate.
type Session struct {
	api    *api.Client
	store  *tokenstore.Store
	cache  *cache.Store
	logger *slog.Logger

	deviceID string

	bus      evbus.Bus
	validate singleflight.Group

	mu      sync.Mutex
	account *api.Account
	profile *api.UserProfile
	token   string
}

// Option configures a Session.
type Option func(*Session)

// WithCache enables best-effort offline snapshots of the account and
// profile. Cache failures are logged, never surfaced.
func WithCache(c *cache.Store) Option {
	return func(s *Session) { s.cache = c }
}

// WithDeviceID sets the installation identifier sent with login requests.
func WithDeviceID(id string) Option {
	return func(s *Session) { s.deviceID = id }
}

// New creates an empty (unauthenticated) Session. The given API client is
// rebound to use this session as its token source, so authenticated calls
// automatically carry the current token.
func New(client *api.Client, store *tokenstore.Store, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		store:  store,
		logger: logger,
		bus:    evbus.New(),
	}
	s.api = client.WithTokens(s)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Token implements api.TokenSource: authenticated pipeline calls read the
// in-memory token through here.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", api.ErrNoToken
	}

	return s.token, nil
}

// API returns the session-bound API client. Authenticated calls made
// through it carry the current session token.
func (s *Session) API() *api.Client {
	return s.api
}

// Current returns a snapshot of the session state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Subscribe registers fn to be called synchronously after every state
// mutation with the post-mutation snapshot. The callback runs with the
// session lock held; it must not call back into Session methods. The
// snapshot carries everything a subscriber needs.
func (s *Session) Subscribe(fn func(State)) error {
	return s.bus.Subscribe(topicChanged, fn)
}

// Unsubscribe removes a previously registered subscriber. The fn value
// must be the same one passed to Subscribe.
func (s *Session) Unsubscribe(fn func(State)) error {
	return s.bus.Unsubscribe(topicChanged, fn)
}

// snapshotLocked builds a State from the current fields. Caller holds mu.
// Account and profile values are copied so subscribers cannot alias
// session internals.
func (s *Session) snapshotLocked() State {
	state := State{Token: s.token}

	if s.account != nil {
		account := *s.account
		state.Account = &account
	}

	if s.profile != nil {
		profile := *s.profile
		state.Profile = &profile
	}

	return state
}

// notifyLocked publishes the current snapshot to subscribers. Caller
// holds mu; the bus delivers synchronously, so the mutation and its
// notification are atomic with respect to other mutations.
func (s *Session) notifyLocked() {
	s.bus.Publish(topicChanged, s.snapshotLocked())
}

// cacheSnapshot writes the current account/profile to the offline cache,
// best-effort.
func (s *Session) cacheSnapshot(ctx context.Context, account *api.Account, profile *api.UserProfile) {
	if s.cache == nil {
		return
	}

	if err := s.cache.SaveSnapshot(ctx, account, profile); err != nil {
		s.logger.Warn("caching session snapshot failed", slog.String("error", err.Error()))
	}
}

// cacheClear drops the offline cache, best-effort.
func (s *Session) cacheClear(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("clearing session cache failed", slog.String("error", err.Error()))
	}
}

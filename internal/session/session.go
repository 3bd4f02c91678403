// ABOUTME: Observable session state: the bearer token and the cached user profile
// ABOUTME: Keeps the in-memory token and the persisted credential in step

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/credstore"
)

var (
	// ErrEmptyToken is returned by SetToken for an empty credential
	ErrEmptyToken = errors.New("token must not be empty")
	// ErrUnauthenticated is returned by operations that need a token while anonymous
	ErrUnauthenticated = client.ErrUnauthenticated
	// ErrNoProfile is returned by UpdatePoints before any profile was synced
	ErrNoProfile = errors.New("no user profile cached: sync first")
)

// Fetcher loads the profile of the user a token belongs to.
// *client.Client satisfies it.
type Fetcher interface {
	FetchCurrentUser(ctx context.Context, token string) (client.UserProfile, error)
}

// UnauthorizedPolicy decides what SyncUserData does when the backend
// rejects the stored credential
type UnauthorizedPolicy int

const (
	// KeepSession leaves the token in place; the failure is only logged
	KeepSession UnauthorizedPolicy = iota
	// ClearSession logs out when the backend answers 401/403
	ClearSession
)

func (p UnauthorizedPolicy) String() string {
	if p == ClearSession {
		return "clear"
	}
	return "keep"
}

// State is a snapshot handed to observers
type State struct {
	Token         string
	User          client.UserProfile
	Authenticated bool
}

// Store is the single source of truth for authentication state.
// It is safe for concurrent use.
//
// SetToken and Clear write the credential store while holding the state
// lock, so the persisted and in-memory token never disagree. With the redis
// backend that is a network round trip, and Current, User and UpdatePoints
// wait for it.
type Store struct {
	creds   credstore.Store
	fetcher Fetcher
	logger  zerolog.Logger
	policy  UnauthorizedPolicy

	mu    sync.Mutex
	token string
	user  client.UserProfile
	// generation changes on every SetToken and Clear; a sync commits only
	// if it still matches the value captured when the fetch started
	generation uint64
	// seq orders snapshots; observers never receive one older than the last
	seq uint64

	obsMu       sync.Mutex
	observers   map[int]func(State)
	nextObs     int
	queuedSeq   uint64
	pending     *State
	dispatching bool
}

// snapshot is a State tagged with the mutation that produced it
type snapshot struct {
	state State
	seq   uint64
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for sync failures
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithUnauthorizedPolicy sets how SyncUserData reacts to a rejected token
func WithUnauthorizedPolicy(p UnauthorizedPolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// New creates a Store and loads any persisted token. The profile always
// starts empty and must be synced explicitly.
func New(ctx context.Context, creds credstore.Store, fetcher Fetcher, opts ...Option) (*Store, error) {
	s := &Store{
		creds:     creds,
		fetcher:   fetcher,
		logger:    log.Logger,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, ok, err := creds.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if ok {
		s.token = token
	}
	return s, nil
}

// SetToken persists token and makes it the current credential. It does not
// fetch a profile. A profile cached under a different token is dropped.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	if err := s.creds.Set(ctx, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist credential: %w", err)
	}
	if token != s.token {
		s.user = nil
	}
	s.token = token
	s.generation++
	st := s.publishLocked()
	s.mu.Unlock()

	s.logger.Debug().Msg("session token set")
	s.notify(st)
	return nil
}

// Clear removes the persisted credential and resets token and profile.
// Clearing an anonymous session is a no-op with the same resulting state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	st, err := s.clearLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug().Msg("session cleared")
	s.notify(st)
	return nil
}

func (s *Store) clearLocked(ctx context.Context) (snapshot, error) {
	if err := s.creds.Delete(ctx); err != nil {
		return snapshot{}, fmt.Errorf("remove credential: %w", err)
	}
	s.token = ""
	s.user = nil
	s.generation++
	return s.publishLocked(), nil
}

// IsAuthenticated reports whether a persisted credential exists. It reads the
// credential store on every call so other processes sharing it are observed.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := s.creds.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot read credential store")
		return false
	}
	return ok
}

// Token returns the persisted credential, or "" when there is none.
// Store implements client.TokenSource.
func (s *Store) Token(ctx context.Context) string {
	token, ok, err := s.creds.Get(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot read credential store")
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// SyncUserData refetches the current user's profile. On success the cached
// profile is replaced and returned with ok=true. On any failure the cached
// profile is left untouched, the failure is logged and ok is false.
// A result that arrives after SetToken or Clear has run is discarded.
func (s *Store) SyncUserData(ctx context.Context) (client.UserProfile, bool) {
	s.mu.Lock()
	token := s.token
	gen := s.generation
	s.mu.Unlock()

	if token == "" {
		s.logger.Debug().Err(ErrUnauthenticated).Msg("user sync skipped")
		return nil, false
	}

	user, err := s.fetcher.FetchCurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", client.KindOf(err).String()).Msg("user sync failed")
		if s.policy == ClearSession && errors.Is(err, client.ErrUnauthorized) {
			s.clearIfCurrent(ctx, gen)
		}
		return nil, false
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding stale user sync result")
		return nil, false
	}
	s.user = user.Clone()
	st := s.publishLocked()
	s.mu.Unlock()

	s.notify(st)
	return user.Clone(), true
}

// clearIfCurrent logs out unless the session changed since gen was captured.
// The check and the clear share one critical section so a token set in
// between survives.
func (s *Store) clearIfCurrent(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Msg("ignoring rejection of a replaced credential")
		return
	}
	st, err := s.clearLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to clear rejected credential")
		return
	}

	s.logger.Info().Msg("credential rejected by backend, logged out")
	s.notify(st)
}

// UpdatePoints merges points into the cached profile without contacting the
// backend. Last write wins.
func (s *Store) UpdatePoints(points int) error {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return ErrUnauthenticated
	}
	if s.user == nil {
		s.mu.Unlock()
		return ErrNoProfile
	}
	s.user = s.user.WithPoints(points)
	st := s.publishLocked()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

// Current returns a snapshot of the in-memory state
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// User returns a copy of the cached profile, or nil
func (s *Store) User() client.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Subscribe registers fn to receive the latest state after every mutation.
// Calls are never concurrent and never go back to an older state. When
// mutations race, intermediate states may be skipped and the newest one can
// be delivered on the goroutine already notifying. The returned func removes
// the subscription.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() State {
	return State{
		Token:         s.token,
		User:          s.user.Clone(),
		Authenticated: s.token != "",
	}
}

func (s *Store) publishLocked() snapshot {
	s.seq++
	return snapshot{state: s.snapshotLocked(), seq: s.seq}
}

// notify runs outside s.mu so observers may call back into the store.
// Only one goroutine dispatches at a time; others leave their snapshot in
// the pending slot, where a newer one replaces an older one.
func (s *Store) notify(snap snapshot) {
	s.obsMu.Lock()
	if snap.seq <= s.queuedSeq {
		s.obsMu.Unlock()
		return
	}
	s.queuedSeq = snap.seq
	st := snap.state
	s.pending = &st
	if s.dispatching {
		s.obsMu.Unlock()
		return
	}
	s.dispatching = true

	for s.pending != nil {
		next := *s.pending
		s.pending = nil
		fns := make([]func(State), 0, len(s.observers))
		for _, fn := range s.observers {
			fns = append(fns, fn)
		}
		s.obsMu.Unlock()

		for _, fn := range fns {
			fn(next)
		}
		s.obsMu.Lock()
	}
	s.dispatching = false
	s.obsMu.Unlock()
}

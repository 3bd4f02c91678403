// ABOUTME: Tests for the session store state machine and its sync guard
// ABOUTME: Covers login/logout, the clear-during-sync race, points merge and stub backends

package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/credstore"
	"github.com/shelfhq/shelf/internal/session"
)

type staticFetcher struct {
	user  client.UserProfile
	err   error
	calls int32
}

func (f *staticFetcher) FetchCurrentUser(ctx context.Context, token string) (client.UserProfile, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.user.Clone(), nil
}

// blockingFetcher holds every fetch until release is closed
type blockingFetcher struct {
	started chan string
	release chan struct{}
	user    client.UserProfile
}

func newBlockingFetcher(user client.UserProfile) *blockingFetcher {
	return &blockingFetcher{
		started: make(chan string, 1),
		release: make(chan struct{}),
		user:    user,
	}
}

func (f *blockingFetcher) FetchCurrentUser(ctx context.Context, token string) (client.UserProfile, error) {
	f.started <- token
	<-f.release
	return f.user.Clone(), nil
}

type syncResult struct {
	user client.UserProfile
	ok   bool
}

func newStore(t *testing.T, f session.Fetcher, opts ...session.Option) (*session.Store, credstore.Store) {
	t.Helper()
	creds := credstore.NewMemoryStore()
	opts = append([]session.Option{session.WithLogger(zerolog.Nop())}, opts...)
	s, err := session.New(context.Background(), creds, f, opts...)
	require.NoError(t, err)
	return s, creds
}

func TestNew_LoadsPersistedTokenWithoutProfile(t *testing.T) {
	ctx := context.Background()
	creds := credstore.NewMemoryStore()
	require.NoError(t, creds.Set(ctx, "persisted"))

	s, err := session.New(ctx, creds, &staticFetcher{}, session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	st := s.Current()
	require.Equal(t, "persisted", st.Token)
	require.True(t, st.Authenticated)
	require.Nil(t, st.User)
	require.True(t, s.IsAuthenticated(ctx))
}

func TestSetToken_ThenIsAuthenticated(t *testing.T) {
	ctx := context.Background()
	s, creds := newStore(t, &staticFetcher{})

	for _, tok := range []string{"a", "b", "a"} {
		require.NoError(t, s.SetToken(ctx, tok))
		require.True(t, s.IsAuthenticated(ctx))

		stored, ok, err := creds.Get(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, tok, stored)
		require.Equal(t, tok, s.Current().Token)
	}
}

func TestSetToken_DoesNotFetch(t *testing.T) {
	f := &staticFetcher{user: client.UserProfile{"points": 1.0}}
	s, _ := newStore(t, f)

	require.NoError(t, s.SetToken(context.Background(), "tok"))
	require.Zero(t, atomic.LoadInt32(&f.calls))
	require.Nil(t, s.User())
}

func TestSetToken_RejectsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{})

	require.ErrorIs(t, s.SetToken(ctx, ""), session.ErrEmptyToken)
	require.False(t, s.IsAuthenticated(ctx))
}

func TestClear_ResetsEverything(t *testing.T) {
	ctx := context.Background()
	s, creds := newStore(t, &staticFetcher{user: client.UserProfile{"points": 10.0}})

	require.NoError(t, s.SetToken(ctx, "tok"))
	_, ok := s.SyncUserData(ctx)
	require.True(t, ok)

	require.NoError(t, s.Clear(ctx))
	require.False(t, s.IsAuthenticated(ctx))
	require.Nil(t, s.User())
	require.Equal(t, session.State{}, s.Current())

	_, ok, err := creds.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClear_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{})
	require.NoError(t, s.SetToken(ctx, "tok"))

	require.NoError(t, s.Clear(ctx))
	once := s.Current()
	require.NoError(t, s.Clear(ctx))
	require.Equal(t, once, s.Current())
	require.False(t, s.IsAuthenticated(ctx))
}

func TestIsAuthenticated_ReadsDurableStore(t *testing.T) {
	ctx := context.Background()
	s, creds := newStore(t, &staticFetcher{})
	require.NoError(t, s.SetToken(ctx, "tok"))

	// another process logs out through the shared store
	require.NoError(t, creds.Delete(ctx))
	require.False(t, s.IsAuthenticated(ctx))
	require.Empty(t, s.Token(ctx))
}

func TestSyncUserData_Anonymous(t *testing.T) {
	f := &staticFetcher{user: client.UserProfile{"points": 1.0}}
	s, _ := newStore(t, f)

	user, ok := s.SyncUserData(context.Background())
	require.False(t, ok)
	require.Nil(t, user)
	require.Zero(t, atomic.LoadInt32(&f.calls))
}

func TestSyncUserData_FailureKeepsCachedProfile(t *testing.T) {
	ctx := context.Background()
	f := &staticFetcher{user: client.UserProfile{"points": 5.0}}
	s, _ := newStore(t, f)
	require.NoError(t, s.SetToken(ctx, "tok"))
	_, ok := s.SyncUserData(ctx)
	require.True(t, ok)

	f.err = &client.Error{Kind: client.KindNetwork, Message: "cannot connect"}
	user, ok := s.SyncUserData(ctx)
	require.False(t, ok)
	require.Nil(t, user)

	points, _ := s.User().Points()
	require.Equal(t, 5, points)
	require.True(t, s.Current().Authenticated)
}

func TestSyncUserData_ClearDuringFetchDiscardsResult(t *testing.T) {
	ctx := context.Background()
	f := newBlockingFetcher(client.UserProfile{"points": 42.0})
	s, _ := newStore(t, f)
	require.NoError(t, s.SetToken(ctx, "A"))

	done := make(chan syncResult, 1)
	go func() {
		u, ok := s.SyncUserData(ctx)
		done <- syncResult{u, ok}
	}()

	require.Equal(t, "A", <-f.started)
	require.NoError(t, s.Clear(ctx))
	close(f.release)

	res := <-done
	require.False(t, res.ok)
	require.Nil(t, res.user)
	require.Equal(t, session.State{}, s.Current())
	require.False(t, s.IsAuthenticated(ctx))
}

func TestSyncUserData_ReloginDuringFetchDiscardsResult(t *testing.T) {
	ctx := context.Background()
	f := newBlockingFetcher(client.UserProfile{"username": "old"})
	s, _ := newStore(t, f)
	require.NoError(t, s.SetToken(ctx, "A"))

	done := make(chan syncResult, 1)
	go func() {
		u, ok := s.SyncUserData(ctx)
		done <- syncResult{u, ok}
	}()

	<-f.started
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.SetToken(ctx, "A"))
	close(f.release)

	res := <-done
	require.False(t, res.ok)
	require.Nil(t, s.User())
	require.Equal(t, "A", s.Current().Token)
}

func TestUpdatePoints_MergesIntoProfile(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{user: client.UserProfile{"points": 100.0, "name": "x"}})
	require.NoError(t, s.SetToken(ctx, "tok"))
	_, ok := s.SyncUserData(ctx)
	require.True(t, ok)

	require.NoError(t, s.UpdatePoints(150))

	user := s.User()
	points, ok := user.Points()
	require.True(t, ok)
	require.Equal(t, 150, points)
	require.Equal(t, "x", user["name"])
	require.Len(t, user, 2)
}

func TestUpdatePoints_RejectedWhileAnonymous(t *testing.T) {
	s, _ := newStore(t, &staticFetcher{})
	before := s.Current()

	err := s.UpdatePoints(150)
	require.ErrorIs(t, err, session.ErrUnauthenticated)
	require.True(t, errors.Is(err, client.ErrUnauthenticated))
	require.Equal(t, before, s.Current())
}

func TestUpdatePoints_RejectedWithoutProfile(t *testing.T) {
	s, _ := newStore(t, &staticFetcher{})
	require.NoError(t, s.SetToken(context.Background(), "tok"))

	require.ErrorIs(t, s.UpdatePoints(10), session.ErrNoProfile)
	require.Nil(t, s.User())
}

func TestUser_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{user: client.UserProfile{"points": 1.0}})
	require.NoError(t, s.SetToken(ctx, "tok"))
	s.SyncUserData(ctx)

	u := s.User()
	u["points"] = 999
	points, _ := s.User().Points()
	require.Equal(t, 1, points)
}

func TestSubscribe_SeesLatestStateAfterEachMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{user: client.UserProfile{"points": 7.0}})

	var mu sync.Mutex
	var seen []session.State
	cancel := s.Subscribe(func(st session.State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	require.NoError(t, s.SetToken(ctx, "tok"))
	_, ok := s.SyncUserData(ctx)
	require.True(t, ok)
	require.NoError(t, s.UpdatePoints(8))
	require.NoError(t, s.Clear(ctx))

	mu.Lock()
	require.Len(t, seen, 4)
	require.Equal(t, "tok", seen[0].Token)
	require.Nil(t, seen[0].User)
	p, _ := seen[1].User.Points()
	require.Equal(t, 7, p)
	p, _ = seen[2].User.Points()
	require.Equal(t, 8, p)
	require.False(t, seen[3].Authenticated)
	require.Nil(t, seen[3].User)
	mu.Unlock()

	cancel()
	cancel()
	require.NoError(t, s.SetToken(ctx, "again"))
	mu.Lock()
	require.Len(t, seen, 4)
	mu.Unlock()
}

func TestSubscribe_ObserverMayCallStore(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{})

	var authenticated bool
	s.Subscribe(func(session.State) {
		authenticated = s.Current().Authenticated
	})

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.True(t, authenticated)
}

// stubUserBackend serves GET /users/me the way the marketplace API does
func stubUserBackend(t *testing.T, status *int32, body interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		code := int(atomic.LoadInt32(status))
		w.WriteHeader(code)
		if code == http.StatusOK {
			json.NewEncoder(w).Encode(body)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEndToEnd_SyncAgainstStubBackend(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusOK)
	server := stubUserBackend(t, &status, map[string]int{"points": 42})

	s, _ := newStore(t, client.New(server.URL))
	require.NoError(t, s.SetToken(ctx, "tok1"))

	user, ok := s.SyncUserData(ctx)
	require.True(t, ok)
	require.Equal(t, client.UserProfile{"points": 42.0}, user)
	require.Equal(t, client.UserProfile{"points": 42.0}, s.User())

	require.NoError(t, s.Clear(ctx))
	require.False(t, s.IsAuthenticated(ctx))
	require.Nil(t, s.User())
}

func TestEndToEnd_UnauthorizedKeepsSession(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusOK)
	server := stubUserBackend(t, &status, map[string]int{"points": 42})

	s, _ := newStore(t, client.New(server.URL))
	require.NoError(t, s.SetToken(ctx, "tok1"))
	_, ok := s.SyncUserData(ctx)
	require.True(t, ok)

	atomic.StoreInt32(&status, http.StatusUnauthorized)
	var user client.UserProfile
	require.NotPanics(t, func() {
		user, ok = s.SyncUserData(ctx)
	})
	require.False(t, ok)
	require.Nil(t, user)
	require.Equal(t, client.UserProfile{"points": 42.0}, s.User())
	require.True(t, s.IsAuthenticated(ctx))
}

func TestEndToEnd_UnauthorizedClearPolicy(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusUnauthorized)
	server := stubUserBackend(t, &status, nil)

	s, _ := newStore(t, client.New(server.URL), session.WithUnauthorizedPolicy(session.ClearSession))
	require.NoError(t, s.SetToken(ctx, "expired"))

	_, ok := s.SyncUserData(ctx)
	require.False(t, ok)
	require.False(t, s.IsAuthenticated(ctx))
	require.Equal(t, session.State{}, s.Current())
}

func TestClearPolicy_IgnoresServerErrors(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusInternalServerError)
	server := stubUserBackend(t, &status, nil)

	s, _ := newStore(t, client.New(server.URL), session.WithUnauthorizedPolicy(session.ClearSession))
	require.NoError(t, s.SetToken(ctx, "tok"))

	_, ok := s.SyncUserData(ctx)
	require.False(t, ok)
	require.True(t, s.IsAuthenticated(ctx))
}

func TestStore_IsTokenSource(t *testing.T) {
	ctx := context.Background()
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"books":[],"total":0}`))
	}))
	t.Cleanup(server.Close)

	s, _ := newStore(t, &staticFetcher{})
	c := client.New(server.URL, client.WithTokenSource(s))

	_, err := c.Library(ctx, 0, 10)
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	require.NoError(t, s.SetToken(ctx, "tok9"))
	_, err = c.Library(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok9", gotAuth)
}

// hookLogger returns a logger that runs fn once, the first time msg is logged
func hookLogger(msg string, fn func()) zerolog.Logger {
	var once sync.Once
	return zerolog.New(io.Discard).Hook(zerolog.HookFunc(func(_ *zerolog.Event, _ zerolog.Level, m string) {
		if m == msg {
			once.Do(fn)
		}
	}))
}

func TestClearPolicy_RejectionAfterReloginKeepsNewSession(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusUnauthorized)
	server := stubUserBackend(t, &status, nil)

	var s *session.Store
	logger := hookLogger("user sync failed", func() {
		require.NoError(t, s.SetToken(ctx, "B"))
	})
	s, _ = newStore(t, client.New(server.URL),
		session.WithLogger(logger), session.WithUnauthorizedPolicy(session.ClearSession))
	require.NoError(t, s.SetToken(ctx, "A"))

	var last session.State
	s.Subscribe(func(st session.State) { last = st })

	_, ok := s.SyncUserData(ctx)
	require.False(t, ok)
	require.Equal(t, "B", s.Current().Token)
	require.True(t, s.IsAuthenticated(ctx))
	require.Equal(t, "B", s.Token(ctx))
	require.Equal(t, "B", last.Token)
}

func TestClearPolicy_ReloginAfterLogoutSurvives(t *testing.T) {
	ctx := context.Background()
	status := int32(http.StatusUnauthorized)
	server := stubUserBackend(t, &status, nil)

	var s *session.Store
	logger := hookLogger("credential rejected by backend, logged out", func() {
		require.NoError(t, s.SetToken(ctx, "B"))
	})
	s, _ = newStore(t, client.New(server.URL),
		session.WithLogger(logger), session.WithUnauthorizedPolicy(session.ClearSession))
	require.NoError(t, s.SetToken(ctx, "A"))

	var last session.State
	s.Subscribe(func(st session.State) { last = st })

	_, ok := s.SyncUserData(ctx)
	require.False(t, ok)
	require.Equal(t, "B", s.Current().Token)
	require.Equal(t, "B", s.Token(ctx))
	require.True(t, last.Authenticated)
	require.Equal(t, "B", last.Token)
}

func TestSubscribe_OvertakenSnapshotIsNotDelivered(t *testing.T) {
	ctx := context.Background()

	var s *session.Store
	logger := hookLogger("session token set", func() {
		require.NoError(t, s.Clear(ctx))
	})
	s, _ = newStore(t, &staticFetcher{}, session.WithLogger(logger))

	var seen []session.State
	s.Subscribe(func(st session.State) { seen = append(seen, st) })

	require.NoError(t, s.SetToken(ctx, "A"))

	require.Equal(t, session.State{}, s.Current())
	require.NotEmpty(t, seen)
	require.Equal(t, s.Current(), seen[len(seen)-1])
	for _, st := range seen {
		require.False(t, st.Authenticated, "stale authenticated snapshot delivered")
	}
}

func TestSubscribe_ObserverMutationIsDeliveredLast(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{})

	var seen []session.State
	s.Subscribe(func(st session.State) {
		seen = append(seen, st)
		if st.Authenticated {
			require.NoError(t, s.Clear(ctx))
		}
	})

	require.NoError(t, s.SetToken(ctx, "A"))
	require.Len(t, seen, 2)
	require.Equal(t, "A", seen[0].Token)
	require.Equal(t, session.State{}, seen[1])
}

func TestSubscribe_EndsOnFinalStateUnderConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, &staticFetcher{})

	var (
		mu         sync.Mutex
		last       session.State
		inFlight   int32
		overlapped int32
	)
	s.Subscribe(func(st session.State) {
		if atomic.AddInt32(&inFlight, 1) != 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		mu.Lock()
		last = st
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%3 == 0 {
					_ = s.Clear(ctx)
				} else {
					_ = s.SetToken(ctx, fmt.Sprintf("t%d-%d", i, j))
				}
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, atomic.LoadInt32(&overlapped), "observer called concurrently")
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, s.Current(), last)
}

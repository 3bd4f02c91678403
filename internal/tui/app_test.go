// ABOUTME: Tests for the catalog browser model
// ABOUTME: Drives Update with messages and checks state and rendered output

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/credstore"
	"github.com/shelfhq/shelf/internal/session"
	"github.com/shelfhq/shelf/internal/testsupport/stubbackend"
)

type fixedFetcher struct {
	user client.UserProfile
}

func (f fixedFetcher) FetchCurrentUser(context.Context, string) (client.UserProfile, error) {
	return f.user.Clone(), nil
}

func newTestApp(t *testing.T, fetcher session.Fetcher) (*App, *session.Store) {
	t.Helper()
	store, err := session.New(context.Background(), credstore.NewMemoryStore(), fetcher,
		session.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	app := New(client.New("http://localhost:8000"), store)
	t.Cleanup(app.Close)
	app.width = 120
	app.height = 40
	return app, store
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var sampleBooks = []client.Book{
	{ID: "b1", Title: "The Little Prince", Author: "Antoine de Saint-Exupéry", Category: "นิยาย", Price: 50, Rating: 4.8},
	{ID: "b2", Title: "One Piece Vol. 1", Author: "Eiichiro Oda", Category: "มังงะ", Price: 80, Rating: 4.9},
}

func TestAppInitialState(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	if !app.loading {
		t.Error("expected app to start loading")
	}
	if app.currentCategory() != client.AllCategories {
		t.Errorf("expected all categories, got %q", app.currentCategory())
	}
	if !strings.Contains(app.View(), "Loading catalog") {
		t.Error("expected loading text")
	}
	if !strings.Contains(app.View(), "not logged in") {
		t.Error("expected anonymous header")
	}
}

func TestAppBooksLoaded(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	model, _ := app.Update(booksLoadedMsg{skip: 0, books: sampleBooks})
	result := model.(*App)

	if result.loading {
		t.Error("expected loading to finish")
	}
	view := result.View()
	if !strings.Contains(view, "The Little Prince") {
		t.Error("expected book title in table")
	}
	if !strings.Contains(view, "page 1") {
		t.Error("expected page indicator in footer")
	}
}

func TestAppBooksLoadError(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	app.Update(booksLoadedMsg{err: errors.New("cannot connect to backend")})
	if !strings.Contains(app.View(), "cannot connect to backend") {
		t.Error("expected error in view")
	}
}

func TestAppEmptyNextPageKeepsCurrentPage(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})
	app.Update(booksLoadedMsg{skip: 0, books: sampleBooks})

	app.Update(booksLoadedMsg{skip: 15})
	if app.skip != 0 {
		t.Errorf("expected skip to stay 0, got %d", app.skip)
	}
	if len(app.books) != 2 {
		t.Errorf("expected books to be kept, got %d", len(app.books))
	}
}

func TestAppCategoryCycle(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})
	app.Update(categoriesLoadedMsg{categories: []string{"นิยาย", "มังงะ"}})

	_, cmd := app.Update(key("c"))
	if cmd == nil {
		t.Error("expected a reload command")
	}
	if app.currentCategory() != "นิยาย" {
		t.Errorf("expected first category, got %q", app.currentCategory())
	}

	app.Update(key("c"))
	app.Update(key("c"))
	if app.currentCategory() != client.AllCategories {
		t.Errorf("expected wrap to all categories, got %q", app.currentCategory())
	}
}

func TestAppBuyRequiresLogin(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})
	app.Update(booksLoadedMsg{books: sampleBooks})

	_, cmd := app.Update(key("b"))
	if cmd != nil {
		t.Error("expected no purchase command while anonymous")
	}
	if !strings.Contains(app.status, "Log in") {
		t.Errorf("expected login hint, got %q", app.status)
	}
}

func TestAppSessionMsgUpdatesHeader(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	st := session.State{
		Token:         "tok",
		Authenticated: true,
		User:          client.UserProfile{"username": "reader", "points": 150.0},
	}
	_, cmd := app.Update(sessionMsg{state: st})
	if cmd == nil {
		t.Error("expected the subscription to be re-armed")
	}
	header := app.renderHeader()
	if !strings.Contains(header, "reader") || !strings.Contains(header, "150 pts") {
		t.Errorf("expected user and points in header, got %q", header)
	}
}

func TestAppSubscriptionDeliversStoreChanges(t *testing.T) {
	app, store := newTestApp(t, fixedFetcher{user: client.UserProfile{"username": "reader", "points": 10.0}})

	if err := store.SetToken(context.Background(), "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	msg := app.waitForSession()()
	sm, ok := msg.(sessionMsg)
	if !ok {
		t.Fatalf("expected sessionMsg, got %T", msg)
	}
	if !sm.state.Authenticated {
		t.Error("expected authenticated snapshot")
	}
}

func TestAppSubscriptionKeepsNewestSnapshot(t *testing.T) {
	app, store := newTestApp(t, fixedFetcher{})
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		if err := store.SetToken(ctx, fmt.Sprintf("t%d", i)); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
	}

	msg := app.waitForSession()()
	sm, ok := msg.(sessionMsg)
	if !ok {
		t.Fatalf("expected sessionMsg, got %T", msg)
	}
	if sm.state.Token != "t8" {
		t.Errorf("expected newest token t8, got %q", sm.state.Token)
	}
	select {
	case st := <-app.updates:
		t.Errorf("expected a single pending snapshot, found another for %q", st.Token)
	default:
	}
}

func TestAppPurchaseUpdatesSessionPoints(t *testing.T) {
	ctx := context.Background()
	srv := stubbackend.Start(t)
	token, err := srv.AddUser("reader", "pw", 100)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	store, err := session.New(ctx, credstore.NewMemoryStore(), client.New(srv.URL),
		session.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := store.SetToken(ctx, token); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if _, ok := store.SyncUserData(ctx); !ok {
		t.Fatal("expected profile sync to succeed")
	}

	app := New(client.New(srv.URL, client.WithTokenSource(store)), store)
	defer app.Close()
	app.state = store.Current()
	app.Update(booksLoadedMsg{books: []client.Book{{ID: stubbackend.BookPrince, Title: "The Little Prince", Price: 50}}})

	_, cmd := app.Update(key("b"))
	if cmd == nil {
		t.Fatal("expected purchase command")
	}
	app.Update(cmd())

	points, ok := store.User().Points()
	if !ok || points != 50 {
		t.Errorf("expected 50 points after purchase, got %d (%v)", points, ok)
	}
	if !strings.Contains(app.status, "Bought") {
		t.Errorf("expected success status, got %q", app.status)
	}
}

func TestAppPurchaseError(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	app.Update(purchasedMsg{title: "x", err: errors.New("Insufficient points")})
	if !strings.Contains(app.status, "Insufficient points") {
		t.Errorf("expected error status, got %q", app.status)
	}
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})

	_, cmd := app.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestFrameWidthMatchesTerminal(t *testing.T) {
	app, _ := newTestApp(t, fixedFetcher{})
	app.width = 100

	if w := lipgloss.Width(app.renderHeader()); w != 100 {
		t.Errorf("expected header width 100, got %d", w)
	}
	if w := lipgloss.Width(app.renderFooter()); w != 100 {
		t.Errorf("expected footer width 100, got %d", w)
	}
}

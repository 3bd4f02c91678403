// ABOUTME: Root bubbletea model for the catalog browser
// ABOUTME: Pages through books, buys them, and mirrors the session state in the header

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/session"
	"github.com/shelfhq/shelf/internal/tui/icons"
	"github.com/shelfhq/shelf/internal/tui/styles"
)

// Layout constants
const (
	minTerminalWidth = 80
	defaultPageSize  = 15
	// header, blank line, table header and border, detail line, footer
	chromeHeight = 8
)

// booksLoadedMsg carries one catalog page
type booksLoadedMsg struct {
	skip  int
	books []client.Book
	err   error
}

// categoriesLoadedMsg carries the category list
type categoriesLoadedMsg struct {
	categories []string
	err        error
}

// purchasedMsg is sent when a purchase attempt completes
type purchasedMsg struct {
	title  string
	result *client.PurchaseResult
	err    error
}

// sessionMsg is a session snapshot delivered by the store subscription
type sessionMsg struct {
	state session.State
}

// App is the root model for the browser
type App struct {
	client  *client.Client
	session *session.Store
	updates chan session.State
	cancel  func()

	table   table.Model
	spinner spinner.Model

	width    int
	height   int
	pageSize int
	skip     int
	loading  bool
	err      error
	status   string

	books      []client.Book
	categories []string
	category   int
	state      session.State
	showDetail bool
}

// New creates the browser and subscribes it to the session store
func New(apiClient *client.Client, store *session.Store) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	t := table.New(
		table.WithColumns(columns(minTerminalWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultPageSize),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderForeground(styles.Muted).BorderBottom(true).Bold(true)
	ts.Selected = ts.Selected.Foreground(styles.Text).Background(styles.Primary)
	t.SetStyles(ts)

	a := &App{
		client:     apiClient,
		session:    store,
		updates:    make(chan session.State, 1),
		table:      t,
		spinner:    s,
		pageSize:   defaultPageSize,
		loading:    true,
		categories: []string{client.AllCategories},
		state:      store.Current(),
	}
	a.cancel = store.Subscribe(a.publish)
	return a
}

// publish keeps only the newest snapshot in the updates slot. An unread
// older one is replaced. The store never calls it concurrently.
func (a *App) publish(st session.State) {
	for {
		select {
		case a.updates <- st:
			return
		default:
		}
		select {
		case <-a.updates:
		default:
		}
	}
}

// Close removes the session subscription
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.loadCategories(),
		a.loadBooks(0),
		a.syncUser(),
		a.waitForSession(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.table.SetColumns(columns(a.frameWidth()))
		if h := a.height - chromeHeight; h > 3 {
			a.table.SetHeight(h)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case booksLoadedMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		if len(msg.books) == 0 && msg.skip > 0 {
			a.status = "No more books"
			return a, nil
		}
		a.skip = msg.skip
		a.books = msg.books
		a.table.SetRows(rows(msg.books))
		a.table.SetCursor(0)
		return a, nil

	case categoriesLoadedMsg:
		if msg.err == nil {
			a.categories = append([]string{client.AllCategories}, msg.categories...)
		}
		return a, nil

	case purchasedMsg:
		if msg.err != nil {
			a.status = styles.StatusCritical.Render(icons.Critical.String() + " " + msg.err.Error())
			return a, nil
		}
		if err := a.session.UpdatePoints(msg.result.RemainingPoints); err != nil {
			a.status = styles.StatusWarning.Render(icons.Warning.String() + " " + err.Error())
			return a, nil
		}
		a.status = styles.StatusOK.Render(fmt.Sprintf("%s Bought %s", icons.CheckOK, msg.title))
		return a, nil

	case sessionMsg:
		a.state = msg.state
		return a, a.waitForSession()
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "esc":
		a.showDetail = false
		return a, nil
	case "enter":
		a.showDetail = !a.showDetail
		return a, nil
	case "n":
		if len(a.books) < a.pageSize {
			a.status = "No more books"
			return a, nil
		}
		return a, a.startLoad(a.skip + a.pageSize)
	case "p":
		if a.skip == 0 {
			return a, nil
		}
		prev := a.skip - a.pageSize
		if prev < 0 {
			prev = 0
		}
		return a, a.startLoad(prev)
	case "c":
		a.category = (a.category + 1) % len(a.categories)
		return a, a.startLoad(0)
	case "r":
		a.client.InvalidateCategories()
		return a, tea.Batch(a.startLoad(a.skip), a.loadCategories(), a.syncUser())
	case "b":
		book, ok := a.selected()
		if !ok {
			return a, nil
		}
		if !a.state.Authenticated {
			a.status = styles.StatusWarning.Render("Log in with `shelf login` to buy books")
			return a, nil
		}
		a.status = "Buying " + book.Title + "..."
		return a, a.purchase(book)
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

func (a *App) startLoad(skip int) tea.Cmd {
	a.loading = true
	a.status = ""
	return tea.Batch(a.spinner.Tick, a.loadBooks(skip))
}

func (a *App) selected() (client.Book, bool) {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.books) {
		return client.Book{}, false
	}
	return a.books[i], true
}

func (a *App) currentCategory() string {
	if a.category < 0 || a.category >= len(a.categories) {
		return client.AllCategories
	}
	return a.categories[a.category]
}

func (a *App) loadBooks(skip int) tea.Cmd {
	q := client.BookQuery{Category: a.currentCategory()}
	limit := a.pageSize
	return func() tea.Msg {
		books, err := a.client.ListBooks(context.Background(), skip, limit, q)
		return booksLoadedMsg{skip: skip, books: books, err: err}
	}
}

func (a *App) loadCategories() tea.Cmd {
	return func() tea.Msg {
		cats, err := a.client.Categories(context.Background())
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

func (a *App) purchase(book client.Book) tea.Cmd {
	return func() tea.Msg {
		res, err := a.client.PurchaseBook(context.Background(), book.ID)
		return purchasedMsg{title: book.Title, result: res, err: err}
	}
}

// syncUser refreshes the profile; the result arrives through the subscription
func (a *App) syncUser() tea.Cmd {
	return func() tea.Msg {
		a.session.SyncUserData(context.Background())
		return nil
	}
}

func (a *App) waitForSession() tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{state: <-a.updates}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var content strings.Builder

	switch {
	case a.err != nil:
		content.WriteString(styles.StatusCritical.Render("Error: " + a.err.Error()))
	case a.loading && len(a.books) == 0:
		content.WriteString(a.spinner.View() + " Loading catalog...")
	default:
		content.WriteString(a.table.View())
		content.WriteString("\n")
		content.WriteString(a.detailLine())
	}

	if a.status != "" {
		content.WriteString("\n")
		content.WriteString(a.status)
	}

	return a.wrapWithFrame(content.String())
}

func (a *App) detailLine() string {
	book, ok := a.selected()
	if !ok {
		return styles.Subtitle.Render("No books in this category")
	}
	if !a.showDetail {
		return styles.Subtitle.Render(fmt.Sprintf("%s %s · %s", icons.Book, book.Title, book.Author))
	}
	desc := book.Description
	if desc == "" {
		desc = "No description"
	}
	return styles.Panel.Width(a.frameWidth() - 4).Render(
		styles.ValueStyle.Render(book.Title) + "\n" +
			styles.Subtitle.Render(book.Author+" · "+book.Category) + "\n\n" + desc)
}

func (a *App) frameWidth() int {
	if a.width < minTerminalWidth {
		return minTerminalWidth
	}
	return a.width
}

// renderHeader creates the header bar with branding and the signed-in user
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s %s", icons.App, titleStyle.Render("Shelf"),
		contextStyle.Render(icons.Category.String()+" "+a.currentCategory()))
	rightText := userSummary(a.state) + " "

	leftWidth := lipgloss.Width(leftText)
	rightWidth := lipgloss.Width(rightText)
	fillWidth := width - 4 - leftWidth - rightWidth // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮")
}

// userSummary renders the right side of the header from a session snapshot
func userSummary(st session.State) string {
	if !st.Authenticated {
		return styles.Subtitle.Render("not logged in")
	}
	name := st.User.Username()
	if name == "" {
		name = "logged in"
	}
	text := icons.User.String() + " " + name
	if points, ok := st.User.Points(); ok {
		text += "  " + styles.Points.Render(icons.Coins.String()+" "+strconv.Itoa(points)+" pts")
	}
	return text
}

// renderFooter creates the footer with keyboard shortcuts and the page position
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	shortcuts := []string{"↑↓ Navigate", "Enter Details", "b Buy", "n/p Page", "c Category", "r Refresh", "q Quit"}

	var styled []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		styled = append(styled, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
	}

	leftText := " " + strings.Join(styled, "  ")
	rightText := fmt.Sprintf("page %d ", a.skip/a.pageSize+1)

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText)
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯")
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder
	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())
	return sb.String()
}

func columns(width int) []table.Column {
	title := width - 4 - 20 - 14 - 8 - 6 - 10
	if title < 20 {
		title = 20
	}
	return []table.Column{
		{Title: "Title", Width: title},
		{Title: "Author", Width: 20},
		{Title: "Category", Width: 14},
		{Title: "Price", Width: 8},
		{Title: "Rating", Width: 6},
	}
}

func rows(books []client.Book) []table.Row {
	out := make([]table.Row, 0, len(books))
	for _, b := range books {
		out = append(out, table.Row{
			b.Title,
			b.Author,
			b.Category,
			strconv.Itoa(b.Price),
			strconv.FormatFloat(b.Rating, 'f', 1, 64),
		})
	}
	return out
}

// Run starts the browser in the alternate screen
func Run(apiClient *client.Client, store *session.Store) error {
	app := New(apiClient, store)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

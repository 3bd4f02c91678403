// ABOUTME: Fake book catalog: listing, filters, content streams and statistics
// ABOUTME: Seeded with a small fixed catalog so tests can refer to books by id

package stubbackend

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// AllCategories is the sentinel the frontend sends for "no filter"
const AllCategories = "ทั้งหมด"

// Seeded book ids
const (
	BookPrince = "b1"
	BookManga  = "b2"
	BookHabits = "b3"
)

type book struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Cover       string  `json:"cover,omitempty"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       int     `json:"price"`
	CreatedAt   string  `json:"created_at"`

	Creator  string    `json:"-"`
	Pages    int       `json:"-"`
	Sales    int       `json:"-"`
	IsPublic bool      `json:"-"`
	Reviews  []*review `json:"-"`
}

// BookSeed describes a catalog entry added with AddBook
type BookSeed struct {
	ID          string
	Title       string
	Author      string
	Category    string
	Price       int
	Rating      float64
	Description string
	Creator     string
	HasCover    bool
}

func (s *Server) seedCatalog() {
	s.categories = []string{"นิยาย", "มังงะ", "พัฒนาตนเอง"}
	for _, seed := range []BookSeed{
		{ID: BookPrince, Title: "The Little Prince", Author: "Antoine de Saint-Exupéry", Category: "นิยาย", Price: 50, Rating: 4.8, HasCover: true, Creator: "writer"},
		{ID: BookManga, Title: "One Piece Vol. 1", Author: "Eiichiro Oda", Category: "มังงะ", Price: 80, Rating: 4.6},
		{ID: BookHabits, Title: "Atomic Habits", Author: "James Clear", Category: "พัฒนาตนเอง", Price: 120, Rating: 4.7, HasCover: true, Creator: "writer"},
	} {
		s.addBookLocked(seed)
	}
}

// AddBook puts a book in the catalog
func (s *Server) AddBook(seed BookSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBookLocked(seed)
}

func (s *Server) addBookLocked(seed BookSeed) {
	b := &book{
		ID:          seed.ID,
		Title:       seed.Title,
		Author:      seed.Author,
		Rating:      seed.Rating,
		Description: seed.Description,
		Category:    seed.Category,
		Price:       seed.Price,
		CreatedAt:   s.timestamp(),
		Creator:     seed.Creator,
		Pages:       100,
		IsPublic:    true,
	}
	if seed.HasCover {
		b.Cover = "/books/" + seed.ID + "/cover"
	}
	if _, exists := s.books[b.ID]; !exists {
		s.bookOrder = append(s.bookOrder, b.ID)
	}
	s.books[b.ID] = b
}

// catalogLocked returns books in insertion order
func (s *Server) catalogLocked() []*book {
	out := make([]*book, 0, len(s.bookOrder))
	for _, id := range s.bookOrder {
		if b, ok := s.books[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *Server) findBook(id string) (*book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, detail(http.StatusNotFound, "Book not found")
	}
	return b, nil
}

func pageOf(books []*book, skip, limit int) []*book {
	start, end := window(len(books), skip, limit)
	return books[start:end]
}

func (s *Server) handleListBooks(c echo.Context) error {
	skip, limit := pageParams(c, 20)
	category := c.QueryParam("category")
	search := strings.ToLower(c.QueryParam("search"))
	sortBy := c.QueryParam("sort_by")
	order := 1
	if c.QueryParam("sort_order") == "-1" {
		order = -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*book
	for _, b := range s.catalogLocked() {
		if category != "" && category != AllCategories && b.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Title), search) && !strings.Contains(strings.ToLower(b.Author), search) {
			continue
		}
		matched = append(matched, b)
	}

	switch sortBy {
	case "price":
		sort.SliceStable(matched, func(i, j int) bool {
			if order < 0 {
				return matched[i].Price > matched[j].Price
			}
			return matched[i].Price < matched[j].Price
		})
	case "title":
		sort.SliceStable(matched, func(i, j int) bool {
			if order < 0 {
				return matched[i].Title > matched[j].Title
			}
			return matched[i].Title < matched[j].Title
		})
	case "rating":
		sort.SliceStable(matched, func(i, j int) bool {
			if order < 0 {
				return matched[i].Rating > matched[j].Rating
			}
			return matched[i].Rating < matched[j].Rating
		})
	}

	return c.JSON(http.StatusOK, nonNil(pageOf(matched, skip, limit)))
}

// param returns a path parameter, unescaped if the router left it encoded
func param(c echo.Context, name string) string {
	v := c.Param(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func nonNil(books []*book) []*book {
	if books == nil {
		return []*book{}
	}
	return books
}

func (s *Server) handleCategories(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string][]string{"categories": s.categories})
}

func (s *Server) handleBooksByCategory(c echo.Context) error {
	skip, limit := pageParams(c, 20)
	category := param(c, "category")

	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*book
	for _, b := range s.catalogLocked() {
		if category == AllCategories || b.Category == category {
			matched = append(matched, b)
		}
	}
	return c.JSON(http.StatusOK, nonNil(pageOf(matched, skip, limit)))
}

func (s *Server) handleCategoryStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.categories))
	for _, cat := range s.categories {
		counts[cat] = 0
	}
	for _, b := range s.books {
		counts[b.Category]++
	}
	return c.JSON(http.StatusOK, counts)
}

func (s *Server) handleStorageStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	covers := 0
	for _, b := range s.books {
		if b.Cover != "" {
			covers++
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_books":  len(s.books),
		"total_covers": covers,
		"total_size":   len(s.books) * len(pdfBytes("x")),
	})
}

func (s *Server) handleGetBook(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBook(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if currentUser(c).Role != "admin" {
		return detail(http.StatusForbidden, "Not enough permissions")
	}
	id := c.Param("id")
	if _, err := s.findBook(id); err != nil {
		return err
	}
	delete(s.books, id)
	return c.JSON(http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}

// pngHeader is enough of a PNG for clients that only pass bytes through
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func (s *Server) handleCover(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return err
	}
	if b.Cover == "" {
		return detail(http.StatusNotFound, "Cover not found")
	}
	return c.Blob(http.StatusOK, "image/png", pngHeader)
}

func pdfBytes(title string) []byte {
	return []byte("%PDF-1.4\n% " + title + "\n%%EOF\n")
}

// ownedBook returns the book if the current user owns it
func (s *Server) ownedBook(c echo.Context) (*book, error) {
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if _, owned := currentUser(c).Library[b.ID]; !owned {
		return nil, detail(http.StatusForbidden, "You don't own this book")
	}
	return b, nil
}

func (s *Server) handleRead(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.ownedBook(c)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes(b.Title))
}

func (s *Server) handleDownload(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.ownedBook(c)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.pdf"`, b.ID))
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes(b.Title))
}

func (s *Server) handlePersonalized(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	var picks []*book
	for _, b := range s.catalogLocked() {
		if _, owned := u.Library[b.ID]; !owned {
			picks = append(picks, b)
		}
	}
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].Rating > picks[j].Rating })
	return c.JSON(http.StatusOK, nonNil(pageOf(picks, 0, limit)))
}

func (s *Server) handleCategoryRecommend(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var picks []*book
	for _, b := range s.catalogLocked() {
		if b.Category == param(c, "category") {
			picks = append(picks, b)
		}
	}
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].Rating > picks[j].Rating })
	return c.JSON(http.StatusOK, nonNil(pageOf(picks, 0, limit)))
}

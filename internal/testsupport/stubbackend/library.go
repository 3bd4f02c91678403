// ABOUTME: Fake purchases, libraries, reviews, reading progress and creator stats
// ABOUTME: Purchases debit points so tests can assert balances after a buy

package stubbackend

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type libraryEntry struct {
	BookID      string `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category,omitempty"`
	PricePaid   int    `json:"price_paid"`
	PurchasedAt string `json:"purchased_at,omitempty"`
	LastRead    int    `json:"last_read_page"`
	Status      string `json:"status,omitempty"`
}

type readingEntry struct {
	BookID             string  `json:"book_id"`
	Title              string  `json:"title"`
	Author             string  `json:"author"`
	Page               int     `json:"page"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

type review struct {
	ReviewID   string `json:"review_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	IsOwner    bool   `json:"is_owner"`
}

func (s *Server) handlePurchase(c echo.Context) error {
	var body struct {
		BookID string `json:"book_id"`
	}
	if err := c.Bind(&body); err != nil || body.BookID == "" {
		return detail(http.StatusUnprocessableEntity, "book_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	b, err := s.findBook(body.BookID)
	if err != nil {
		return err
	}
	if _, owned := u.Library[b.ID]; owned {
		return detail(http.StatusBadRequest, "You already own this book")
	}
	if u.Points < b.Price {
		return detail(http.StatusBadRequest, "Insufficient points")
	}

	u.Points -= b.Price
	b.Sales++
	u.Library[b.ID] = &libraryEntry{
		BookID:      b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		PricePaid:   b.Price,
		PurchasedAt: s.timestamp(),
	}
	u.Payments = append(u.Payments, payment{
		TransactionID: uuid.NewString(),
		Type:          "purchase",
		Method:        "points",
		Points:        -b.Price,
		Status:        "completed",
		CreatedAt:     s.timestamp(),
	})
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":          "Book purchased successfully",
		"book_id":          b.ID,
		"price_paid":       b.Price,
		"remaining_points": u.Points,
	})
}

func (s *Server) handleLibrary(c echo.Context) error {
	skip, limit := pageParams(c, 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	entries := make([]*libraryEntry, 0, len(u.Library))
	for _, e := range u.Library {
		if r, ok := u.Reading[e.BookID]; ok {
			e.LastRead = r.Page
			e.Status = r.Status
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BookID < entries[j].BookID })
	start, end := window(len(entries), skip, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"books": entries[start:end],
		"total": len(entries),
	})
}

func (s *Server) handleCheckOwnership(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	_, owned := currentUser(c).Library[id]
	return c.JSON(http.StatusOK, map[string]interface{}{"book_id": id, "owned": owned})
}

func (s *Server) handleRemoveFromLibrary(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	id := c.Param("id")
	if _, owned := u.Library[id]; !owned {
		return detail(http.StatusNotFound, "Book not found in library")
	}
	delete(u.Library, id)
	delete(u.Reading, id)
	return c.JSON(http.StatusOK, map[string]string{"message": "Book removed from library"})
}

func (s *Server) reviewsFor(b *book, viewer *user) []review {
	out := make([]review, 0, len(b.Reviews))
	for _, r := range b.Reviews {
		cp := *r
		cp.IsOwner = r.UserID == viewer.ID
		out = append(out, cp)
	}
	return out
}

func (s *Server) handleListReviews(c echo.Context) error {
	skip, limit := pageParams(c, 10)

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return err
	}
	all := s.reviewsFor(b, currentUser(c))
	avg := 0.0
	for _, r := range all {
		avg += float64(r.Rating)
	}
	if len(all) > 0 {
		avg /= float64(len(all))
	}
	start, end := window(len(all), skip, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"book_id":        b.ID,
		"book_title":     b.Title,
		"total_reviews":  len(all),
		"average_rating": avg,
		"reviews":        all[start:end],
	})
}

type reviewBody struct {
	Rating     *int    `json:"rating"`
	ReviewText *string `json:"review_text"`
}

func checkReview(body reviewBody) error {
	if body.Rating != nil && (*body.Rating < 1 || *body.Rating > 5) {
		return detail(http.StatusUnprocessableEntity, "Rating must be between 1 and 5")
	}
	if body.ReviewText != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*body.ReviewText))
		if n < 10 || n > 2000 {
			return detail(http.StatusUnprocessableEntity, "Review must be 10-2000 characters")
		}
	}
	return nil
}

func (s *Server) handleCreateReview(c echo.Context) error {
	var body reviewBody
	if err := c.Bind(&body); err != nil || body.Rating == nil || body.ReviewText == nil {
		return detail(http.StatusUnprocessableEntity, "rating and review_text are required")
	}
	if err := checkReview(body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return err
	}
	for _, r := range b.Reviews {
		if r.UserID == u.ID {
			return detail(http.StatusBadRequest, "You have already reviewed this book")
		}
	}
	now := s.timestamp()
	r := &review{
		ReviewID:   uuid.NewString(),
		UserID:     u.ID,
		Username:   u.Username,
		Rating:     *body.Rating,
		ReviewText: *body.ReviewText,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Reviews = append(b.Reviews, r)
	out := *r
	out.IsOwner = true
	return c.JSON(http.StatusOK, out)
}

func (s *Server) ownReview(c echo.Context) (*book, int, error) {
	b, err := s.findBook(c.Param("id"))
	if err != nil {
		return nil, 0, err
	}
	for i, r := range b.Reviews {
		if r.ReviewID != c.Param("review_id") {
			continue
		}
		if r.UserID != currentUser(c).ID {
			return nil, 0, detail(http.StatusForbidden, "You can only modify your own reviews")
		}
		return b, i, nil
	}
	return nil, 0, detail(http.StatusNotFound, "Review not found")
}

func (s *Server) handleUpdateReview(c echo.Context) error {
	var body reviewBody
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}
	if err := checkReview(body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, i, err := s.ownReview(c)
	if err != nil {
		return err
	}
	r := b.Reviews[i]
	if body.Rating != nil {
		r.Rating = *body.Rating
	}
	if body.ReviewText != nil {
		r.ReviewText = *body.ReviewText
	}
	r.UpdatedAt = s.timestamp()
	out := *r
	out.IsOwner = true
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteReview(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, i, err := s.ownReview(c)
	if err != nil {
		return err
	}
	b.Reviews = append(b.Reviews[:i], b.Reviews[i+1:]...)
	return c.JSON(http.StatusOK, map[string]string{"message": "Review deleted successfully"})
}

func (s *Server) handleUserReviews(c echo.Context) error {
	skip, limit := pageParams(c, 10)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	var mine []map[string]interface{}
	for _, b := range s.catalogLocked() {
		for _, r := range b.Reviews {
			if r.UserID != u.ID {
				continue
			}
			mine = append(mine, map[string]interface{}{
				"review_id":   r.ReviewID,
				"user_id":     r.UserID,
				"username":    r.Username,
				"rating":      r.Rating,
				"review_text": r.ReviewText,
				"created_at":  r.CreatedAt,
				"updated_at":  r.UpdatedAt,
				"is_owner":    true,
				"book_id":     b.ID,
				"book_title":  b.Title,
			})
		}
	}
	start, end := window(len(mine), skip, limit)
	page := mine[start:end]
	if page == nil {
		page = []map[string]interface{}{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": page, "total": len(mine)})
}

func (s *Server) handleReadingProgress(c echo.Context) error {
	var body struct {
		BookID             string  `json:"book_id"`
		Page               int     `json:"page"`
		ProgressPercentage float64 `json:"progress_percentage"`
		Status             string  `json:"status"`
	}
	if err := c.Bind(&body); err != nil || body.BookID == "" {
		return detail(http.StatusUnprocessableEntity, "book_id is required")
	}
	if body.ProgressPercentage < 0 || body.ProgressPercentage > 100 {
		return detail(http.StatusUnprocessableEntity, "progress_percentage must be between 0 and 100")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	b, err := s.findBook(body.BookID)
	if err != nil {
		return err
	}
	if _, owned := u.Library[b.ID]; !owned {
		return detail(http.StatusForbidden, "You don't own this book")
	}
	status := body.Status
	if status == "" {
		status = "reading"
	}
	entry := &readingEntry{
		BookID:             b.ID,
		Title:              b.Title,
		Author:             b.Author,
		Page:               body.Page,
		ProgressPercentage: body.ProgressPercentage,
		Status:             status,
		UpdatedAt:          s.timestamp(),
	}
	u.Reading[b.ID] = entry
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":             "Reading progress updated",
		"book_id":             entry.BookID,
		"page":                entry.Page,
		"progress_percentage": entry.ProgressPercentage,
		"status":              entry.Status,
	})
}

func (s *Server) readingByStatus(c echo.Context, status string) error {
	skip, limit := pageParams(c, 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	entries := make([]*readingEntry, 0)
	for _, r := range u.Reading {
		if r.Status == status {
			entries = append(entries, r)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BookID < entries[j].BookID })
	start, end := window(len(entries), skip, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{"books": entries[start:end], "total": len(entries)})
}

func (s *Server) handleInProgress(c echo.Context) error {
	return s.readingByStatus(c, "reading")
}

func (s *Server) handleCompletedList(c echo.Context) error {
	return s.readingByStatus(c, "completed")
}

func (s *Server) handleMarkCompleted(c echo.Context) error {
	bookID := c.FormValue("book_id")
	if bookID == "" {
		return detail(http.StatusUnprocessableEntity, "book_id form field is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	b, err := s.findBook(bookID)
	if err != nil {
		return err
	}
	if _, owned := u.Library[b.ID]; !owned {
		return detail(http.StatusForbidden, "You don't own this book")
	}
	u.Reading[b.ID] = &readingEntry{
		BookID:             b.ID,
		Title:              b.Title,
		Author:             b.Author,
		Page:               b.Pages,
		ProgressPercentage: 100,
		Status:             "completed",
		UpdatedAt:          s.timestamp(),
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Book marked as completed", "book_id": b.ID})
}

func (s *Server) handleReadingStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	reading, completed, pages := 0, 0, 0
	for _, r := range u.Reading {
		pages += r.Page
		if r.Status == "completed" {
			completed++
		} else {
			reading++
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"books_reading":   reading,
		"books_completed": completed,
		"pages_read":      pages,
	})
}

func (s *Server) handleCreatorStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	books, sales, revenue, readers, likes := 0, 0, 0, 0, 0
	for _, b := range s.books {
		if b.Creator != u.Username {
			continue
		}
		books++
		sales += b.Sales
		revenue += b.Sales * b.Price
		readers += b.Sales
		for _, r := range b.Reviews {
			if r.Rating >= 4 {
				likes++
			}
		}
	}
	return c.JSON(http.StatusOK, map[string]int{
		"total_followers": len(u.Followers),
		"total_readers":   readers,
		"total_likes":     likes,
		"total_sales":     sales,
		"total_books":     books,
		"total_revenue":   revenue,
	})
}

func (s *Server) handleSalesHistory(c echo.Context) error {
	months, err := strconv.Atoi(c.QueryParam("months"))
	if err != nil || months <= 0 {
		months = 6
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	total := 0
	for _, b := range s.books {
		if b.Creator == u.Username {
			total += b.Sales * b.Price
		}
	}
	// all sales land in the current month
	now := s.now().UTC()
	points := make([]map[string]interface{}, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := now.AddDate(0, -i, 0).Format("2006-01")
		value := 0
		if i == 0 {
			value = total
		}
		points = append(points, map[string]interface{}{"month": month, "value": value})
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleCreatorBooks(c echo.Context) error {
	skip, limit := pageParams(c, 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	var mine []map[string]interface{}
	for _, b := range s.catalogLocked() {
		if b.Creator != u.Username {
			continue
		}
		mine = append(mine, map[string]interface{}{
			"id":             b.ID,
			"title":          b.Title,
			"price":          b.Price,
			"total_readers":  b.Sales,
			"total_comments": len(b.Reviews),
			"is_public":      b.IsPublic,
			"created_at":     b.CreatedAt,
		})
	}
	start, end := window(len(mine), skip, limit)
	page := mine[start:end]
	if page == nil {
		page = []map[string]interface{}{}
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleFollow(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	me := currentUser(c)
	target, ok := s.users[c.Param("username")]
	if !ok {
		return detail(http.StatusNotFound, "User not found")
	}
	if target.ID == me.ID {
		return detail(http.StatusBadRequest, "You cannot follow yourself")
	}
	if me.Following[target.Username] {
		return detail(http.StatusBadRequest, "Already following this creator")
	}
	me.Following[target.Username] = true
	target.Followers[me.Username] = true
	return c.JSON(http.StatusOK, map[string]string{"message": "Followed " + target.Username})
}

func (s *Server) handleUnfollow(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	me := currentUser(c)
	target, ok := s.users[c.Param("username")]
	if !ok {
		return detail(http.StatusNotFound, "User not found")
	}
	if !me.Following[target.Username] {
		return detail(http.StatusBadRequest, "Not following this creator")
	}
	delete(me.Following, target.Username)
	delete(target.Followers, me.Username)
	return c.JSON(http.StatusOK, map[string]string{"message": "Unfollowed " + target.Username})
}

// ABOUTME: Fake user accounts: profile, points, payments and settings
// ABOUTME: Passwords are bcrypt hashed like the real backend stores them

package stubbackend

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// VoucherPoints is what one TrueMoney voucher is worth
const VoucherPoints = 100

var phonePattern = regexp.MustCompile(`^(\+66|0)\d{9}$`)

type user struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	Role         string
	Points       int
	CreatedAt    string
	Profile      map[string]string
	Settings     map[string]interface{}
	Library      map[string]*libraryEntry
	Payments     []payment
	Reading      map[string]*readingEntry
	Following    map[string]bool
	Followers    map[string]bool
}

type payment struct {
	TransactionID string  `json:"transaction_id"`
	Type          string  `json:"type"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
	Points        int     `json:"points"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

// AddUser creates an account and returns a token for it
func (s *Server) AddUser(username, password string, points int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	s.users[username] = &user{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         "user",
		Points:       points,
		CreatedAt:    s.timestamp(),
		Profile:      map[string]string{},
		Settings: map[string]interface{}{
			"theme":     "light",
			"font_size": 16.0,
			"language":  "th",
		},
		Library:   map[string]*libraryEntry{},
		Reading:   map[string]*readingEntry{},
		Following: map[string]bool{},
		Followers: map[string]bool{},
	}
	s.mu.Unlock()

	return s.IssueToken(username), nil
}

// SetRole changes a user's role (user, creator, admin)
func (s *Server) SetRole(username, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		u.Role = role
	}
}

// Points returns a user's balance as the backend sees it
func (s *Server) Points(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u.Points
	}
	return 0
}

// Owns reports whether username has bookID in their library
func (s *Server) Owns(username, bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return false
	}
	_, owned := u.Library[bookID]
	return owned
}

func (u *user) document() map[string]interface{} {
	doc := map[string]interface{}{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"role":       u.Role,
		"points":     u.Points,
		"created_at": u.CreatedAt,
	}
	for k, v := range u.Profile {
		doc[k] = v
	}
	return doc
}

func (s *Server) handleMe(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, currentUser(c).document())
}

func (s *Server) handleAddPoints(c echo.Context) error {
	var body struct {
		PointsToAdd int `json:"points_to_add"`
	}
	if err := c.Bind(&body); err != nil || body.PointsToAdd <= 0 {
		return detail(http.StatusBadRequest, "Points must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	u.Points += body.PointsToAdd
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Points added successfully",
		"points_added": body.PointsToAdd,
		"points":       u.Points,
	})
}

func (s *Server) handlePaymentHistory(c echo.Context) error {
	skip, limit := pageParams(c, 10)

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	// newest first
	all := make([]payment, 0, len(u.Payments))
	for i := len(u.Payments) - 1; i >= 0; i-- {
		all = append(all, u.Payments[i])
	}
	start, end := window(len(all), skip, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"payments": all[start:end],
		"total":    len(all),
	})
}

func (s *Server) handleTrueMoney(c echo.Context) error {
	var body struct {
		Voucher string `json:"voucher"`
		Phone   string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}
	if strings.TrimSpace(body.Voucher) == "" {
		return detail(http.StatusBadRequest, "Voucher is required")
	}
	if !phonePattern.MatchString(strings.Join(strings.Fields(body.Phone), "")) {
		return detail(http.StatusBadRequest, "Invalid phone number")
	}
	if strings.HasPrefix(body.Voucher, "used") {
		return detail(http.StatusBadRequest, "Voucher already redeemed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	p := payment{
		TransactionID: uuid.NewString(),
		Type:          "topup",
		Method:        "truemoney",
		Amount:        float64(VoucherPoints),
		Points:        VoucherPoints,
		Status:        "completed",
		CreatedAt:     s.timestamp(),
	}
	u.Payments = append(u.Payments, p)
	u.Points += VoucherPoints
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":        "Payment successful",
		"transaction_id": p.TransactionID,
		"amount":         p.Amount,
		"points_added":   VoucherPoints,
		"points":         u.Points,
	})
}

func (s *Server) handleGetSettings(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, currentUser(c).Settings)
}

func (s *Server) handleUpdateSettings(c echo.Context) error {
	var body map[string]interface{}
	if err := c.Bind(&body); err != nil || len(body) == 0 {
		return detail(http.StatusBadRequest, "No settings provided for update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	for k, v := range body {
		u.Settings[k] = v
	}
	return c.JSON(http.StatusOK, u.Settings)
}

func (s *Server) handleUpdateSetting(c echo.Context) error {
	var body struct {
		Value interface{} `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	u.Settings[c.Param("key")] = body.Value
	return c.JSON(http.StatusOK, u.Settings)
}

func (s *Server) handleUserStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	completed := 0
	for _, r := range u.Reading {
		if r.Status == "completed" {
			completed++
		}
	}
	spent := 0
	for _, e := range u.Library {
		spent += e.PricePaid
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"books_owned":     len(u.Library),
		"books_completed": completed,
		"points_spent":    spent,
		"points":          u.Points,
	})
}

func (s *Server) handleGetProfile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, currentUser(c).document())
}

var profileFields = map[string]bool{
	"email": true, "full_name": true, "bio": true, "avatar_url": true, "country": true, "phone": true,
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var body map[string]string
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	updated := 0
	for k, v := range body {
		if !profileFields[k] {
			continue
		}
		if k == "email" {
			u.Email = v
		} else {
			u.Profile[k] = v
		}
		updated++
	}
	if updated == 0 {
		return detail(http.StatusBadRequest, "No valid fields provided for update")
	}
	return c.JSON(http.StatusOK, u.document())
}

func (s *Server) handleChangeUsername(c echo.Context) error {
	var body struct {
		NewUsername     string `json:"new_username"`
		CurrentPassword string `json:"current_password"`
	}
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := currentUser(c)
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(body.CurrentPassword)) != nil {
		return detail(http.StatusBadRequest, "Current password is incorrect")
	}
	if _, taken := s.users[body.NewUsername]; taken {
		return detail(http.StatusBadRequest, "Username already taken")
	}
	delete(s.users, u.Username)
	u.Username = body.NewUsername
	s.users[u.Username] = u

	// the old token's subject no longer resolves, so hand out a new one
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "Username updated successfully",
		"username":     u.Username,
		"access_token": s.IssueToken(u.Username),
	})
}

func (s *Server) handlePublicProfile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.users[c.Param("username")]
	if !ok {
		return detail(http.StatusNotFound, "User not found")
	}
	me := currentUser(c)

	totalBooks, totalSales := 0, 0
	for _, b := range s.books {
		if b.Creator == target.Username {
			totalBooks++
			totalSales += b.Sales
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"username":        target.Username,
		"bio":             target.Profile["bio"],
		"followers_count": len(target.Followers),
		"following_count": len(target.Following),
		"total_books":     totalBooks,
		"total_sales":     totalSales,
		"joined_date":     target.CreatedAt,
		"role":            target.Role,
		"is_following":    me.Following[target.Username],
	})
}

// ABOUTME: In-process fake of the marketplace backend for tests
// ABOUTME: Speaks the same wire contract: bearer JWTs, JSON bodies and {"detail": ...} errors

package stubbackend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

const (
	userContextKey = "user"
	timeLayout     = "2006-01-02T15:04:05"
)

// Server is the fake backend. All state is in memory and guarded by mu.
type Server struct {
	URL string

	echo     *echo.Echo
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	requests int64

	mu         sync.Mutex
	users      map[string]*user
	books      map[string]*book
	bookOrder  []string
	categories []string
}

// Option configures a Server
type Option func(*Server)

// WithSecret sets the HS256 signing key
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a Server seeded with the default catalog
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("stub-backend-secret"),
		tokenTTL: time.Hour,
		now:      time.Now,
		users:    make(map[string]*user),
		books:    make(map[string]*book),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seedCatalog()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = detailErrorHandler
	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&s.requests, 1)
			return next(c)
		}
	})
	s.echo = e
	s.routes()
	return s
}

// Start runs a Server on a loopback port for the duration of the test
func Start(tb testing.TB, opts ...Option) *Server {
	tb.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s.echo)
	tb.Cleanup(ts.Close)
	s.URL = ts.URL
	return s
}

// Handler exposes the router for callers that manage their own listener
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Requests returns how many requests reached the server
func (s *Server) Requests() int {
	return int(atomic.LoadInt64(&s.requests))
}

func (s *Server) routes() {
	e := s.echo
	auth := s.requireAuth

	e.GET("/", s.handleRoot)
	e.POST("/auth/register", s.handleRegister)
	e.POST("/auth/login", s.handleLogin)

	u := e.Group("/users", auth)
	u.GET("/me", s.handleMe)
	u.PATCH("/me/points", s.handleAddPoints)
	u.GET("/me/payment/history", s.handlePaymentHistory)
	u.POST("/me/payment/truemoney", s.handleTrueMoney)
	u.GET("/me/settings", s.handleGetSettings)
	u.PATCH("/me/settings", s.handleUpdateSettings)
	u.PATCH("/me/settings/:key", s.handleUpdateSetting)
	u.GET("/me/stats", s.handleUserStats)
	u.GET("/me/profile", s.handleGetProfile)
	u.PATCH("/me/profile", s.handleUpdateProfile)
	u.PATCH("/me/username", s.handleChangeUsername)
	u.GET("/profile/:username", s.handlePublicProfile)
	u.POST("/me/purchase/book", s.handlePurchase)
	u.GET("/me/library", s.handleLibrary)
	u.GET("/me/library/check/:id", s.handleCheckOwnership)
	u.DELETE("/me/library/:id", s.handleRemoveFromLibrary)

	b := e.Group("/books", auth)
	b.GET("/", s.handleListBooks)
	b.GET("/categories", s.handleCategories)
	b.GET("/category/:category", s.handleBooksByCategory)
	b.GET("/stats/categories", s.handleCategoryStats)
	b.GET("/stats/storage", s.handleStorageStats)
	b.GET("/stats/reading", s.handleReadingStats)
	b.GET("/recommend/personalized", s.handlePersonalized)
	b.GET("/recommend/category/:category", s.handleCategoryRecommend)
	b.GET("/user/reviews", s.handleUserReviews)
	b.PATCH("/reading/progress", s.handleReadingProgress)
	b.GET("/reading/in-progress", s.handleInProgress)
	b.GET("/reading/completed", s.handleCompletedList)
	b.POST("/reading/completed", s.handleMarkCompleted)
	b.GET("/:id", s.handleGetBook)
	b.DELETE("/:id", s.handleDeleteBook)
	b.GET("/:id/cover", s.handleCover)
	b.GET("/:id/read", s.handleRead)
	b.GET("/:id/download", s.handleDownload)
	b.GET("/:id/reviews", s.handleListReviews)
	b.POST("/:id/reviews", s.handleCreateReview)
	b.PATCH("/:id/reviews/:review_id", s.handleUpdateReview)
	b.DELETE("/:id/reviews/:review_id", s.handleDeleteReview)

	c := e.Group("/creator", auth)
	c.GET("/stats", s.handleCreatorStats)
	c.GET("/sales/history", s.handleSalesHistory)
	c.GET("/books", s.handleCreatorBooks)
	c.POST("/follow/:username", s.handleFollow)
	c.DELETE("/unfollow/:username", s.handleUnfollow)
}

// detailErrorHandler renders every error as {"detail": "..."}
func detailErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	_ = c.JSON(code, map[string]string{"detail": msg})
}

func detail(code int, msg string) error {
	return echo.NewHTTPError(code, msg)
}

var errCredentials = detail(http.StatusUnauthorized, "Could not validate credentials")

// IssueToken signs a token for username the way the backend's login does
func (s *Server) IssueToken(username string) string {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
		"jti": uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return detail(http.StatusUnauthorized, "Not authenticated")
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil || !token.Valid {
			return errCredentials
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return errCredentials
		}

		s.mu.Lock()
		u, ok := s.users[sub]
		s.mu.Unlock()
		if !ok {
			return errCredentials
		}
		c.Set(userContextKey, u)
		return next(c)
	}
}

func currentUser(c echo.Context) *user {
	return c.Get(userContextKey).(*user)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Shelf marketplace API"})
}

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var body registerBody
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}
	if body.Username == "" || body.Password == "" {
		return detail(http.StatusUnprocessableEntity, "Username and password are required")
	}

	s.mu.Lock()
	_, exists := s.users[body.Username]
	s.mu.Unlock()
	if exists {
		return detail(http.StatusBadRequest, "Username already registered")
	}
	if _, err := s.AddUser(body.Username, body.Password, 0); err != nil {
		return err
	}
	s.mu.Lock()
	s.users[body.Username].Email = body.Email
	s.mu.Unlock()

	return c.JSON(http.StatusOK, tokenBody{AccessToken: s.IssueToken(body.Username), TokenType: "bearer"})
}

type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var body registerBody
	if err := c.Bind(&body); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}

	s.mu.Lock()
	u, ok := s.users[body.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(body.Password)) != nil {
		return detail(http.StatusUnauthorized, "Incorrect username or password")
	}
	return c.JSON(http.StatusOK, tokenBody{AccessToken: s.IssueToken(u.Username), TokenType: "bearer"})
}

// pageParams reads skip/limit with the backend's defaults
func pageParams(c echo.Context, defaultLimit int) (int, int) {
	skip, err := strconv.Atoi(c.QueryParam("skip"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}

func window(n, skip, limit int) (int, int) {
	if skip > n {
		skip = n
	}
	end := skip + limit
	if end > n {
		end = n
	}
	return skip, end
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

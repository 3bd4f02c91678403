// ABOUTME: Current-user endpoints: profile snapshot, points, payments and settings
// ABOUTME: FetchCurrentUser is the call the session store resynchronizes through

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UserProfile is the backend's view of the current user. Its fields are
// owned by the backend; only points is relied on by this client.
type UserProfile map[string]interface{}

// Points returns the points balance if present
func (u UserProfile) Points() (int, bool) {
	return toInt(u["points"])
}

// Username returns the username field, or "" if missing
func (u UserProfile) Username() string {
	s, _ := u["username"].(string)
	return s
}

// Clone returns a shallow copy so callers can't mutate cached state
func (u UserProfile) Clone() UserProfile {
	if u == nil {
		return nil
	}
	out := make(UserProfile, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// WithPoints returns a copy of u with points replaced
func (u UserProfile) WithPoints(points int) UserProfile {
	out := u.Clone()
	if out == nil {
		out = UserProfile{}
	}
	out["points"] = points
	return out
}

// FetchCurrentUser calls GET /users/me with an explicit token
func (c *Client) FetchCurrentUser(ctx context.Context, token string) (UserProfile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	var user UserProfile
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me",
		auth:    true,
		token:   token,
		failMsg: "Failed to get user info",
	}, &user)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &Error{Kind: KindInvalidResponse, Status: http.StatusOK, Message: "backend returned an empty user profile"}
	}
	return user, nil
}

// CurrentUser calls GET /users/me with the token from the client's TokenSource
func (c *Client) CurrentUser(ctx context.Context) (UserProfile, error) {
	var token string
	if c.tokens != nil {
		token = c.tokens.Token(ctx)
	}
	return c.FetchCurrentUser(ctx, token)
}

// PointsResponse is returned after points are credited
type PointsResponse struct {
	Message     string `json:"message"`
	PointsAdded int    `json:"points_added"`
	Points      int    `json:"points"`
}

// AddPoints calls PATCH /users/me/points
func (c *Client) AddPoints(ctx context.Context, pointsToAdd int) (*PointsResponse, error) {
	if pointsToAdd <= 0 {
		return nil, invalid("points", "Points must be greater than 0")
	}
	var out PointsResponse
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/me/points",
		body:    map[string]int{"points_to_add": pointsToAdd},
		auth:    true,
		failMsg: "Failed to add points",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Payment is one entry of the payment history
type Payment struct {
	TransactionID string  `json:"transaction_id"`
	Type          string  `json:"type"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
	Points        int     `json:"points"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

// PaymentHistory is the body of GET /users/me/payment/history
type PaymentHistory struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
}

// PaymentHistory calls GET /users/me/payment/history
func (c *Client) PaymentHistory(ctx context.Context, limit, skip int) (*PaymentHistory, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("skip", fmt.Sprint(skip))

	var out PaymentHistory
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/payment/history",
		query:   q,
		auth:    true,
		failMsg: "Failed to get payment history",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentResult is returned by a completed top-up
type PaymentResult struct {
	Message       string  `json:"message"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	PointsAdded   int     `json:"points_added"`
	Points        int     `json:"points"`
}

// TrueMoneyPayment calls POST /users/me/payment/truemoney
func (c *Client) TrueMoneyPayment(ctx context.Context, voucher, phone string) (*PaymentResult, error) {
	if err := validateID("voucher", voucher); err != nil {
		return nil, err
	}
	if !ValidatePhone(phone) {
		return nil, invalid("phone", "Invalid phone number")
	}
	var out PaymentResult
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/users/me/payment/truemoney",
		body:    map[string]string{"voucher": voucher, "phone": phone},
		auth:    true,
		failMsg: "Payment failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings holds the user's reader preferences keyed by setting name
type Settings map[string]interface{}

// Settings calls GET /users/me/settings
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/settings",
		auth:    true,
		failMsg: "Failed to get settings",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings calls PATCH /users/me/settings
func (c *Client) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	if len(settings) == 0 {
		return nil, invalid("settings", "No settings provided for update")
	}
	var out Settings
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/me/settings",
		body:    settings,
		auth:    true,
		failMsg: "Failed to update settings",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSetting calls PATCH /users/me/settings/{key}
func (c *Client) UpdateSetting(ctx context.Context, key string, value interface{}) (Settings, error) {
	if err := validateID("key", key); err != nil {
		return nil, err
	}
	var out Settings
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/me/settings/" + url.PathEscape(key),
		body:    map[string]interface{}{"value": value},
		auth:    true,
		failMsg: "Failed to update setting",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserStats calls GET /users/me/stats
func (c *Client) UserStats(ctx context.Context) (Document, error) {
	var out Document
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/stats",
		auth:    true,
		failMsg: "Failed to get user stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

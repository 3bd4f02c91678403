// ABOUTME: Purchase and personal library endpoints
// ABOUTME: Purchases are paid in points and report the remaining balance

package client

import (
	"context"
	"net/http"
	"net/url"
)

// PurchaseResult is returned by a successful book purchase
type PurchaseResult struct {
	Message         string `json:"message"`
	BookID          string `json:"book_id"`
	PricePaid       int    `json:"price_paid"`
	RemainingPoints int    `json:"remaining_points"`
}

// PurchaseBook calls POST /users/me/purchase/book
func (c *Client) PurchaseBook(ctx context.Context, bookID string) (*PurchaseResult, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out PurchaseResult
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/users/me/purchase/book",
		body:    map[string]string{"book_id": bookID},
		auth:    true,
		failMsg: "Failed to purchase book",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LibraryEntry is a book the user owns
type LibraryEntry struct {
	BookID       string `json:"book_id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Category     string `json:"category,omitempty"`
	PricePaid    int    `json:"price_paid"`
	PurchasedAt  string `json:"purchased_at,omitempty"`
	LastReadPage int    `json:"last_read_page"`
	Status       string `json:"status,omitempty"`
}

// Library is the body of GET /users/me/library
type Library struct {
	Books []LibraryEntry `json:"books"`
	Total int            `json:"total"`
}

// Library calls GET /users/me/library
func (c *Client) Library(ctx context.Context, skip, limit int) (*Library, error) {
	var out Library
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/library",
		query:   page(skip, limit),
		auth:    true,
		failMsg: "Failed to get library",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ownership reports whether the user owns a book
type Ownership struct {
	BookID string `json:"book_id"`
	Owned  bool   `json:"owned"`
}

// CheckOwnership calls GET /users/me/library/check/{id}
func (c *Client) CheckOwnership(ctx context.Context, bookID string) (*Ownership, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out Ownership
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/library/check/" + url.PathEscape(bookID),
		auth:    true,
		failMsg: "Failed to check book ownership",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.BookID == "" {
		out.BookID = bookID
	}
	return &out, nil
}

// RemoveFromLibrary calls DELETE /users/me/library/{id}
func (c *Client) RemoveFromLibrary(ctx context.Context, bookID string) (*Message, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, request{
		method:  http.MethodDelete,
		path:    "/users/me/library/" + url.PathEscape(bookID),
		auth:    true,
		failMsg: "Failed to remove book from library",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ABOUTME: Book review endpoints
// ABOUTME: Ratings are 1-5 and review text is bounded before sending

package client

import (
	"context"
	"net/http"
	"net/url"
)

// Review is a single book review
type Review struct {
	ReviewID   string `json:"review_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	IsOwner    bool   `json:"is_owner"`
}

// BookReviews is the body of GET /books/{id}/reviews
type BookReviews struct {
	BookID        string   `json:"book_id"`
	BookTitle     string   `json:"book_title"`
	TotalReviews  int      `json:"total_reviews"`
	AverageRating float64  `json:"average_rating"`
	Reviews       []Review `json:"reviews"`
}

// CreateReview calls POST /books/{id}/reviews
func (c *Client) CreateReview(ctx context.Context, bookID string, rating int, text string) (*Review, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	if err := validateReviewText(text); err != nil {
		return nil, err
	}

	var out Review
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/books/" + url.PathEscape(bookID) + "/reviews",
		body: map[string]interface{}{
			"rating":      rating,
			"review_text": text,
		},
		auth:    true,
		failMsg: "Failed to create review",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BookReviews calls GET /books/{id}/reviews
func (c *Client) BookReviews(ctx context.Context, bookID string, skip, limit int) (*BookReviews, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out BookReviews
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/" + url.PathEscape(bookID) + "/reviews",
		query:   page(skip, limit),
		auth:    true,
		failMsg: "Failed to get reviews",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewUpdate holds the optional fields of a review edit
type ReviewUpdate struct {
	Rating     *int    `json:"rating,omitempty"`
	ReviewText *string `json:"review_text,omitempty"`
}

// UpdateReview calls PATCH /books/{id}/reviews/{reviewID}
func (c *Client) UpdateReview(ctx context.Context, bookID, reviewID string, upd ReviewUpdate) (*Review, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	if err := validateID("review_id", reviewID); err != nil {
		return nil, err
	}
	if upd.Rating == nil && upd.ReviewText == nil {
		return nil, invalid("review", "Nothing to update")
	}
	if upd.Rating != nil {
		if err := validateRating(*upd.Rating); err != nil {
			return nil, err
		}
	}
	if upd.ReviewText != nil {
		if err := validateReviewText(*upd.ReviewText); err != nil {
			return nil, err
		}
	}

	var out Review
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/books/" + url.PathEscape(bookID) + "/reviews/" + url.PathEscape(reviewID),
		body:    upd,
		auth:    true,
		failMsg: "Failed to update review",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReview calls DELETE /books/{id}/reviews/{reviewID}
func (c *Client) DeleteReview(ctx context.Context, bookID, reviewID string) (*Message, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	if err := validateID("review_id", reviewID); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, request{
		method:  http.MethodDelete,
		path:    "/books/" + url.PathEscape(bookID) + "/reviews/" + url.PathEscape(reviewID),
		auth:    true,
		failMsg: "Failed to delete review",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserReview is one of the current user's reviews, with its book
type UserReview struct {
	Review
	BookID    string `json:"book_id"`
	BookTitle string `json:"book_title"`
}

// UserReviews is the body of GET /books/user/reviews
type UserReviews struct {
	Reviews []UserReview `json:"reviews"`
	Total   int          `json:"total"`
}

// UserReviews calls GET /books/user/reviews
func (c *Client) UserReviews(ctx context.Context, skip, limit int) (*UserReviews, error) {
	var out UserReviews
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/user/reviews",
		query:   page(skip, limit),
		auth:    true,
		failMsg: "Failed to get user reviews",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ABOUTME: Reading progress endpoints
// ABOUTME: Tracks page and percentage per book and lists in-progress/completed books

package client

import (
	"context"
	"net/http"
)

// Reading statuses understood by the backend
const (
	StatusReading   = "reading"
	StatusCompleted = "completed"
)

// Progress is a reading position update
type Progress struct {
	Page               int     `json:"page"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
}

// ReadingEntry is a book with its reading position
type ReadingEntry struct {
	BookID             string  `json:"book_id"`
	Title              string  `json:"title"`
	Author             string  `json:"author"`
	Page               int     `json:"page"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Status             string  `json:"status"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

// ReadingList is the body of the in-progress and completed listings
type ReadingList struct {
	Books []ReadingEntry `json:"books"`
	Total int            `json:"total"`
}

// UpdateReadingProgress calls PATCH /books/reading/progress
func (c *Client) UpdateReadingProgress(ctx context.Context, bookID string, p Progress) (Document, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	if p.Page < 0 {
		return nil, invalid("page", "Page must not be negative")
	}
	if p.ProgressPercentage < 0 || p.ProgressPercentage > maxProgressPct {
		return nil, invalid("progress_percentage", "Progress must be between 0 and %d", maxProgressPct)
	}
	if p.Status == "" {
		p.Status = StatusReading
	}

	var out Document
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/books/reading/progress",
		body: map[string]interface{}{
			"book_id":             bookID,
			"page":                p.Page,
			"progress_percentage": p.ProgressPercentage,
			"status":              p.Status,
		},
		auth:    true,
		failMsg: "Failed to update reading progress",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadingInProgress calls GET /books/reading/in-progress
func (c *Client) ReadingInProgress(ctx context.Context, skip, limit int) (*ReadingList, error) {
	return c.readingList(ctx, "/books/reading/in-progress", skip, limit, "Failed to get reading list")
}

// ReadingCompleted calls GET /books/reading/completed
func (c *Client) ReadingCompleted(ctx context.Context, skip, limit int) (*ReadingList, error) {
	return c.readingList(ctx, "/books/reading/completed", skip, limit, "Failed to get completed books")
}

func (c *Client) readingList(ctx context.Context, path string, skip, limit int, failMsg string) (*ReadingList, error) {
	var out ReadingList
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    path,
		query:   page(skip, limit),
		auth:    true,
		failMsg: failMsg,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkCompleted calls POST /books/reading/completed. The backend reads
// book_id from a multipart form.
func (c *Client) MarkCompleted(ctx context.Context, bookID string) (Document, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out Document
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/books/reading/completed",
		form:    map[string]string{"book_id": bookID},
		auth:    true,
		failMsg: "Failed to mark book as completed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadingStats calls GET /books/stats/reading
func (c *Client) ReadingStats(ctx context.Context) (Document, error) {
	var out Document
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/stats/reading",
		auth:    true,
		failMsg: "Failed to get reading stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ABOUTME: Book catalog endpoints: listing, detail, content and statistics
// ABOUTME: Category list responses are cached because they rarely change

package client

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const categoriesCacheKey = "books:categories"

// Book is a catalog entry
type Book struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Cover       string  `json:"cover,omitempty"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       int     `json:"price"`
	CreatedAt   string  `json:"created_at"`
}

// BookQuery filters and orders a catalog listing
type BookQuery struct {
	Category string
	Search   string
	SortBy   string
	// SortOrder is 1 for ascending, -1 for descending, 0 for backend default
	SortOrder int
}

func (q BookQuery) values(skip, limit int) url.Values {
	v := page(skip, limit)
	if !isAllCategories(q.Category) {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != 0 {
		v.Set("sort_order", fmt.Sprint(q.SortOrder))
	}
	return v
}

// ListBooks calls GET /books/
func (c *Client) ListBooks(ctx context.Context, skip, limit int, q BookQuery) ([]Book, error) {
	var out []Book
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/",
		query:   q.values(skip, limit),
		auth:    true,
		failMsg: "Failed to get books",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchBooks is ListBooks filtered by a free-text query
func (c *Client) SearchBooks(ctx context.Context, query string, skip, limit int) ([]Book, error) {
	return c.ListBooks(ctx, skip, limit, BookQuery{Search: query})
}

// BooksByCategory calls GET /books/category/{category}
func (c *Client) BooksByCategory(ctx context.Context, category string, skip, limit int) ([]Book, error) {
	if err := validateID("category", category); err != nil {
		return nil, err
	}
	var out []Book
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/category/" + url.PathEscape(category),
		query:   page(skip, limit),
		auth:    true,
		failMsg: "Failed to get books by category",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Book calls GET /books/{id}
func (c *Client) Book(ctx context.Context, bookID string) (*Book, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out Book
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/" + url.PathEscape(bookID),
		auth:    true,
		failMsg: "Failed to get book details",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BookCover calls GET /books/{id}/cover. A book without a cover returns nil data
// and no error.
func (c *Client) BookCover(ctx context.Context, bookID string) ([]byte, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	data, _, err := c.doRaw(ctx, request{
		method:  http.MethodGet,
		path:    "/books/" + url.PathEscape(bookID) + "/cover",
		auth:    true,
		failMsg: "Failed to get book cover",
	})
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ReadBook calls GET /books/{id}/read and returns the PDF stream
func (c *Client) ReadBook(ctx context.Context, bookID string) ([]byte, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	data, _, err := c.doRaw(ctx, request{
		method:  http.MethodGet,
		path:    "/books/" + url.PathEscape(bookID) + "/read",
		auth:    true,
		failMsg: "Failed to read book",
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Download is a downloaded book file
type Download struct {
	Filename string
	Data     []byte
}

const defaultDownloadName = "book.pdf"

// DownloadBook calls GET /books/{id}/download
func (c *Client) DownloadBook(ctx context.Context, bookID string) (*Download, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	data, header, err := c.doRaw(ctx, request{
		method:  http.MethodGet,
		path:    "/books/" + url.PathEscape(bookID) + "/download",
		auth:    true,
		failMsg: "Failed to download book",
	})
	if err != nil {
		return nil, err
	}
	return &Download{
		Filename: filenameFrom(header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

// filenameFrom extracts the filename parameter of a Content-Disposition header
func filenameFrom(disposition string) string {
	if disposition == "" {
		return defaultDownloadName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return defaultDownloadName
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" || strings.ContainsAny(name, `/\`) {
		return defaultDownloadName
	}
	return name
}

// DeleteBook calls DELETE /books/{id} (admin only)
func (c *Client) DeleteBook(ctx context.Context, bookID string) (*Message, error) {
	if err := validateID("book_id", bookID); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, request{
		method:  http.MethodDelete,
		path:    "/books/" + url.PathEscape(bookID),
		auth:    true,
		failMsg: "Failed to delete book",
	}, &out)
	if err != nil {
		return nil, err
	}
	// the last book of a category may be gone
	c.InvalidateCategories()
	return &out, nil
}

type categoryResponse struct {
	Categories []string `json:"categories"`
}

// InvalidateCategories drops the cached category list so the next
// Categories call goes to the backend
func (c *Client) InvalidateCategories() {
	if c.categories != nil {
		c.categories.Clear(categoriesCacheKey)
	}
}

// Categories calls GET /books/categories. Concurrent callers share one
// request while the cache is cold.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	if c.categories != nil {
		if cached, ok := c.categories.Get(categoriesCacheKey); ok {
			return append([]string(nil), cached.([]string)...), nil
		}
	}

	v, err, _ := c.flights.Do(categoriesCacheKey, func() (interface{}, error) {
		var out categoryResponse
		err := c.do(ctx, request{
			method:  http.MethodGet,
			path:    "/books/categories",
			auth:    true,
			failMsg: "Failed to get categories",
		}, &out)
		if err != nil {
			return nil, err
		}
		if c.categories != nil {
			c.categories.Set(categoriesCacheKey, append([]string(nil), out.Categories...))
		}
		return out.Categories, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// CategoryStats calls GET /books/stats/categories (book count per category)
func (c *Client) CategoryStats(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/stats/categories",
		auth:    true,
		failMsg: "Failed to get category stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StorageStats calls GET /books/stats/storage
func (c *Client) StorageStats(ctx context.Context) (Document, error) {
	var out Document
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/stats/storage",
		auth:    true,
		failMsg: "Failed to get storage stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PersonalizedRecommendations calls GET /books/recommend/personalized
func (c *Client) PersonalizedRecommendations(ctx context.Context, limit int) ([]Book, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	var out []Book
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/recommend/personalized",
		query:   q,
		auth:    true,
		failMsg: "Failed to get recommendations",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryRecommendations calls GET /books/recommend/category/{category}
func (c *Client) CategoryRecommendations(ctx context.Context, category string, limit int) ([]Book, error) {
	if err := validateID("category", category); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	var out []Book
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/books/recommend/category/" + url.PathEscape(category),
		query:   q,
		auth:    true,
		failMsg: "Failed to get category recommendations",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

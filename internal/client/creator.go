// ABOUTME: Creator dashboard and follow endpoints
// ABOUTME: Sales history is bucketed by month on the backend

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreatorStats is the body of GET /creator/stats
type CreatorStats struct {
	TotalFollowers int `json:"total_followers"`
	TotalReaders   int `json:"total_readers"`
	TotalLikes     int `json:"total_likes"`
	TotalSales     int `json:"total_sales"`
	TotalBooks     int `json:"total_books"`
	TotalRevenue   int `json:"total_revenue"`
}

// SalesDataPoint is one month of sales
type SalesDataPoint struct {
	Month string `json:"month"`
	Value int    `json:"value"`
}

// CreatorBook is a book published by the current user
type CreatorBook struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Price         int    `json:"price"`
	TotalReaders  int    `json:"total_readers"`
	TotalComments int    `json:"total_comments"`
	IsPublic      bool   `json:"is_public"`
	CreatedAt     string `json:"created_at"`
}

// CreatorStats calls GET /creator/stats
func (c *Client) CreatorStats(ctx context.Context) (*CreatorStats, error) {
	var out CreatorStats
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/creator/stats",
		auth:    true,
		failMsg: "Failed to get creator stats",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SalesHistory calls GET /creator/sales/history
func (c *Client) SalesHistory(ctx context.Context, months int) ([]SalesDataPoint, error) {
	if months <= 0 {
		return nil, invalid("months", "Months must be greater than 0")
	}
	q := url.Values{}
	q.Set("months", fmt.Sprint(months))
	var out []SalesDataPoint
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/creator/sales/history",
		query:   q,
		auth:    true,
		failMsg: "Failed to get sales history",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreatorBooks calls GET /creator/books
func (c *Client) CreatorBooks(ctx context.Context, skip, limit int) ([]CreatorBook, error) {
	var out []CreatorBook
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/creator/books",
		query:   page(skip, limit),
		auth:    true,
		failMsg: "Failed to get creator books",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Follow calls POST /creator/follow/{username}
func (c *Client) Follow(ctx context.Context, creator string) (*Message, error) {
	return c.followRequest(ctx, http.MethodPost, "/creator/follow/", creator, "Failed to follow creator")
}

// Unfollow calls DELETE /creator/unfollow/{username}
func (c *Client) Unfollow(ctx context.Context, creator string) (*Message, error) {
	return c.followRequest(ctx, http.MethodDelete, "/creator/unfollow/", creator, "Failed to unfollow creator")
}

func (c *Client) followRequest(ctx context.Context, method, prefix, creator, failMsg string) (*Message, error) {
	if err := validateID("creator", creator); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, request{
		method:  method,
		path:    prefix + url.PathEscape(creator),
		auth:    true,
		failMsg: failMsg,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

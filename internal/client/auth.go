// ABOUTME: Registration and login endpoints
// ABOUTME: Both return a bearer token for the session store to persist

package client

import (
	"context"
	"net/http"
	"strings"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the body of POST /auth/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the issued bearer token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register calls POST /auth/register
func (c *Client) Register(ctx context.Context, in *RegisterRequest) (*TokenResponse, error) {
	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if !ValidateEmail(in.Email) {
		return nil, invalid("email", "Invalid email format")
	}
	if in.Password == "" {
		return nil, invalid("password", "Password is required")
	}

	var tok TokenResponse
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/auth/register",
		body:    in,
		failMsg: "Registration failed",
	}, &tok)
	if err != nil {
		return nil, err
	}
	return checkToken(&tok)
}

// Login calls POST /auth/login
func (c *Client) Login(ctx context.Context, in *Credentials) (*TokenResponse, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, invalid("credentials", "Username and password are required")
	}

	var tok TokenResponse
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/auth/login",
		body:    in,
		failMsg: "Login failed",
	}, &tok)
	if err != nil {
		return nil, err
	}
	return checkToken(&tok)
}

func checkToken(tok *TokenResponse) (*TokenResponse, error) {
	if tok.AccessToken == "" {
		return nil, &Error{Kind: KindInvalidResponse, Status: http.StatusOK, Message: "backend response did not include an access token"}
	}
	return tok, nil
}

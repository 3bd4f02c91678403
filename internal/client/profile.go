// ABOUTME: Profile endpoints for the current user and public user pages
// ABOUTME: Restricts profile updates to the fields the backend accepts

package client

import (
	"context"
	"net/http"
	"net/url"
)

// ProfileFields lists the fields accepted by PATCH /users/me/profile
var ProfileFields = []string{"email", "full_name", "bio", "avatar_url", "country", "phone"}

func isProfileField(name string) bool {
	for _, f := range ProfileFields {
		if f == name {
			return true
		}
	}
	return false
}

// Profile calls GET /users/me/profile
func (c *Client) Profile(ctx context.Context) (Document, error) {
	var out Document
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/me/profile",
		auth:    true,
		failMsg: "Failed to get profile",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile calls PATCH /users/me/profile. Unknown keys are dropped;
// at least one accepted field must remain.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]string) (Document, error) {
	filtered := make(map[string]string, len(fields))
	for k, v := range fields {
		if isProfileField(k) {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil, invalid("profile", "No valid fields provided for update")
	}
	if email, ok := filtered["email"]; ok && !ValidateEmail(email) {
		return nil, invalid("email", "Invalid email format")
	}
	if bio, ok := filtered["bio"]; ok {
		if err := ValidateBio(bio); err != nil {
			return nil, err
		}
	}
	if phone, ok := filtered["phone"]; ok && phone != "" && !ValidatePhone(phone) {
		return nil, invalid("phone", "Invalid phone number")
	}

	var out Document
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/me/profile",
		body:    filtered,
		auth:    true,
		failMsg: "Failed to update profile",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfileField updates a single profile field
func (c *Client) UpdateProfileField(ctx context.Context, name, value string) (Document, error) {
	if !isProfileField(name) {
		return nil, invalid(name, "Invalid field: %s", name)
	}
	return c.UpdateProfile(ctx, map[string]string{name: value})
}

// ChangeUsername calls PATCH /users/me/username
func (c *Client) ChangeUsername(ctx context.Context, newUsername, currentPassword string) (Document, error) {
	if err := ValidateUsername(newUsername); err != nil {
		return nil, err
	}
	if currentPassword == "" {
		return nil, invalid("current_password", "Current password is required")
	}

	var out Document
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/users/me/username",
		body: map[string]string{
			"new_username":     newUsername,
			"current_password": currentPassword,
		},
		auth:    true,
		failMsg: "Failed to change username",
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PublicProfile is the limited view of another user
type PublicProfile struct {
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Bio            string `json:"bio"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	TotalBooks     int    `json:"total_books"`
	TotalSales     int    `json:"total_sales"`
	JoinedDate     string `json:"joined_date,omitempty"`
	Role           string `json:"role"`
	IsFollowing    bool   `json:"is_following"`
}

// PublicProfile calls GET /users/profile/{username}
func (c *Client) PublicProfile(ctx context.Context, username string) (*PublicProfile, error) {
	if err := validateID("username", username); err != nil {
		return nil, err
	}
	var out PublicProfile
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "/users/profile/" + url.PathEscape(username),
		auth:    true,
		failMsg: "Failed to get user profile",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ABOUTME: Reads claims out of a bearer token without verifying it
// ABOUTME: Only used to show who is logged in and when the token expires

package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client can learn from a token on its own
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carries an exp claim
func (i TokenInfo) HasExpiry() bool {
	return !i.ExpiresAt.IsZero()
}

// Expired reports whether exp is in the past relative to now
func (i TokenInfo) Expired(now time.Time) bool {
	return i.HasExpiry() && !now.Before(i.ExpiresAt)
}

// InspectToken parses a JWT without checking its signature. The backend is
// the only party that can verify it; this is for display.
func InspectToken(token string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("token is not a JWT: %w", err)
	}

	var info TokenInfo
	sub, err := claims.GetSubject()
	if err != nil {
		return TokenInfo{}, fmt.Errorf("invalid sub claim: %w", err)
	}
	info.Subject = sub

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return TokenInfo{}, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

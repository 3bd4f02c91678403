// ABOUTME: Tests for unverified token inspection
// ABOUTME: Mints HS256 tokens the way the backend does and reads them back

package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/shelfhq/shelf/internal/session"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return signed
}

func TestInspectToken(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("subject and expiry", func(t *testing.T) {
		info, err := session.InspectToken(mint(t, jwt.MapClaims{"sub": "reader", "exp": exp.Unix()}))
		require.NoError(t, err)
		require.Equal(t, "reader", info.Subject)
		require.True(t, info.HasExpiry())
		require.True(t, info.ExpiresAt.Equal(exp))
		require.False(t, info.Expired(exp.Add(-time.Second)))
		require.True(t, info.Expired(exp))
	})

	t.Run("no expiry", func(t *testing.T) {
		info, err := session.InspectToken(mint(t, jwt.MapClaims{"sub": "reader"}))
		require.NoError(t, err)
		require.False(t, info.HasExpiry())
		require.False(t, info.Expired(time.Now()))
	})

	t.Run("expired tokens still inspect", func(t *testing.T) {
		info, err := session.InspectToken(mint(t, jwt.MapClaims{"sub": "reader", "exp": int64(1)}))
		require.NoError(t, err)
		require.True(t, info.Expired(time.Now()))
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := session.InspectToken("not-a-jwt")
		require.Error(t, err)
	})
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)
	token, err := j.Sign(Identity{UserID: "u1", Email: "u1@example.com", Name: "Ada"})
	require.NoError(t, err)

	id, err := j.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "u1", Email: "u1@example.com", Name: "Ada"}, id)
}

func TestJWTRejects(t *testing.T) {
	ctx := context.Background()
	j := NewJWT("secret", time.Hour)

	t.Run("expired", func(t *testing.T) {
		issued := time.Now().Add(-2 * time.Hour)
		old := NewJWT("secret", time.Hour)
		old.now = func() time.Time { return issued }
		token, err := old.Sign(Identity{UserID: "u1"})
		require.NoError(t, err)

		_, err = j.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWT("other", time.Hour).Sign(Identity{UserID: "u1"})
		require.NoError(t, err)

		_, err = j.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = j.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := j.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := j.Sign(Identity{})
		assert.Error(t, err)
	})
}

package authn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")

	token, err := IssueSessionToken(secret, "line", "U9f", "a@example.com", "A", time.Hour)
	assert.NoError(t, err)

	claims, err := ParseSessionToken(secret, token)
	assert.NoError(t, err)
	assert.Equal(t, "line", claims.Provider)
	assert.Equal(t, "U9f", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "A", claims.Name)
}

func TestParseSessionTokenRejects(t *testing.T) {
	secret := []byte("s3cret")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueSessionToken(secret, "google", "123", "", "", time.Hour)
		assert.NoError(t, err)

		_, err = ParseSessionToken([]byte("other"), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := IssueSessionToken(secret, "google", "123", "", "", -time.Minute)
		assert.NoError(t, err)

		_, err = ParseSessionToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseSessionToken(secret, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

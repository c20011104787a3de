package voting

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JarrySand/quadratic-voting-jp/internal/authn"
)

var testSecret = []byte("test-session-secret")

func sessionToken(t *testing.T, provider, subject, email, name string) string {
	t.Helper()
	token, err := authn.IssueSessionToken(testSecret, provider, subject, email, name, time.Hour)
	assert.NoError(t, err)
	return token
}

func TestUnifiedID(t *testing.T) {
	assert.Equal(t, "abc", IndividualContext("abc", "").UnifiedID())
	assert.Equal(t, "google:123", SocialContext(ProviderGoogle, "123", "", "").UnifiedID())
	assert.Equal(t, "line:U9f", SocialContext(ProviderLine, "U9f", "", "").UnifiedID())
}

func TestResolve(t *testing.T) {
	rs := NewResolver(testSecret)

	t.Run("body voter id wins", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/events/ev1/vote", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: sessionToken(t, "google", "123", "", "")})

		auth, err := rs.Resolve(req, "voter-1", "Alice")
		assert.NoError(t, err)
		assert.True(t, auth.IsIndividual())
		assert.Equal(t, "voter-1", auth.UnifiedID())
		assert.Equal(t, "Alice", auth.Name)
	})

	t.Run("query voter id over session", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot?voterId=voter-2", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: sessionToken(t, "google", "123", "", "")})

		auth, err := rs.Resolve(req, "", "")
		assert.NoError(t, err)
		assert.True(t, auth.IsIndividual())
		assert.Equal(t, "voter-2", auth.UnifiedID())
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: sessionToken(t, "line", "U9f", "u@example.com", "U")})

		auth, err := rs.Resolve(req, "", "")
		assert.NoError(t, err)
		assert.True(t, auth.IsSocial())
		assert.Equal(t, "line:U9f", auth.UnifiedID())
		assert.Equal(t, "u@example.com", auth.Email)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, "google", "123", "", ""))

		auth, err := rs.Resolve(req, "", "")
		assert.NoError(t, err)
		assert.Equal(t, "google:123", auth.UnifiedID())
	})

	t.Run("missing provider defaults to google", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: sessionToken(t, "", "123", "", "")})

		auth, err := rs.Resolve(req, "", "")
		assert.NoError(t, err)
		assert.Equal(t, "google:123", auth.UnifiedID())
	})

	t.Run("no credentials", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)

		_, err := rs.Resolve(req, "", "")
		assert.Equal(t, KindAuthRequired, kindOf(t, err))
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: "not-a-jwt"})

		_, err := rs.Resolve(req, "", "")
		assert.Equal(t, KindAuthRequired, kindOf(t, err))
	})

	t.Run("token without subject", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/events/ev1/ballot", nil)
		req.AddCookie(&http.Cookie{Name: authn.SessionCookie, Value: sessionToken(t, "google", "", "", "")})

		_, err := rs.Resolve(req, "", "")
		assert.Equal(t, KindAuthRequired, kindOf(t, err))
	})
}

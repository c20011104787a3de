package authn

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	creds := ProviderCredentials{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
	}
	return Config{
		SessionSecret: []byte("test-session-secret"),
		SessionTTL:    time.Hour,
		FrontendURL:   "http://localhost:3000",
		Google:        creds,
		Line:          creds,
	}
}

func testRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", SessionCookie)
	return nil
}

func fakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "good-code", r.Form.Get("code"))
		json.NewEncoder(w).Encode(googleTokenResponse{AccessToken: "at-1", TokenType: "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(googleUserInfo{Sub: "123", Email: "A@Example.com", Name: "A"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleLogin(t *testing.T) {
	h := NewHandlers(testConfig())

	rec := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/login", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, googleAuthURL)
	assert.Contains(t, loc, "client_id=client")

	t.Run("not configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.Google = ProviderCredentials{}
		rec := httptest.NewRecorder()
		testRouter(NewHandlers(cfg)).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/login", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGoogleCallback(t *testing.T) {
	srv := fakeGoogle(t)

	newHandlers := func() *Handlers {
		h := NewHandlers(testConfig())
		h.google.tokenURL = srv.URL + "/token"
		h.google.userinfoURL = srv.URL + "/userinfo"
		return h
	}

	t.Run("sets the session cookie and redirects", func(t *testing.T) {
		h := newHandlers()
		rec := httptest.NewRecorder()
		testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/callback?code=good-code", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))

		c := sessionCookie(t, rec)
		claims, err := ParseSessionToken([]byte("test-session-secret"), c.Value)
		assert.NoError(t, err)
		assert.Equal(t, "google", claims.Provider)
		assert.Equal(t, "123", claims.Subject)
		// Emails are normalized to lower case before they reach a ballot.
		assert.Equal(t, "a@example.com", claims.Email)
		assert.True(t, c.HttpOnly)
	})

	t.Run("json mode returns the token", func(t *testing.T) {
		h := newHandlers()
		rec := httptest.NewRecorder()
		testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/callback?code=good-code&mode=json", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["token"])
	})

	t.Run("missing code", func(t *testing.T) {
		h := newHandlers()
		rec := httptest.NewRecorder()
		testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/callback", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider declined", func(t *testing.T) {
		h := newHandlers()
		rec := httptest.NewRecorder()
		testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/callback?error=access_denied", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider down", func(t *testing.T) {
		h := NewHandlers(testConfig())
		h.google.tokenURL = "http://127.0.0.1:1/token"
		rec := httptest.NewRecorder()
		testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/callback?code=good-code", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestLineCallback(t *testing.T) {
	// The email only travels inside the id_token; the signature is not
	// checked, so any signing key works for the fixture.
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"email": "B@Example.com"}).SignedString([]byte("any"))
	assert.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lineTokenResponse{AccessToken: "at-2", IDToken: idToken})
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-2", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(lineProfile{UserID: "U9f", DisplayName: "B"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHandlers(testConfig())
	h.line.tokenURL = srv.URL + "/token"
	h.line.profileURL = srv.URL + "/profile"

	rec := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rec, httptest.NewRequest("GET", "/auth/line/callback?code=good-code", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	c := sessionCookie(t, rec)
	claims, err := ParseSessionToken([]byte("test-session-secret"), c.Value)
	assert.NoError(t, err)
	assert.Equal(t, "line", claims.Provider)
	assert.Equal(t, "U9f", claims.Subject)
	assert.Equal(t, "b@example.com", claims.Email)
	assert.Equal(t, "B", claims.Name)
}

func TestHandleMe(t *testing.T) {
	h := NewHandlers(testConfig())
	router := testRouter(h)

	t.Run("with cookie", func(t *testing.T) {
		token, err := IssueSessionToken([]byte("test-session-secret"), "google", "123", "a@example.com", "A", time.Hour)
		assert.NoError(t, err)

		req := httptest.NewRequest("GET", "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var id Identity
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
		assert.Equal(t, "google", id.Provider)
		assert.Equal(t, "123", id.Subject)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleLogout(t *testing.T) {
	h := NewHandlers(testConfig())
	rec := httptest.NewRecorder()
	testRouter(h).ServeHTTP(rec, httptest.NewRequest("POST", "/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	c := sessionCookie(t, rec)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

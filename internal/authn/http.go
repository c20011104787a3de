package authn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Identity is what a provider exchange yields: the provider-scoped subject
// plus whatever profile fields the provider shared.
type Identity struct {
	Provider string `json:"provider"`
	Subject  string `json:"providerUserId"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ProviderError wraps a failure while talking to an identity provider so
// callers can distinguish upstream trouble from bad client input.
type ProviderError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + " " + e.Stage + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Config struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	FrontendURL   string
	CookieSecure  bool
	Google        ProviderCredentials
	Line          ProviderCredentials
}

type Handlers struct {
	cfg    Config
	google *googleProvider
	line   *lineProvider
}

func NewHandlers(cfg Config) *Handlers {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Handlers{
		cfg:    cfg,
		google: newGoogleProvider(cfg.Google, client),
		line:   newLineProvider(cfg.Line, client),
	}
}

func (h *Handlers) Mount(r chi.Router) {
	r.Get("/auth/google/login", h.handleGoogleLogin)
	r.Get("/auth/google/callback", h.handleGoogleCallback)
	r.Get("/auth/line/login", h.handleLineLogin)
	r.Get("/auth/line/callback", h.handleLineCallback)
	r.Get("/auth/me", h.handleMe)
	r.Post("/auth/logout", h.handleLogout)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// loginRedirect packs the post-login destination into the OAuth state.
func (h *Handlers) loginRedirect(r *http.Request) string {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = h.cfg.FrontendURL
	}
	return url.QueryEscape(redirect)
}

func (h *Handlers) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		writeError(w, http.StatusServiceUnavailable, "google oauth not configured")
		return
	}
	http.Redirect(w, r, h.google.loginURL(h.loginRedirect(r)), http.StatusFound)
}

func (h *Handlers) handleLineLogin(w http.ResponseWriter, r *http.Request) {
	if !h.line.configured() {
		writeError(w, http.StatusServiceUnavailable, "line oauth not configured")
		return
	}
	http.Redirect(w, r, h.line.loginURL(h.loginRedirect(r)), http.StatusFound)
}

func (h *Handlers) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		writeError(w, http.StatusServiceUnavailable, "google oauth not configured")
		return
	}
	h.finishCallback(w, r, func(ctx context.Context, code string) (*Identity, error) {
		return h.google.exchange(ctx, code)
	})
}

func (h *Handlers) handleLineCallback(w http.ResponseWriter, r *http.Request) {
	if !h.line.configured() {
		writeError(w, http.StatusServiceUnavailable, "line oauth not configured")
		return
	}
	h.finishCallback(w, r, func(ctx context.Context, code string) (*Identity, error) {
		return h.line.exchange(ctx, code)
	})
}

// finishCallback runs the shared callback tail: exchange the code, mint the
// session token, set the cookie and send the browser back to the frontend.
func (h *Handlers) finishCallback(w http.ResponseWriter, r *http.Request, exchange func(context.Context, string) (*Identity, error)) {
	q := r.URL.Query()
	if errStr := q.Get("error"); errStr != "" {
		writeError(w, http.StatusBadRequest, "provider error: "+errStr)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	identity, err := exchange(r.Context(), code)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			log.Warn().Err(pe.Err).Str("provider", pe.Provider).Str("stage", pe.Stage).Msg("oauth exchange failed")
			if isTimeout(pe.Err) {
				writeError(w, http.StatusGatewayTimeout, "identity provider timed out")
				return
			}
			writeError(w, http.StatusBadGateway, "identity provider exchange failed")
			return
		}
		log.Error().Err(err).Msg("oauth callback")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := IssueSessionToken(h.cfg.SessionSecret, identity.Provider, identity.Subject,
		identity.Email, identity.Name, h.cfg.SessionTTL)
	if err != nil {
		log.Error().Err(err).Msg("issue session token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if q.Get("mode") == "json" {
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
		return
	}

	redirect := h.cfg.FrontendURL
	if state := q.Get("state"); state != "" {
		if decoded, err := url.QueryUnescape(state); err == nil && decoded != "" {
			redirect = decoded
		}
	}
	if _, err := url.Parse(redirect); err != nil {
		redirect = h.cfg.FrontendURL
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		raw = c.Value
	}
	if raw == "" {
		auth := r.Header.Get("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			raw = parts[1]
		}
	}
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	claims, err := ParseSessionToken(h.cfg.SessionSecret, raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, Identity{
		Provider: claims.Provider,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

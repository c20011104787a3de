package voting

import (
	"net/http"
	"strings"

	"github.com/JarrySand/quadratic-voting-jp/internal/authn"
)

// AuthContext is the unified voter identity. Exactly one variant is
// populated: an opaque individual voter id, or a federated identity.
type AuthContext struct {
	authType string

	VoterID string

	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}

func IndividualContext(voterID, name string) AuthContext {
	return AuthContext{authType: AuthTypeIndividual, VoterID: voterID, Name: name}
}

func SocialContext(provider, providerUserID, email, name string) AuthContext {
	return AuthContext{
		authType:       provider,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          email,
		Name:           name,
	}
}

func (a AuthContext) IsIndividual() bool {
	return a.authType == AuthTypeIndividual
}

func (a AuthContext) IsSocial() bool {
	return a.authType != "" && a.authType != AuthTypeIndividual
}

// AuthType is the value persisted on vote records: "individual" or the
// provider name.
func (a AuthContext) AuthType() string {
	return a.authType
}

// UnifiedID is the join key into vote records: the voter id verbatim for
// individual contexts, "provider:subject" for social ones.
func (a AuthContext) UnifiedID() string {
	if a.IsIndividual() {
		return a.VoterID
	}
	return a.Provider + ":" + a.ProviderUserID
}

// Resolver derives the AuthContext from a request. Resolution order is a
// deliberate precedence: an explicit individual voter id in the body, then
// in the query string, then a session token from transport credentials.
// A request carrying an individual id is never treated as social, even if
// a session cookie is also present.
type Resolver struct {
	secret []byte
}

func NewResolver(sessionSecret []byte) *Resolver {
	return &Resolver{secret: sessionSecret}
}

// Resolve takes the already-decoded body fields since the handler owns the
// request body; read-only lookups pass empty strings.
func (rs *Resolver) Resolve(r *http.Request, bodyVoterID, bodyName string) (AuthContext, error) {
	if bodyVoterID != "" {
		return IndividualContext(bodyVoterID, bodyName), nil
	}

	if id := r.URL.Query().Get("voterId"); id != "" {
		return IndividualContext(id, ""), nil
	}

	raw := sessionTokenFrom(r)
	if raw == "" {
		return AuthContext{}, errAuthRequired("authentication required")
	}

	claims, err := authn.ParseSessionToken(rs.secret, raw)
	if err != nil {
		return AuthContext{}, errAuthRequired("authentication required")
	}
	if claims.Subject == "" {
		return AuthContext{}, errAuthRequired("provider id unavailable")
	}

	provider := claims.Provider
	if provider == "" {
		provider = ProviderGoogle
	}
	return SocialContext(provider, claims.Subject, claims.Email, claims.Name), nil
}

func sessionTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(authn.SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

package voting

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type HTTPServer struct {
	store          Store
	rdb            *redis.Client
	resolver       *Resolver
	defaultCredits int
	exportKey      string
}

func NewRouter(store Store, rdb *redis.Client, resolver *Resolver, defaultCredits int, exportKey string) http.Handler {
	s := &HTTPServer{
		store:          store,
		rdb:            rdb,
		resolver:       resolver,
		defaultCredits: defaultCredits,
		exportKey:      exportKey,
	}

	r := chi.NewRouter()

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "voting-service",
		})
	})

	// events
	r.Post("/events", s.handleCreateEvent)
	r.Get("/events/{id}", s.handleGetEvent)
	r.Patch("/events/{id}", s.handlePatchEvent)
	r.Get("/events/{id}/stats", s.handleStats)
	r.Get("/events/{id}/export", s.handleExport)

	// ballots
	r.Post("/events/{id}/vote", s.handleVote)
	r.Get("/events/{id}/ballot", s.handleBallot)
	r.Get("/ballot", s.handleFindBallot)
	r.Get("/voters/{id}/exists", s.handleVoterExists)

	return r
}

package voting

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (s *HTTPServer) handleVote(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var body voteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, KindShape, "request body is not valid JSON")
		return
	}

	auth, err := s.resolver.Resolve(r, body.VoterID, body.Name)
	if err != nil {
		writeVotingError(w, err)
		return
	}

	resp, err := submitVote(r.Context(), s.store, auth, eventID, body.Votes, body.Name, s.defaultCredits, time.Now())
	if err != nil {
		writeVotingError(w, err)
		return
	}

	log.Info().
		Str("event_id", eventID).
		Str("auth_type", auth.AuthType()).
		Str("action", resp.Action).
		Msg("ballot recorded")

	s.publishEvent(r.Context(), "vote.cast", map[string]any{
		"eventId": eventID,
		"action":  resp.Action,
	})

	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleBallot(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	auth, err := s.resolver.Resolve(r, "", "")
	if err != nil {
		writeVotingError(w, err)
		return
	}

	resp, err := ballotFor(r.Context(), s.store, auth, eventID, s.defaultCredits)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFindBallot serves individual voters arriving on their opaque link:
// the voter id alone locates the event and the current ballot.
func (s *HTTPServer) handleFindBallot(w http.ResponseWriter, r *http.Request) {
	voterID := r.URL.Query().Get("id")
	if voterID == "" {
		writeError(w, http.StatusBadRequest, KindShape, "id query parameter is required")
		return
	}

	resp, err := ballotByVoterID(r.Context(), s.store, voterID, s.defaultCredits)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleVoterExists(w http.ResponseWriter, r *http.Request) {
	voterID := chi.URLParam(r, "id")

	rec, err := findRecord(s.store.FindIndividualVoter(r.Context(), voterID))
	if err != nil {
		writeVotingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": rec != nil})
}

package voting

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (s *HTTPServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in createEventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, KindShape, "request body is not valid JSON")
		return
	}

	ev, placeholders, result, err := buildEvent(&in)
	if err != nil {
		writeVotingError(w, err)
		return
	}

	id, err := s.store.CreateEvent(r.Context(), ev, placeholders)
	if err != nil {
		writeVotingError(w, storeFailure(err))
		return
	}
	result.ID = id

	log.Info().
		Str("event_id", id).
		Str("mode", ev.Mode()).
		Int("num_voters", ev.NumVoters).
		Msg("event created")

	writeJSON(w, http.StatusCreated, result)
}

type eventDetails struct {
	ID string `json:"id"`
	*eventSummary
	VotingMode string   `json:"votingMode"`
	VoterIDs   []string `json:"voterIds,omitempty"`
}

// handleGetEvent returns the public event view. The organizer secret, when
// it verifies, additionally reveals the allotted individual voter links.
func (s *HTTPServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	ev, err := loadEvent(r.Context(), s.store, eventID)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	data, err := parseEventData(ev)
	if err != nil {
		writeVotingError(w, err)
		return
	}

	details := eventDetails{
		ID:           ev.ID,
		eventSummary: summarizeEvent(ev, data, s.defaultCredits),
		VotingMode:   ev.Mode(),
	}
	if secret := r.URL.Query().Get("secret"); secret != "" && verifyEventSecret(ev, secret) == nil {
		details.VoterIDs = data.VoterIDs
	}
	writeJSON(w, http.StatusOK, details)
}

type patchEventInput struct {
	Secret    string     `json:"secret"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// handlePatchEvent lets the organizer move the voting window; the secret
// issued at creation authorizes the change.
func (s *HTTPServer) handlePatchEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var in patchEventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, KindShape, "request body is not valid JSON")
		return
	}

	ev, err := loadEvent(r.Context(), s.store, eventID)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	if err := verifyEventSecret(ev, in.Secret); err != nil {
		writeVotingError(w, err)
		return
	}

	start, end := ev.StartTime, ev.EndTime
	if in.StartTime != nil {
		start = *in.StartTime
	}
	if in.EndTime != nil {
		end = *in.EndTime
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, KindShape, "startTime must be before endTime")
		return
	}

	if err := s.store.UpdateEventPeriod(r.Context(), eventID, start, end); err != nil {
		writeVotingError(w, storeFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	secret := r.URL.Query().Get("secret")

	resp, err := statsFor(r.Context(), s.store, eventID, secret, s.defaultCredits)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport is the operator surface; the deployment-wide admin key
// gates it, not the per-event secret.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exportKey == "" || r.Header.Get("X-Admin-Key") != s.exportKey {
		writeError(w, http.StatusForbidden, KindForbidden, "invalid admin key")
		return
	}

	eventID := chi.URLParam(r, "id")
	resp, err := exportFor(r.Context(), s.store, eventID, s.defaultCredits)
	if err != nil {
		writeVotingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

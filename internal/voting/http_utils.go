package voting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind Kind, msg string) {
	writeJSON(w, status, map[string]string{
		"errorKind": string(kind),
		"message":   msg,
	})
}

// writeVotingError maps a typed rejection onto the wire; budget rejections
// additionally carry the computed cost against the budget.
func writeVotingError(w http.ResponseWriter, err error) {
	var ve *Error
	if errors.As(err, &ve) {
		if ve.Credits != nil {
			writeJSON(w, ve.Status, map[string]any{
				"errorKind":        string(ve.Kind),
				"message":          ve.Message,
				"totalCost":        ve.Credits.TotalCost,
				"maxCredits":       ve.Credits.MaxCredits,
				"remainingCredits": ve.Credits.RemainingCredits,
			})
			return
		}
		writeError(w, ve.Status, ve.Kind, ve.Message)
		return
	}
	log.Error().Err(err).Msg("unhandled request failure")
	writeError(w, http.StatusInternalServerError, KindInternal, "internal error")
}

func (s *HTTPServer) publishEvent(ctx context.Context, eventType string, payload any) {
	if s.rdb == nil {
		return
	}

	body := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("publish broadcast")
	}
}

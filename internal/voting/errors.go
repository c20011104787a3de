package voting

import "net/http"

// Kind identifies a failure class on the wire; it maps one-to-one onto an
// HTTP status class in writeVotingError.
type Kind string

const (
	KindAuthRequired       Kind = "authentication_required"
	KindNotFound           Kind = "event_not_found"
	KindMalformedEventData Kind = "malformed_event_data"
	KindNotStarted         Kind = "voting_not_started"
	KindEnded              Kind = "voting_ended"
	KindModeMismatch       Kind = "voting_mode_mismatch"
	KindShape              Kind = "invalid_vote_shape"
	KindLengthMismatch     Kind = "vote_length_mismatch"
	KindInvalidVoteValue   Kind = "invalid_vote_value"
	KindBudgetExceeded     Kind = "budget_exceeded"
	KindDuplicateVote      Kind = "duplicate_vote"
	KindForbidden          Kind = "forbidden"
	KindStoreUnavailable   Kind = "store_unavailable"
	KindProviderTimeout    Kind = "auth_provider_timeout"
	KindInternal           Kind = "internal_error"
)

// Error is the typed failure every validation and orchestration step
// returns. Credits is set only on budget rejections so the UI can show the
// computed total against the budget.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Credits *CreditSummary
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Status: status, Message: msg}
}

func errAuthRequired(msg string) *Error {
	return newError(KindAuthRequired, http.StatusUnauthorized, msg)
}

func errNotFound(msg string) *Error {
	return newError(KindNotFound, http.StatusNotFound, msg)
}

func errMalformedEventData(msg string) *Error {
	return newError(KindMalformedEventData, http.StatusInternalServerError, msg)
}

func errNotStarted() *Error {
	return newError(KindNotStarted, http.StatusForbidden, "voting has not started yet")
}

func errEnded() *Error {
	return newError(KindEnded, http.StatusForbidden, "voting has ended")
}

func errModeMismatch(msg string) *Error {
	return newError(KindModeMismatch, http.StatusForbidden, msg)
}

func errShape(msg string) *Error {
	return newError(KindShape, http.StatusBadRequest, msg)
}

func errLengthMismatch(msg string) *Error {
	return newError(KindLengthMismatch, http.StatusBadRequest, msg)
}

func errInvalidVoteValue(msg string) *Error {
	return newError(KindInvalidVoteValue, http.StatusBadRequest, msg)
}

func errBudgetExceeded(totalCost, maxCredits int) *Error {
	e := newError(KindBudgetExceeded, http.StatusBadRequest, "vote cost exceeds the credit budget")
	e.Credits = &CreditSummary{
		TotalCost:        totalCost,
		MaxCredits:       maxCredits,
		RemainingCredits: maxCredits - totalCost,
	}
	return e
}

func errDuplicateVote(authType string) *Error {
	return newError(KindDuplicateVote, http.StatusConflict,
		"a ballot with this email already exists under "+authType+" authentication")
}

func errForbidden(msg string) *Error {
	return newError(KindForbidden, http.StatusForbidden, msg)
}

func errStoreUnavailable() *Error {
	return newError(KindStoreUnavailable, http.StatusServiceUnavailable, "storage temporarily unavailable")
}

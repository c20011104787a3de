package voting

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ParseVotes turns the raw votes field into a vote array. A payload that is
// not a JSON array is a shape error; fractional or negative elements are
// value errors, never clamped.
func ParseVotes(raw json.RawMessage) ([]int, error) {
	if len(raw) == 0 {
		return nil, errShape("votes must be an array")
	}

	var nums []json.Number
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, errShape("votes must be an array")
	}

	votes := make([]int, len(nums))
	for i, n := range nums {
		v, err := n.Int64()
		if err != nil {
			return nil, errInvalidVoteValue("votes must be non-negative integers")
		}
		if v < 0 {
			return nil, errInvalidVoteValue("votes must be non-negative integers")
		}
		votes[i] = int(v)
	}
	return votes, nil
}

// ValidateVotes checks the vote array against the event's option count.
func ValidateVotes(votes []int, optionCount int) error {
	if len(votes) != optionCount {
		return errLengthMismatch(fmt.Sprintf("expected %d vote entries, got %d", optionCount, len(votes)))
	}
	for _, v := range votes {
		if v < 0 {
			return errInvalidVoteValue("votes must be non-negative integers")
		}
	}
	return nil
}

// ValidateCredits checks the quadratic cost of the vote array against the
// budget and returns the computed summary on success.
func ValidateCredits(votes []int, budget int) (*CreditSummary, error) {
	total := TotalCost(votes)
	if total > budget {
		return nil, errBudgetExceeded(total, budget)
	}
	return &CreditSummary{
		TotalCost:        total,
		MaxCredits:       budget,
		RemainingCredits: budget - total,
	}, nil
}

// ResolveBudget picks the per-voter budget: the value embedded in the event
// data blob wins over the event's stored column; the configured default
// applies only when both are absent, which is a configuration anomaly worth
// flagging.
func ResolveBudget(ev *Event, data *EventData, fallback int) int {
	if data.CreditsPerVoter > 0 {
		return data.CreditsPerVoter
	}
	if ev.CreditsPerVoter > 0 {
		return ev.CreditsPerVoter
	}
	log.Warn().Str("eventId", ev.ID).Int("fallback", fallback).
		Msg("event has no credit budget configured, using fallback")
	return fallback
}

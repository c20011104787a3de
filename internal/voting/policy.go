package voting

import "time"

// ValidatePeriod enforces the voting window. Both boundaries are inside the
// window: now == start and now == end are valid.
func ValidatePeriod(ev *Event, now time.Time) error {
	if now.Before(ev.StartTime) {
		return errNotStarted()
	}
	if now.After(ev.EndTime) {
		return errEnded()
	}
	return nil
}

// ValidateMode checks that the resolved auth context matches the event's
// voting mode: individual contexts only for individual events, social
// contexts only for social events.
func ValidateMode(ev *Event, auth AuthContext) error {
	switch {
	case auth.IsIndividual() && ev.Mode() != ModeIndividual:
		return errModeMismatch("this event does not accept individual ballots")
	case auth.IsSocial() && ev.Mode() != ModeSocial:
		return errModeMismatch("this event does not accept social-login ballots")
	}
	return nil
}

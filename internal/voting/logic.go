package voting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// parseEventData turns the event's embedded configuration blob into its
// typed form. Done once per request, right after the event is loaded.
func parseEventData(ev *Event) (*EventData, error) {
	var data EventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return nil, errMalformedEventData("event configuration is not valid JSON")
	}
	if data.Options == nil {
		return nil, errMalformedEventData("event configuration has no options list")
	}
	return &data, nil
}

// storeFailure maps deadline and cancellation errors onto the transient
// store-unavailable kind; everything else passes through.
func storeFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errStoreUnavailable()
	}
	return err
}

// findRecord swallows the no-rows case so callers get (nil, nil) for a
// missing record.
func findRecord(rec *VoteRecord, err error) (*VoteRecord, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeFailure(err)
	}
	return rec, nil
}

func loadEvent(ctx context.Context, store Store, eventID string) (*Event, error) {
	ev, err := store.LoadEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound("event not found")
		}
		return nil, storeFailure(err)
	}
	return ev, nil
}

// submitVote runs the full submission pipeline. Persistence is the single
// last step; every rejection happens before anything is written.
func submitVote(ctx context.Context, store Store, auth AuthContext, eventID string, rawVotes json.RawMessage, name string, defaultCredits int, now time.Time) (*voteResponse, error) {
	ev, err := loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, err
	}
	data, err := parseEventData(ev)
	if err != nil {
		return nil, err
	}

	if err := ValidatePeriod(ev, now); err != nil {
		return nil, err
	}
	if err := ValidateMode(ev, auth); err != nil {
		return nil, err
	}

	votes, err := ParseVotes(rawVotes)
	if err != nil {
		return nil, err
	}
	if err := ValidateVotes(votes, len(data.Options)); err != nil {
		return nil, err
	}
	summary, err := ValidateCredits(votes, ResolveBudget(ev, data, defaultCredits))
	if err != nil {
		return nil, err
	}

	// Known gap, kept on purpose: a voter with a second social identity and
	// a different email slips through, and a social account without an
	// email is never checked.
	if auth.Email != "" {
		dup, err := findRecord(store.FindDuplicateByEmail(ctx, eventID, auth.Email, auth.UnifiedID()))
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return nil, errDuplicateVote(dup.AuthType)
		}
	}

	prior, err := findRecord(store.FindByUnifiedID(ctx, eventID, auth.UnifiedID()))
	if err != nil {
		return nil, err
	}

	if _, err := store.Upsert(ctx, eventID, auth, buildVoteData(votes, data), name, now); err != nil {
		return nil, storeFailure(err)
	}

	// Individual-mode placeholders exist before any submission; only a
	// prior record that has actually voted counts as an update.
	action := "created"
	if prior != nil && prior.VotedAt != nil {
		action = "updated"
	}
	return &voteResponse{Action: action, VoterID: auth.UnifiedID(), Credits: summary}, nil
}

// buildVoteData pairs each option with the submitted count by position.
func buildVoteData(votes []int, data *EventData) []VoteItem {
	items := make([]VoteItem, len(data.Options))
	for i, opt := range data.Options {
		v := 0
		if i < len(votes) {
			v = votes[i]
		}
		items[i] = VoteItem{
			Title:       opt.Title,
			Description: opt.Description,
			URL:         opt.URL,
			Votes:       v,
		}
	}
	return items
}

func initialVoteData(data *EventData) []VoteItem {
	return buildVoteData(nil, data)
}

func summarizeEvent(ev *Event, data *EventData, defaultCredits int) *eventSummary {
	return &eventSummary{
		Title:           ev.Title,
		Description:     ev.Description,
		StartTime:       ev.StartTime,
		EndTime:         ev.EndTime,
		CreditsPerVoter: ResolveBudget(ev, data, defaultCredits),
		Options:         data.Options,
	}
}

// ballotFor builds the lookup response for a known event. A voter who has
// not voted yet gets the zeroed initial ballot.
func ballotFor(ctx context.Context, store Store, auth AuthContext, eventID string, defaultCredits int) (*ballotResponse, error) {
	ev, err := loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, err
	}
	data, err := parseEventData(ev)
	if err != nil {
		return nil, err
	}

	voter, err := findRecord(store.FindByUnifiedID(ctx, eventID, auth.UnifiedID()))
	if err != nil {
		return nil, err
	}

	resp := &ballotResponse{
		Exists:           true,
		EventID:          ev.ID,
		VoterDisplayName: auth.Name,
		VoteData:         initialVoteData(data),
		EventSummary:     summarizeEvent(ev, data, defaultCredits),
	}
	if voter != nil {
		resp.VoteData = voter.VoteData
		if voter.Name != "" {
			resp.VoterDisplayName = voter.Name
		}
	}
	if auth.IsSocial() {
		resp.UserInfo = &userInfo{
			Provider:       auth.Provider,
			ProviderUserID: auth.ProviderUserID,
			Email:          auth.Email,
			Name:           auth.Name,
		}
		hasVoted := voter != nil && voter.VotedAt != nil
		resp.HasVoted = &hasVoted
	}
	return resp, nil
}

// ballotByVoterID serves individual voters arriving on their opaque link
// without knowing the event id: the voter record locates the event.
func ballotByVoterID(ctx context.Context, store Store, voterID string, defaultCredits int) (*ballotResponse, error) {
	voter, err := findRecord(store.FindIndividualVoter(ctx, voterID))
	if err != nil {
		return nil, err
	}
	if voter == nil {
		return &ballotResponse{Exists: false}, nil
	}

	ev, err := loadEvent(ctx, store, voter.EventID)
	if err != nil {
		return nil, err
	}
	data, err := parseEventData(ev)
	if err != nil {
		return nil, err
	}

	return &ballotResponse{
		Exists:           true,
		EventID:          voter.EventID,
		VoterDisplayName: voter.Name,
		VoteData:         voter.VoteData,
		EventSummary:     summarizeEvent(ev, data, defaultCredits),
	}, nil
}

type createEventInput struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Options         []Option  `json:"options"`
	CreditsPerVoter int       `json:"creditsPerVoter"`
	VotingMode      string    `json:"votingMode"`
	NumVoters       int       `json:"numVoters"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
}

type createEventResult struct {
	ID       string   `json:"id"`
	Secret   string   `json:"secret"`
	VoterIDs []string `json:"voterIds,omitempty"`
}

// buildEvent validates organizer input and prepares the event row, the
// admin secret (returned once, stored hashed) and, for individual mode,
// one opaque voter id plus a zeroed placeholder ballot per slot.
func buildEvent(in *createEventInput) (*Event, []VoteRecord, *createEventResult, error) {
	if in.Title == "" {
		return nil, nil, nil, errShape("title is required")
	}
	if len(in.Options) < 2 {
		return nil, nil, nil, errShape("an event needs at least two options")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() || !in.StartTime.Before(in.EndTime) {
		return nil, nil, nil, errShape("startTime must be before endTime")
	}
	if in.CreditsPerVoter <= 0 {
		return nil, nil, nil, errShape("creditsPerVoter must be positive")
	}

	mode := in.VotingMode
	if mode == "" {
		mode = ModeIndividual
	}
	if mode != ModeIndividual && mode != ModeSocial {
		return nil, nil, nil, errShape("votingMode must be individual or social")
	}
	if mode == ModeIndividual && in.NumVoters <= 0 {
		return nil, nil, nil, errShape("numVoters must be positive for individual events")
	}

	var voterIDs []string
	var placeholders []VoteRecord
	if mode == ModeIndividual {
		data := &EventData{Options: in.Options}
		for i := 0; i < in.NumVoters; i++ {
			id := uuid.NewString()
			voterIDs = append(voterIDs, id)
			placeholders = append(placeholders, VoteRecord{
				AuthType: AuthTypeIndividual,
				UserID:   id,
				VoteData: initialVoteData(data),
			})
		}
	}

	blob, err := json.Marshal(&EventData{
		Options:         in.Options,
		CreditsPerVoter: in.CreditsPerVoter,
		VoterIDs:        voterIDs,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, nil, err
	}

	ev := &Event{
		Title:           in.Title,
		Description:     in.Description,
		NumVoters:       in.NumVoters,
		CreditsPerVoter: in.CreditsPerVoter,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		VotingMode:      mode,
		SecretHash:      string(hash),
		Data:            blob,
	}
	return ev, placeholders, &createEventResult{Secret: secret, VoterIDs: voterIDs}, nil
}

func verifyEventSecret(ev *Event, secret string) error {
	if secret == "" {
		return errForbidden("event secret required")
	}
	if bcrypt.CompareHashAndPassword([]byte(ev.SecretHash), []byte(secret)) != nil {
		return errForbidden("invalid event secret")
	}
	return nil
}

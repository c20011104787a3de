package voting

import (
	"encoding/json"
	"time"
)

const (
	ModeIndividual = "individual"
	ModeSocial     = "social"

	AuthTypeIndividual = "individual"

	ProviderGoogle = "google"
	ProviderLine   = "line"
)

// Event is one voting event. Options and the per-voter budget live inside
// the embedded Data blob; Mode() normalizes legacy voting_mode values.
type Event struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	NumVoters        int             `json:"numVoters"`
	CreditsPerVoter  int             `json:"creditsPerVoter"`
	StartTime        time.Time       `json:"startTime"`
	EndTime          time.Time       `json:"endTime"`
	VotingMode       string          `json:"votingMode"`
	SecretHash       string          `json:"-"`
	Data             json.RawMessage `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Mode folds the legacy social_auth / google_auth values into ModeSocial.
func (e *Event) Mode() string {
	switch e.VotingMode {
	case "social_auth", "google_auth", ModeSocial:
		return ModeSocial
	default:
		return ModeIndividual
	}
}

// Option is one voteable subject. Its position in the options list is the
// only stable identifier vote arrays are aligned against.
type Option struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// EventData is the typed form of the event's embedded configuration blob,
// parsed once per request at the event-loaded step.
type EventData struct {
	Options         []Option `json:"options"`
	CreditsPerVoter int      `json:"credits_per_voter,omitempty"`
	VoterIDs        []string `json:"voter_ids,omitempty"`
}

// VoteItem pairs an option with the votes a single voter gave it.
type VoteItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Votes       int    `json:"votes"`
}

// VoteRecord is one ballot, unique per (event, unified user id).
// A placeholder record (VotedAt nil, zeroed votes) pre-exists per allotted
// slot in individual mode.
type VoteRecord struct {
	ID        string     `json:"id"`
	EventID   string     `json:"eventId"`
	AuthType  string     `json:"authType"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	VoteData  []VoteItem `json:"voteData"`
	VotedAt   *time.Time `json:"votedAt,omitempty"`
}

// CreditSummary is returned by ValidateCredits on success for display and
// audit purposes.
type CreditSummary struct {
	TotalCost        int `json:"totalCost"`
	MaxCredits       int `json:"maxCredits"`
	RemainingCredits int `json:"remainingCredits"`
}

type voteRequest struct {
	// Votes stays raw so a non-array payload maps to a shape error instead
	// of a generic decode failure.
	Votes   json.RawMessage `json:"votes"`
	VoterID string          `json:"voterId,omitempty"`
	Name    string          `json:"displayName,omitempty"`
}

type voteResponse struct {
	Action  string         `json:"action"`
	VoterID string         `json:"voterId"`
	Credits *CreditSummary `json:"credits,omitempty"`
}

type eventSummary struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	CreditsPerVoter int       `json:"creditsPerVoter"`
	Options         []Option  `json:"options"`
}

type ballotResponse struct {
	Exists           bool          `json:"exists"`
	EventID          string        `json:"eventId,omitempty"`
	VoterDisplayName string        `json:"voterDisplayName,omitempty"`
	VoteData         []VoteItem    `json:"voteData,omitempty"`
	EventSummary     *eventSummary `json:"eventSummary,omitempty"`
	UserInfo         *userInfo     `json:"userInfo,omitempty"`
	HasVoted         *bool         `json:"hasVoted,omitempty"`
}

type userInfo struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"providerUserId"`
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
}

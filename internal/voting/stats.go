package voting

import (
	"context"
	"sort"
	"time"
)

type optionStat struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	TotalVotes  int    `json:"totalVotes"`
	TotalCost   int    `json:"totalCost"`
	VoterCount  int    `json:"voterCount"`
}

type statsTotals struct {
	TotalVoters       int            `json:"totalVoters"`
	TotalVotes        int            `json:"totalVotes"`
	TotalCost         int            `json:"totalCost"`
	ProviderBreakdown map[string]int `json:"providerBreakdown"`
}

type statsVoter struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Provider string     `json:"provider"`
	Email    string     `json:"email,omitempty"`
	VoteData []VoteItem `json:"voteData,omitempty"`
	VotedAt  *time.Time `json:"votedAt,omitempty"`
}

type statsResponse struct {
	Event   *eventSummary `json:"event"`
	Stats   statsTotals   `json:"stats"`
	Results []optionStat  `json:"results"`
	Voters  []statsVoter  `json:"voters"`
	IsAdmin bool          `json:"isAdmin"`
}

// computeOptionStats aggregates ballots per option index: linear vote sums
// for the chart, quadratic cost for audit, and how many voters backed the
// option at all.
func computeOptionStats(data *EventData, voters []VoteRecord) []optionStat {
	out := make([]optionStat, len(data.Options))
	for i, opt := range data.Options {
		stat := optionStat{Title: opt.Title, Description: opt.Description, URL: opt.URL}
		for _, voter := range voters {
			if i >= len(voter.VoteData) {
				continue
			}
			v := voter.VoteData[i].Votes
			stat.TotalVotes += v
			stat.TotalCost += Cost(v)
			if v > 0 {
				stat.VoterCount++
			}
		}
		out[i] = stat
	}
	return out
}

// statsFor builds the aggregated-results view. A wrong or missing secret
// degrades to the public view rather than failing; only social events have
// a public results surface.
func statsFor(ctx context.Context, store Store, eventID, secret string, defaultCredits int) (*statsResponse, error) {
	ev, err := loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Mode() != ModeSocial {
		return nil, errModeMismatch("this event does not expose social voting results")
	}
	data, err := parseEventData(ev)
	if err != nil {
		return nil, err
	}

	isAdmin := secret != "" && verifyEventSecret(ev, secret) == nil

	voters, err := store.ListVoters(ctx, eventID, true)
	if err != nil {
		return nil, storeFailure(err)
	}

	results := computeOptionStats(data, voters)

	totals := statsTotals{
		TotalVoters:       len(voters),
		ProviderBreakdown: map[string]int{},
	}
	for _, r := range results {
		totals.TotalVotes += r.TotalVotes
		totals.TotalCost += r.TotalCost
	}
	for _, v := range voters {
		totals.ProviderBreakdown[v.AuthType]++
	}

	out := make([]statsVoter, len(voters))
	for i, v := range voters {
		out[i] = statsVoter{
			ID:       v.ID,
			Name:     v.Name,
			Provider: v.AuthType,
			VotedAt:  v.VotedAt,
		}
		if isAdmin {
			out[i].Email = v.Email
			out[i].VoteData = v.VoteData
		}
	}

	return &statsResponse{
		Event:   summarizeEvent(ev, data, defaultCredits),
		Stats:   totals,
		Results: results,
		Voters:  out,
		IsAdmin: isAdmin,
	}, nil
}

type exportRow struct {
	UserID           string     `json:"userId"`
	AuthType         string     `json:"authType"`
	Name             string     `json:"name,omitempty"`
	VoteData         []VoteItem `json:"voteData"`
	VotedAt          *time.Time `json:"votedAt,omitempty"`
	SecondsFromStart int64      `json:"secondsFromStart"`
}

type exportResponse struct {
	Event *eventSummary `json:"event"`
	Rows  []exportRow   `json:"rows"`
}

// exportFor is the operator-facing dump of every ballot with its offset
// from the event start, ordered by submission time.
func exportFor(ctx context.Context, store Store, eventID string, defaultCredits int) (*exportResponse, error) {
	ev, err := loadEvent(ctx, store, eventID)
	if err != nil {
		return nil, err
	}
	data, err := parseEventData(ev)
	if err != nil {
		return nil, err
	}

	voters, err := store.ListVoters(ctx, eventID, false)
	if err != nil {
		return nil, storeFailure(err)
	}
	sort.SliceStable(voters, func(i, j int) bool {
		a, b := voters[i].VotedAt, voters[j].VotedAt
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	rows := make([]exportRow, len(voters))
	for i, v := range voters {
		row := exportRow{
			UserID:   v.UserID,
			AuthType: v.AuthType,
			Name:     v.Name,
			VoteData: v.VoteData,
			VotedAt:  v.VotedAt,
		}
		if v.VotedAt != nil {
			row.SecondsFromStart = int64(v.VotedAt.Sub(ev.StartTime) / time.Second)
		}
		rows[i] = row
	}

	return &exportResponse{
		Event: summarizeEvent(ev, data, defaultCredits),
		Rows:  rows,
	}, nil
}

package response

import "github.com/Guyuepp/likers-match/domain"

type Match struct {
	MatchID   string `json:"match_id"`
	ChannelID string `json:"channel_id"`
	UserA     string `json:"user_a"`
	UserB     string `json:"user_b"`
	CreatedAt string `json:"created_at"`
}

type Outcome struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Matched   bool   `json:"matched"`
	Passed    bool   `json:"passed"`
	Match     *Match `json:"match,omitempty"`
}

// NewOutcomeFromDomain: Domain -> Response
func NewOutcomeFromDomain(o *domain.Outcome) Outcome {
	res := Outcome{
		EventID:   o.EventID,
		Duplicate: o.Duplicate,
		Matched:   o.Match != nil,
		Passed:    o.Pass != nil,
	}
	if o.Match != nil {
		res.Match = &Match{
			MatchID:   o.Match.Match.ID,
			ChannelID: o.Match.Channel.ID,
			UserA:     o.Match.Match.UserA,
			UserB:     o.Match.Match.UserB,
			CreatedAt: o.Match.Match.CreatedAt.Format(DateTimeFormat),
		}
	}
	return res
}

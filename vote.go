package thegoat

import (
	"time"
)

// A Vote records that an identity picked an option. There is at most one vote per poll and
// voter key.
type Vote struct {
	ID        string    `db:"id" json:"id"`
	PollID    string    `db:"poll_id" json:"poll_id"`
	OptionID  string    `db:"option_id" json:"option_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	IPAddress string    `db:"ip_address" json:"-"`
	VoterKey  string    `db:"voter_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RecentVote is a vote joined with what is needed to display it in a poll statistics page.
type RecentVote struct {
	Vote
	OptionText  string  `db:"option_text" json:"option_text"`
	OptionColor string  `db:"option_color" json:"option_color"`
	UserName    *string `db:"user_name" json:"user_name,omitempty"`
}

func NewVote(pollID string, optionID string, identity Identity) *Vote {
	v := &Vote{
		PollID:    pollID,
		OptionID:  optionID,
		IPAddress: identity.Addr,
		VoterKey:  identity.Key(),
		CreatedAt: NowFunc(),
	}
	if identity.UserID != "" {
		userID := identity.UserID
		v.UserID = &userID
	}

	return v
}

package thegoat

import (
	"context"
	"strings"

	"github.com/thegoat123/thegoat/authentication"
)

type PollSort string

const (
	SortPopular PollSort = "popular"
	SortRecent  PollSort = "recent"
	SortViews   PollSort = "views"
	SortHot     PollSort = "hot"
)

func ParsePollSort(s string) PollSort {
	switch PollSort(s) {
	case SortRecent, SortViews, SortHot:
		return PollSort(s)
	}
	return SortPopular
}

// PollFilter narrows down the polls returned by ListPolls. Zero values mean no filtering,
// except Status which defaults to active polls.
type PollFilter struct {
	Category    string
	Type        PollType
	Status      PollStatus
	AllStatuses bool
	Query       string
	MinVotes    int64
	HotOnly     bool
	CreatedBy   string
	Sort        PollSort
	Limit       int
	Offset      int
}

// Matches tells if a poll passes the filter, ignoring sorting and pagination.
func (f *PollFilter) Matches(p *Poll) bool {
	status := f.Status
	if status == "" {
		status = StatusActive
	}
	if !f.AllStatuses && p.Status != status {
		return false
	}
	if f.Category != "" && f.Category != CategoryAll && p.Category != f.Category {
		return false
	}
	if f.Type != "" && p.PollType != f.Type {
		return false
	}
	if p.TotalVotes < f.MinVotes {
		return false
	}
	if f.HotOnly && !p.IsHot {
		return false
	}
	if f.CreatedBy != "" && !p.IsOwnedBy(f.CreatedBy) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	}
	return true
}

// Counter names the poll counters that can be incremented on their own.
type Counter string

const (
	CounterViews  Counter = "view_count"
	CounterShares Counter = "share_count"
)

// OptionsEdit lists the changes to apply on the options of a poll when editing it.
type OptionsEdit struct {
	Insert []*PollOption
	Update []*PollOption
	Delete []string
}

func (e *OptionsEdit) IsEmpty() bool {
	return len(e.Insert) == 0 && len(e.Update) == 0 && len(e.Delete) == 0
}

// DiffOptions compares the existing options of a poll with the desired ones. Desired options
// with an id matching an existing option are updates, those without are inserts and existing
// options missing from desired are deleted. Display orders follow the order of desired, and
// options that didn't change are left out of the edit.
func DiffOptions(existing []*PollOption, desired []*PollOption) *OptionsEdit {
	edit := &OptionsEdit{}
	known := make(map[string]*PollOption, len(existing))
	for _, o := range existing {
		known[o.ID] = o
	}

	kept := map[string]bool{}
	for i, d := range desired {
		d.DisplayOrder = i + 1

		o := known[d.ID]
		if o == nil {
			d.ID = ""
			if d.Color == "" {
				d.Color = OptionColor(i)
			}
			edit.Insert = append(edit.Insert, d)
			continue
		}

		kept[o.ID] = true
		if d.Color == "" {
			d.Color = o.Color
		}
		if d.Image == nil {
			d.Image = o.Image
		}
		if o.Text != d.Text || o.Color != d.Color || o.DisplayOrder != d.DisplayOrder || !sameImage(o.Image, d.Image) {
			edit.Update = append(edit.Update, d)
		}
	}

	for _, o := range existing {
		if !kept[o.ID] {
			edit.Delete = append(edit.Delete, o.ID)
		}
	}

	return edit
}

func sameImage(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type Store interface {
	Connect() error

	ListPolls(ctx context.Context, filter *PollFilter) ([]*Poll, error)
	FindPoll(ctx context.Context, id string) (*Poll, error)
	// InsertPoll inserts the poll and its options atomically, filling their ids.
	InsertPoll(ctx context.Context, poll *Poll) error
	// UpdatePoll updates the poll fields and applies the options edit atomically.
	UpdatePoll(ctx context.Context, poll *Poll, edit *OptionsEdit) error
	DeletePoll(ctx context.Context, id string) error
	IncrementPollCounter(ctx context.Context, id string, counter Counter) (int64, error)

	InsertOption(ctx context.Context, option *PollOption) error
	DeleteOption(ctx context.Context, pollID string, optionID string) error
	UpdateOptionImage(ctx context.Context, optionID string, url string) error

	VoteStore
	// FindVote returns nil and no error when the voter didn't vote on the poll.
	FindVote(ctx context.Context, pollID string, voterKey string) (*Vote, error)
	ListVotes(ctx context.Context, pollID string) ([]*Vote, error)
	ListRecentVotes(ctx context.Context, pollID string, limit int) ([]*RecentVote, error)
	ListPollsVotedBy(ctx context.Context, userID string) ([]*Poll, error)

	ListComments(ctx context.Context, pollID string, viewerID string) ([]*CommentSeenByUser, error)
	ListUserComments(ctx context.Context, userID string) ([]*UserComment, error)
	FindComment(ctx context.Context, id string) (*Comment, error)
	InsertComment(ctx context.Context, comment *Comment) error
	// DeleteComment removes a comment, or blanks it out if it received likes. It
	// reports if the comment was soft deleted.
	DeleteComment(ctx context.Context, id string) (soft bool, err error)
	ToggleCommentLike(ctx context.Context, commentID string, userID string) (liked bool, likes int64, err error)

	ToggleBookmark(ctx context.Context, userID string, pollID string) (bool, error)
	ListBookmarkedPolls(ctx context.Context, userID string) ([]*Poll, error)
	BookmarkStatuses(ctx context.Context, userID string, pollIDs []string) (map[string]bool, error)

	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)
	// MarkNotificationRead returns ErrNotificationNotFound when the notification isn't userID's.
	MarkNotificationRead(ctx context.Context, userID string, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	ClearNotifications(ctx context.Context, userID string) error

	// FindUserByLogin returns nil and no error when there is no such user.
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	FindUser(ctx context.Context, id string) (*User, error)
	CreateOrUpdateUser(ctx context.Context, login string, email string) (string, error)
	authentication.CredentialsStore
}

// VoteStore is the part of the Store required to cast votes.
type VoteStore interface {
	FindPoll(ctx context.Context, id string) (*Poll, error)
	// InsertVote records the vote and increments the option and poll counters atomically.
	// It returns ErrAlreadyVoted if the voter already voted on the poll.
	InsertVote(ctx context.Context, vote *Vote) error
}

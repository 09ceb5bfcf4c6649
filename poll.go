package thegoat

import (
	"time"
)

type PollType string

const (
	// PollTypeVersus polls have exactly two options, displayed head-to-head.
	PollTypeVersus PollType = "versus"
	// PollTypeMultiple polls have three options or more, displayed as a ranked list.
	PollTypeMultiple PollType = "multiple"
)

type PollStatus string

const (
	StatusActive PollStatus = "active"
	StatusEnded  PollStatus = "ended"
	StatusDraft  PollStatus = "draft"
)

// Limits enforced when creating or editing polls.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 1000
	MaxOptionLength      = 100
	MinMultipleOptions   = 3
	MaxOptions           = 15
)

// Categories lists the categories a poll can be filed under.
var Categories = []string{
	"food",
	"tech",
	"game",
	"entertainment",
	"sports",
	"fashion",
	"culture",
	"politics",
	"life",
}

// CategoryAll is accepted by filters to mean any category.
const CategoryAll = "all"

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B739", "#52C41A",
	"#FA8C16", "#1890FF", "#722ED1", "#EB2F96", "#13C2C2",
}

// OptionColor returns the default color of the option at the given zero based index.
func OptionColor(index int) string {
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

type Poll struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	PollType     PollType   `db:"poll_type" json:"poll_type"`
	Category     string     `db:"category" json:"category"`
	TotalVotes   int64      `db:"total_votes" json:"total_votes"`
	ViewCount    int64      `db:"view_count" json:"view_count"`
	ShareCount   int64      `db:"share_count" json:"share_count"`
	CommentCount int64      `db:"comment_count" json:"comment_count"`
	IsHot        bool       `db:"is_hot" json:"is_hot"`
	IsFeatured   bool       `db:"is_featured" json:"is_featured"`
	Status       PollStatus `db:"status" json:"status"`
	CreatedBy    *string    `db:"created_by" json:"created_by,omitempty"`
	Author       string     `db:"author" json:"author"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	EndsAt       *time.Time `db:"ends_at" json:"ends_at,omitempty"`

	Options []*PollOption `db:"-" json:"options"`
}

type PollOption struct {
	ID              string    `db:"id" json:"id"`
	PollID          string    `db:"poll_id" json:"poll_id"`
	Text            string    `db:"option_text" json:"option_text"`
	Image           *string   `db:"option_image" json:"option_image,omitempty"`
	VoteCount       int64     `db:"vote_count" json:"vote_count"`
	DisplayOrder    int       `db:"display_order" json:"display_order"`
	Color           string    `db:"color" json:"color"`
	IsUserSubmitted bool      `db:"is_user_submitted" json:"is_user_submitted"`
	CreatedBy       *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func NewPoll(title string, description string, pollType PollType, category string, authorID string) *Poll {
	now := NowFunc()
	return &Poll{
		Title:       title,
		Description: description,
		PollType:    pollType,
		Category:    category,
		Status:      StatusActive,
		CreatedBy:   &authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Options:     []*PollOption{},
	}
}

// AddOption appends an option after the existing ones, picking a color from the palette
// if none is given.
func (p *Poll) AddOption(text string, image string, color string) *PollOption {
	order := len(p.Options) + 1
	opt := NewPollOption(p.ID, text, order)
	if color != "" {
		opt.Color = color
	}
	if image != "" {
		opt.Image = &image
	}
	p.Options = append(p.Options, opt)

	return opt
}

func NewPollOption(pollID string, text string, displayOrder int) *PollOption {
	return &PollOption{
		PollID:       pollID,
		Text:         text,
		DisplayOrder: displayOrder,
		Color:        OptionColor(displayOrder - 1),
		CreatedAt:    NowFunc(),
	}
}

// NewUserOption returns an option submitted by a voter on a multiple poll.
func NewUserOption(pollID string, text string, displayOrder int, userID string) *PollOption {
	opt := NewPollOption(pollID, text, displayOrder)
	opt.IsUserSubmitted = true
	opt.CreatedBy = &userID
	return opt
}

// IsClosed tells if the poll stopped accepting votes at the given time.
func (p *Poll) IsClosed(now time.Time) bool {
	if p.Status == StatusEnded || p.Status == StatusDraft {
		return true
	}

	return p.EndsAt != nil && p.EndsAt.Before(now)
}

// Option returns the option of the poll with the given id, or nil.
func (p *Poll) Option(id string) *PollOption {
	for _, o := range p.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (p *Poll) IsOwnedBy(userID string) bool {
	return p.CreatedBy != nil && *p.CreatedBy == userID
}

// NextDisplayOrder returns the display order an option appended to the poll should get.
func (p *Poll) NextDisplayOrder() int {
	max := 0
	for _, o := range p.Options {
		if o.DisplayOrder > max {
			max = o.DisplayOrder
		}
	}
	return max + 1
}

// GetScore makes polls rankable, counting votes and comments as attention.
func (p *Poll) GetScore() int64 {
	return p.TotalVotes + p.CommentCount
}

func (p *Poll) Age() time.Time {
	return p.CreatedAt
}

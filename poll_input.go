package thegoat

import (
	"strings"
	"time"
	"unicode/utf8"
)

type OptionInput struct {
	ID    string `json:"id,omitempty"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	Color string `json:"color,omitempty"`
}

// PollInput is the body of poll creation and edition requests.
type PollInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	PollType    PollType      `json:"poll_type"`
	Category    string        `json:"category"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	Options     []OptionInput `json:"options"`
}

func (in *PollInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	for i := range in.Options {
		in.Options[i].Text = strings.TrimSpace(in.Options[i].Text)
		in.Options[i].Image = strings.TrimSpace(in.Options[i].Image)
	}
}

// Validate checks the input against the rules of the given poll type, returning an
// UnprocessableEntityError naming every invalid field.
func (in *PollInput) Validate(pollType PollType, now time.Time) error {
	in.normalize()

	var fields []string
	if n := utf8.RuneCountInString(in.Title); n == 0 || n > MaxTitleLength {
		fields = append(fields, "title")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		fields = append(fields, "description")
	}
	if !IsValidCategory(in.Category) {
		fields = append(fields, "category")
	}
	if in.EndsAt != nil && !in.EndsAt.After(now) {
		fields = append(fields, "ends_at")
	}

	switch pollType {
	case PollTypeVersus:
		if len(in.Options) != 2 {
			fields = append(fields, "options")
		}
	case PollTypeMultiple:
		if len(in.Options) < MinMultipleOptions || len(in.Options) > MaxOptions {
			fields = append(fields, "options")
		}
	default:
		fields = append(fields, "poll_type")
	}

	seen := map[string]bool{}
	for _, o := range in.Options {
		n := utf8.RuneCountInString(o.Text)
		key := strings.ToLower(o.Text)
		if n == 0 || n > MaxOptionLength || seen[key] {
			fields = append(fields, "options.text")
			break
		}
		seen[key] = true
	}

	if len(fields) > 0 {
		return UnprocessableEntity(fields...)
	}
	return nil
}

// NewPoll builds the poll described by the input, with its options in order.
func (in *PollInput) NewPoll(authorID string) *Poll {
	p := NewPoll(in.Title, in.Description, in.PollType, in.Category, authorID)
	p.EndsAt = in.EndsAt
	for _, o := range in.Options {
		p.AddOption(o.Text, o.Image, o.Color)
	}
	return p
}

// Apply copies the editable fields of the input on p.
func (in *PollInput) Apply(p *Poll) {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.EndsAt = in.EndsAt
	p.UpdatedAt = NowFunc()
}

// DesiredOptions returns the options as they should be once the poll is edited. Colors and
// images left empty are kept as they are on existing options.
func (in *PollInput) DesiredOptions(pollID string) []*PollOption {
	opts := make([]*PollOption, len(in.Options))
	for i, o := range in.Options {
		opt := NewPollOption(pollID, o.Text, i+1)
		opt.ID = o.ID
		opt.Color = o.Color
		if o.Image != "" {
			img := o.Image
			opt.Image = &img
		}
		opts[i] = opt
	}
	return opts
}

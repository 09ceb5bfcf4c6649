package thegoat

import (
	"html/template"
	"math"
	"sort"
	"time"
)

// Percentage returns the share of totalVotes an option got, rounded to the nearest integer.
// With no votes at all, both options of a two options poll display 50, any other gets 0.
func Percentage(voteCount int64, totalVotes int64, optionCount int) int {
	if totalVotes <= 0 {
		if optionCount == 2 {
			return 50
		}
		return 0
	}

	return int(math.Floor(float64(voteCount)/float64(totalVotes)*100 + 0.5))
}

// Percentages returns the percentage of each option of the poll, in the order of poll.Options.
func Percentages(poll *Poll) []int {
	ps := make([]int, len(poll.Options))
	for i, o := range poll.Options {
		ps[i] = Percentage(o.VoteCount, poll.TotalVotes, len(poll.Options))
	}
	return ps
}

// LeadingOption returns the option with the most votes. Ties go to the option displayed first.
func LeadingOption(options []*PollOption) *PollOption {
	var leader *PollOption
	for _, o := range options {
		if leader == nil ||
			o.VoteCount > leader.VoteCount ||
			(o.VoteCount == leader.VoteCount && o.DisplayOrder < leader.DisplayOrder) {
			leader = o
		}
	}
	return leader
}

// SortOptions orders options by display order.
func SortOptions(options []*PollOption) {
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].DisplayOrder < options[j].DisplayOrder
	})
}

// IsNeckAndNeck tells if a versus poll got enough votes and its two options are within ten points.
func IsNeckAndNeck(poll *Poll) bool {
	if poll.PollType != PollTypeVersus || len(poll.Options) != 2 || poll.TotalVotes <= 10 {
		return false
	}

	a := float64(poll.Options[0].VoteCount) / float64(poll.TotalVotes) * 100
	b := float64(poll.Options[1].VoteCount) / float64(poll.TotalVotes) * 100

	return math.Abs(a-b) <= 10
}

type OptionView struct {
	*PollOption
	Percentage int `json:"percentage"`
}

// PollView is how polls are served by the API, with their derived percentages.
type PollView struct {
	*Poll
	Options         []*OptionView `json:"options"`
	LeadingOptionID string        `json:"leading_option_id,omitempty"`
	Closed          bool          `json:"closed"`
	DescriptionHTML template.HTML `json:"description_html,omitempty"`
}

func NewPollView(poll *Poll) *PollView {
	percentages := Percentages(poll)
	v := &PollView{
		Poll:    poll,
		Options: make([]*OptionView, len(poll.Options)),
		Closed:  poll.IsClosed(NowFunc()),
	}
	if poll.Description != "" {
		v.DescriptionHTML = RenderDescription(poll.Description)
	}
	for i, o := range poll.Options {
		v.Options[i] = &OptionView{PollOption: o, Percentage: percentages[i]}
	}

	if poll.TotalVotes > 0 {
		if leader := LeadingOption(poll.Options); leader != nil {
			v.LeadingOptionID = leader.ID
		}
	}

	return v
}

func NewPollViews(polls []*Poll) []*PollView {
	views := make([]*PollView, len(polls))
	for i, p := range polls {
		views[i] = NewPollView(p)
	}
	return views
}

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

type OptionStat struct {
	OptionID   string `json:"option_id"`
	Text       string `json:"option_text"`
	VoteCount  int64  `json:"vote_count"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
	Trend      Trend  `json:"trend"`
}

// OptionStats compares each option to the average number of votes per option.
func OptionStats(poll *Poll) []*OptionStat {
	var avg float64
	if len(poll.Options) > 0 {
		avg = float64(poll.TotalVotes) / float64(len(poll.Options))
	}

	stats := make([]*OptionStat, len(poll.Options))
	for i, o := range poll.Options {
		s := &OptionStat{
			OptionID:  o.ID,
			Text:      o.Text,
			VoteCount: o.VoteCount,
			Color:     o.Color,
			Trend:     TrendStable,
		}
		if poll.TotalVotes > 0 {
			s.Percentage = Percentage(o.VoteCount, poll.TotalVotes, len(poll.Options))
		}
		if s.Color == "" {
			s.Color = "#1890ff"
		}

		switch v := float64(o.VoteCount); {
		case v > avg:
			s.Trend = TrendUp
		case v < avg:
			s.Trend = TrendDown
		}
		stats[i] = s
	}

	return stats
}

type HourlyVotes struct {
	Hour  string `json:"hour"`
	Votes int    `json:"votes"`
}

// VotesByHour buckets votes by hour of the day in loc, sorted by hour.
func VotesByHour(votes []*Vote, loc *time.Location) []*HourlyVotes {
	buckets := map[string]int{}
	for _, v := range votes {
		hour := v.CreatedAt.In(loc).Format("15") + ":00"
		buckets[hour]++
	}

	res := make([]*HourlyVotes, 0, len(buckets))
	for h, n := range buckets {
		res = append(res, &HourlyVotes{Hour: h, Votes: n})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Hour < res[j].Hour })

	return res
}

package thegoat

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func pollWithVotes(pollType PollType, votes ...int64) *Poll {
	p := NewPoll("title", "", pollType, "food", "1")
	for i, v := range votes {
		o := p.AddOption(string(rune('a'+i)), "", "")
		o.ID = string(rune('a' + i))
		o.VoteCount = v
		p.TotalVotes += v
	}
	return p
}

func TestPercentage(t *testing.T) {
	c := qt.New(t)

	c.Assert(Percentage(0, 0, 2), qt.Equals, 50)
	c.Assert(Percentage(0, 0, 3), qt.Equals, 0)
	c.Assert(Percentage(1, 1, 2), qt.Equals, 100)
	c.Assert(Percentage(0, 1, 2), qt.Equals, 0)
	c.Assert(Percentage(1, 3, 3), qt.Equals, 33)
	c.Assert(Percentage(2, 3, 3), qt.Equals, 67)
	c.Assert(Percentage(1, 8, 2), qt.Equals, 13)
}

func TestPercentages(t *testing.T) {
	c := qt.New(t)

	c.Run("three options", func(c *qt.C) {
		p := pollWithVotes(PollTypeMultiple, 3, 1, 1)
		c.Assert(Percentages(p), qt.DeepEquals, []int{60, 20, 20})
		c.Assert(LeadingOption(p.Options).ID, qt.Equals, "a")
	})

	c.Run("no votes on a versus poll", func(c *qt.C) {
		p := pollWithVotes(PollTypeVersus, 0, 0)
		c.Assert(Percentages(p), qt.DeepEquals, []int{50, 50})
	})

	c.Run("first vote", func(c *qt.C) {
		p := pollWithVotes(PollTypeVersus, 1, 0)
		c.Assert(Percentages(p), qt.DeepEquals, []int{100, 0})
	})
}

func TestLeadingOption(t *testing.T) {
	c := qt.New(t)

	c.Assert(LeadingOption(nil), qt.IsNil)

	p := pollWithVotes(PollTypeMultiple, 2, 5, 5)
	c.Assert(LeadingOption(p.Options).ID, qt.Equals, "b")

	// ties go to the first displayed option, whatever the slice order
	opts := []*PollOption{p.Options[2], p.Options[1], p.Options[0]}
	c.Assert(LeadingOption(opts).ID, qt.Equals, "b")
}

func TestNewPollView(t *testing.T) {
	c := qt.New(t)

	v := NewPollView(pollWithVotes(PollTypeVersus, 0, 0))
	c.Assert(v.LeadingOptionID, qt.Equals, "")
	c.Assert(v.Options[0].Percentage, qt.Equals, 50)
	c.Assert(v.Closed, qt.IsFalse)

	v = NewPollView(pollWithVotes(PollTypeVersus, 1, 3))
	c.Assert(v.LeadingOptionID, qt.Equals, "b")
	c.Assert(v.Options[1].Percentage, qt.Equals, 75)

	b, err := json.Marshal(v)
	c.Assert(err, qt.IsNil)
	c.Assert(string(b), qt.Contains, `"leading_option_id":"b"`)
	c.Assert(string(b), qt.Contains, `"percentage":75`)
}

func TestIsNeckAndNeck(t *testing.T) {
	c := qt.New(t)

	c.Assert(IsNeckAndNeck(pollWithVotes(PollTypeVersus, 6, 5)), qt.IsTrue)
	c.Assert(IsNeckAndNeck(pollWithVotes(PollTypeVersus, 5, 5)), qt.IsFalse)
	c.Assert(IsNeckAndNeck(pollWithVotes(PollTypeVersus, 30, 10)), qt.IsFalse)
	c.Assert(IsNeckAndNeck(pollWithVotes(PollTypeMultiple, 6, 5, 5)), qt.IsFalse)
}

func TestOptionStats(t *testing.T) {
	c := qt.New(t)

	stats := OptionStats(pollWithVotes(PollTypeMultiple, 4, 1, 1))
	c.Assert(stats, qt.HasLen, 3)
	c.Assert(stats[0].Trend, qt.Equals, TrendUp)
	c.Assert(stats[0].Percentage, qt.Equals, 67)
	c.Assert(stats[1].Trend, qt.Equals, TrendDown)

	stats = OptionStats(pollWithVotes(PollTypeVersus, 0, 0))
	c.Assert(stats[0].Percentage, qt.Equals, 0)
	c.Assert(stats[0].Trend, qt.Equals, TrendStable)
}

func TestVotesByHour(t *testing.T) {
	c := qt.New(t)

	at := func(s string) time.Time {
		tt, err := time.Parse(time.RFC3339, s)
		c.Assert(err, qt.IsNil)
		return tt
	}

	votes := []*Vote{
		{CreatedAt: at("2020-01-01T13:10:00Z")},
		{CreatedAt: at("2020-01-01T09:59:00Z")},
		{CreatedAt: at("2020-01-02T13:45:00Z")},
	}

	got := VotesByHour(votes, time.UTC)
	c.Assert(got, qt.DeepEquals, []*HourlyVotes{
		{Hour: "09:00", Votes: 1},
		{Hour: "13:00", Votes: 2},
	})
}

// Package storetest checks that a Store implementation honors the constraints the application
// relies on. Every implementation runs the same suite.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/authentication"
)

// Run runs the suite, calling newStore to get an empty, connected store for each test.
func Run(t *testing.T, newStore func(c *qt.C) thegoat.Store) {
	c := qt.New(t)
	ctx := context.Background()

	createUser := func(c *qt.C, s thegoat.Store, login string) *thegoat.User {
		id, err := s.CreateOrUpdateUser(ctx, login, login+"@example.com")
		c.Assert(err, qt.IsNil)
		u, err := s.FindUserByLogin(ctx, login)
		c.Assert(err, qt.IsNil)
		c.Assert(u.ID, qt.Equals, id)
		return u
	}

	createPoll := func(c *qt.C, s thegoat.Store, author *thegoat.User, title string, options ...string) *thegoat.Poll {
		pollType := thegoat.PollTypeMultiple
		if len(options) == 2 {
			pollType = thegoat.PollTypeVersus
		}
		p := thegoat.NewPoll(title, "", pollType, "food", author.ID)
		for _, o := range options {
			p.AddOption(o, "", "")
		}
		c.Assert(s.InsertPoll(ctx, p), qt.IsNil)
		return p
	}

	vote := func(c *qt.C, s thegoat.Store, p *thegoat.Poll, option int, key string) error {
		return s.InsertVote(ctx, &thegoat.Vote{
			PollID:    p.ID,
			OptionID:  p.Options[option].ID,
			IPAddress: "127.0.0.1",
			VoterKey:  key,
			CreatedAt: thegoat.NowFunc(),
		})
	}

	c.Run("users", func(c *qt.C) {
		s := newStore(c)

		u, err := s.FindUserByLogin(ctx, "nobody")
		c.Assert(err, qt.IsNil)
		c.Assert(u, qt.IsNil)

		a := createUser(c, s, "a")
		id, err := s.CreateOrUpdateUser(ctx, "a", "a@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, a.ID)

		found, err := s.FindUser(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Name, qt.Equals, "a")
	})

	c.Run("credentials", func(c *qt.C) {
		s := newStore(c)

		creds, err := s.FindCredentials(ctx, "foo@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(creds, qt.IsNil)

		err = s.InsertCredentials(ctx, &authentication.Credentials{Login: "foo@example.com", Email: "foo@example.com", PasswordHash: "hash"})
		c.Assert(err, qt.IsNil)
		err = s.InsertCredentials(ctx, &authentication.Credentials{Login: "foo@example.com", Email: "foo@example.com", PasswordHash: "hash"})
		c.Assert(err, qt.ErrorIs, thegoat.ErrDuplicate)

		creds, err = s.FindCredentials(ctx, "foo@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(creds.PasswordHash, qt.Equals, "hash")

		u, err := s.FindUserByLogin(ctx, "foo@example.com")
		c.Assert(err, qt.IsNil)
		c.Assert(u.Email, qt.Equals, "foo@example.com")
	})

	c.Run("insert and find poll", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "best noodles", "ramen", "udon", "pho")
		c.Assert(p.ID, qt.Not(qt.Equals), "")
		for _, o := range p.Options {
			c.Assert(o.ID, qt.Not(qt.Equals), "")
			c.Assert(o.PollID, qt.Equals, p.ID)
		}

		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Title, qt.Equals, "best noodles")
		c.Assert(found.Author, qt.Equals, "a")
		c.Assert(found.Options, qt.HasLen, 3)
		c.Assert(found.Options[0].Text, qt.Equals, "ramen")
		c.Assert(found.Options[2].DisplayOrder, qt.Equals, 3)
		c.Assert(found.Options[1].Color, qt.Equals, thegoat.OptionColor(1))

		_, err = s.FindPoll(ctx, "00000000-0000-0000-0000-000000000000")
		c.Assert(err, qt.ErrorIs, thegoat.ErrPollNotFound)
	})

	c.Run("votes", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "versus", "left", "right")

		c.Assert(vote(c, s, p, 0, "ip:1.1.1.1"), qt.IsNil)
		c.Assert(vote(c, s, p, 1, "ip:1.1.1.1"), qt.ErrorIs, thegoat.ErrAlreadyVoted)
		c.Assert(vote(c, s, p, 1, "ip:2.2.2.2"), qt.IsNil)

		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.TotalVotes, qt.Equals, int64(2))
		c.Assert(found.Options[0].VoteCount, qt.Equals, int64(1))
		c.Assert(found.Options[1].VoteCount, qt.Equals, int64(1))

		v, err := s.FindVote(ctx, p.ID, "ip:1.1.1.1")
		c.Assert(err, qt.IsNil)
		c.Assert(v.OptionID, qt.Equals, p.Options[0].ID)
		v, err = s.FindVote(ctx, p.ID, "ip:3.3.3.3")
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.IsNil)

		votes, err := s.ListVotes(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(votes, qt.HasLen, 2)

		recent, err := s.ListRecentVotes(ctx, p.ID, 1)
		c.Assert(err, qt.IsNil)
		c.Assert(recent, qt.HasLen, 1)
		c.Assert(recent[0].OptionText, qt.Equals, "right")
	})

	c.Run("concurrent votes of one voter count once", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "versus", "left", "right")

		var wg sync.WaitGroup
		var mtx sync.Mutex
		var accepted int
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if vote(c, s, p, i%2, "user:"+a.ID) == nil {
					mtx.Lock()
					accepted++
					mtx.Unlock()
				}
			}(i)
		}
		wg.Wait()

		c.Assert(accepted, qt.Equals, 1)
		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.TotalVotes, qt.Equals, int64(1))
		c.Assert(found.Options[0].VoteCount+found.Options[1].VoteCount, qt.Equals, found.TotalVotes)
	})

	c.Run("polls voted by a user", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p1 := createPoll(c, s, a, "one", "left", "right")
		createPoll(c, s, a, "two", "left", "right")

		err := s.InsertVote(ctx, &thegoat.Vote{PollID: p1.ID, OptionID: p1.Options[0].ID, UserID: &a.ID, VoterKey: "user:" + a.ID, CreatedAt: thegoat.NowFunc()})
		c.Assert(err, qt.IsNil)

		polls, err := s.ListPollsVotedBy(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(polls, qt.HasLen, 1)
		c.Assert(polls[0].ID, qt.Equals, p1.ID)
	})

	c.Run("list polls", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p1 := createPoll(c, s, a, "Pizza toppings", "cheese", "pepperoni", "pineapple")
		p2 := createPoll(c, s, a, "cats vs dogs", "cats", "dogs")
		p3 := createPoll(c, s, a, "tabs vs spaces", "tabs", "spaces")

		c.Assert(vote(c, s, p2, 0, "ip:1"), qt.IsNil)
		c.Assert(vote(c, s, p2, 0, "ip:2"), qt.IsNil)
		c.Assert(vote(c, s, p3, 0, "ip:1"), qt.IsNil)

		polls, err := s.ListPolls(ctx, &thegoat.PollFilter{Sort: thegoat.SortPopular})
		c.Assert(err, qt.IsNil)
		c.Assert(ids(polls), qt.DeepEquals, []string{p2.ID, p3.ID, p1.ID})
		c.Assert(polls[0].Options, qt.HasLen, 2)

		polls, err = s.ListPolls(ctx, &thegoat.PollFilter{Type: thegoat.PollTypeMultiple})
		c.Assert(err, qt.IsNil)
		c.Assert(ids(polls), qt.DeepEquals, []string{p1.ID})

		polls, err = s.ListPolls(ctx, &thegoat.PollFilter{Query: "PIZZA"})
		c.Assert(err, qt.IsNil)
		c.Assert(ids(polls), qt.DeepEquals, []string{p1.ID})

		polls, err = s.ListPolls(ctx, &thegoat.PollFilter{MinVotes: 1, Sort: thegoat.SortPopular, Limit: 1, Offset: 1})
		c.Assert(err, qt.IsNil)
		c.Assert(ids(polls), qt.DeepEquals, []string{p3.ID})

		polls, err = s.ListPolls(ctx, &thegoat.PollFilter{Category: "tech"})
		c.Assert(err, qt.IsNil)
		c.Assert(polls, qt.HasLen, 0)

		polls, err = s.ListPolls(ctx, &thegoat.PollFilter{CreatedBy: a.ID, AllStatuses: true, Sort: thegoat.SortHot})
		c.Assert(err, qt.IsNil)
		c.Assert(polls, qt.HasLen, 3)
		c.Assert(polls[0].ID, qt.Equals, p2.ID)
	})

	c.Run("counters", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "versus", "left", "right")

		n, err := s.IncrementPollCounter(ctx, p.ID, thegoat.CounterViews)
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(1))
		n, err = s.IncrementPollCounter(ctx, p.ID, thegoat.CounterViews)
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(2))
		n, err = s.IncrementPollCounter(ctx, p.ID, thegoat.CounterShares)
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(1))

		_, err = s.IncrementPollCounter(ctx, "00000000-0000-0000-0000-000000000000", thegoat.CounterViews)
		c.Assert(err, qt.ErrorIs, thegoat.ErrPollNotFound)
	})

	c.Run("update poll", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "noodles", "ramen", "udon", "pho")
		c.Assert(vote(c, s, p, 0, "ip:1"), qt.IsNil)

		desired := []*thegoat.PollOption{
			{ID: p.Options[0].ID, Text: "ramen"},
			{Text: "soba"},
			{ID: p.Options[2].ID, Text: "phở"},
		}
		edit := thegoat.DiffOptions(p.Options, desired)
		c.Assert(edit.Delete, qt.DeepEquals, []string{p.Options[1].ID})

		p.Title = "best noodles"
		c.Assert(s.UpdatePoll(ctx, p, edit), qt.IsNil)

		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Title, qt.Equals, "best noodles")
		c.Assert(texts(found.Options), qt.DeepEquals, []string{"ramen", "soba", "phở"})
		c.Assert(found.Options[0].VoteCount, qt.Equals, int64(1))
	})

	c.Run("update poll is atomic", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "noodles", "ramen", "udon", "pho")
		c.Assert(vote(c, s, p, 0, "ip:1"), qt.IsNil)

		edit := &thegoat.OptionsEdit{
			Insert: []*thegoat.PollOption{thegoat.NewPollOption(p.ID, "soba", 4)},
			Delete: []string{p.Options[0].ID},
		}
		p.Title = "changed"
		c.Assert(s.UpdatePoll(ctx, p, edit), qt.ErrorIs, thegoat.ErrOptionHasVotes)

		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Title, qt.Equals, "noodles")
		c.Assert(texts(found.Options), qt.DeepEquals, []string{"ramen", "udon", "pho"})
	})

	c.Run("user options", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		b := createUser(c, s, "b")
		p := createPoll(c, s, a, "noodles", "ramen", "udon", "pho")

		opt := thegoat.NewUserOption(p.ID, "soba", 4, b.ID)
		c.Assert(s.InsertOption(ctx, opt), qt.IsNil)
		c.Assert(opt.ID, qt.Not(qt.Equals), "")

		c.Assert(s.UpdateOptionImage(ctx, opt.ID, "https://example.com/soba.png"), qt.IsNil)
		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.Options, qt.HasLen, 4)
		c.Assert(*found.Options[3].Image, qt.Equals, "https://example.com/soba.png")
		c.Assert(found.Options[3].IsUserSubmitted, qt.IsTrue)

		c.Assert(s.DeleteOption(ctx, p.ID, opt.ID), qt.IsNil)
		c.Assert(vote(c, s, p, 0, "ip:1"), qt.IsNil)
		c.Assert(s.DeleteOption(ctx, p.ID, p.Options[0].ID), qt.ErrorIs, thegoat.ErrOptionHasVotes)
	})

	c.Run("comments", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		b := createUser(c, s, "b")
		p := createPoll(c, s, a, "versus", "left", "right")

		first := thegoat.NewComment(p.ID, &p.Options[0].ID, "go left", b.ID)
		c.Assert(s.InsertComment(ctx, first), qt.IsNil)
		second := thegoat.NewComment(p.ID, nil, "meh", b.ID)
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		c.Assert(s.InsertComment(ctx, second), qt.IsNil)

		found, err := s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(found.CommentCount, qt.Equals, int64(2))

		liked, likes, err := s.ToggleCommentLike(ctx, first.ID, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(liked, qt.IsTrue)
		c.Assert(likes, qt.Equals, int64(1))

		comments, err := s.ListComments(ctx, p.ID, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(comments, qt.HasLen, 2)
		c.Assert(comments[0].ID, qt.Equals, second.ID)
		c.Assert(comments[1].Liked, qt.IsTrue)
		c.Assert(comments[1].Author, qt.Equals, "b")
		c.Assert(*comments[1].OptionText, qt.Equals, "left")

		liked, likes, err = s.ToggleCommentLike(ctx, first.ID, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(liked, qt.IsFalse)
		c.Assert(likes, qt.Equals, int64(0))
		_, _, err = s.ToggleCommentLike(ctx, first.ID, a.ID)
		c.Assert(err, qt.IsNil)

		// liked comments are blanked out, others are removed
		soft, err := s.DeleteComment(ctx, first.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(soft, qt.IsTrue)
		deleted, err := s.FindComment(ctx, first.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(deleted.Content, qt.Equals, thegoat.DeletedCommentContent)
		c.Assert(deleted.IsDeleted(), qt.IsTrue)

		soft, err = s.DeleteComment(ctx, second.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(soft, qt.IsFalse)
		_, err = s.FindComment(ctx, second.ID)
		c.Assert(err, qt.ErrorIs, thegoat.ErrCommentNotFound)

		mine, err := s.ListUserComments(ctx, b.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(mine, qt.HasLen, 0)
	})

	c.Run("bookmarks", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p1 := createPoll(c, s, a, "one", "left", "right")
		p2 := createPoll(c, s, a, "two", "left", "right")

		on, err := s.ToggleBookmark(ctx, a.ID, p1.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(on, qt.IsTrue)

		statuses, err := s.BookmarkStatuses(ctx, a.ID, []string{p1.ID, p2.ID})
		c.Assert(err, qt.IsNil)
		c.Assert(statuses, qt.DeepEquals, map[string]bool{p1.ID: true, p2.ID: false})

		polls, err := s.ListBookmarkedPolls(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(ids(polls), qt.DeepEquals, []string{p1.ID})

		on, err = s.ToggleBookmark(ctx, a.ID, p1.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(on, qt.IsFalse)
	})

	c.Run("delete poll cascades", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		p := createPoll(c, s, a, "versus", "left", "right")
		c.Assert(vote(c, s, p, 0, "ip:1"), qt.IsNil)
		comment := thegoat.NewComment(p.ID, nil, "bye", a.ID)
		c.Assert(s.InsertComment(ctx, comment), qt.IsNil)
		_, err := s.ToggleBookmark(ctx, a.ID, p.ID)
		c.Assert(err, qt.IsNil)

		c.Assert(s.DeletePoll(ctx, p.ID), qt.IsNil)

		_, err = s.FindPoll(ctx, p.ID)
		c.Assert(err, qt.ErrorIs, thegoat.ErrPollNotFound)
		_, err = s.FindComment(ctx, comment.ID)
		c.Assert(err, qt.ErrorIs, thegoat.ErrCommentNotFound)
		polls, err := s.ListBookmarkedPolls(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(polls, qt.HasLen, 0)
	})

	c.Run("notifications", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		b := createUser(c, s, "b")
		p := createPoll(c, s, a, "versus", "left", "right")
		comment := thegoat.NewComment(p.ID, nil, "hello", a.ID)
		c.Assert(s.InsertComment(ctx, comment), qt.IsNil)

		c.Assert(s.InsertNotification(ctx, thegoat.NewLikeNotification(comment, b)), qt.IsNil)

		notifs, err := s.ListNotifications(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(notifs, qt.HasLen, 1)
		c.Assert(notifs[0].Kind, qt.Equals, thegoat.NotificationLike)
		c.Assert(notifs[0].RelatedID, qt.Equals, p.ID)
		c.Assert(notifs[0].Read, qt.IsFalse)
	})

	c.Run("reading and clearing notifications", func(c *qt.C) {
		s := newStore(c)
		a := createUser(c, s, "a")
		b := createUser(c, s, "b")
		p := createPoll(c, s, a, "versus", "left", "right")

		voted := thegoat.NewVoteNotification(p, b.ID)
		c.Assert(s.InsertNotification(ctx, voted), qt.IsNil)
		commented := thegoat.NewCommentNotification(p, b)
		c.Assert(s.InsertNotification(ctx, commented), qt.IsNil)
		other := &thegoat.Notification{UserID: b.ID, Kind: thegoat.NotificationLike, Title: "댓글 좋아요", CreatedAt: thegoat.NowFunc()}
		c.Assert(s.InsertNotification(ctx, other), qt.IsNil)

		unread := func(userID string) int {
			notifs, err := s.ListNotifications(ctx, userID)
			c.Assert(err, qt.IsNil)
			n := 0
			for _, notif := range notifs {
				if !notif.Read {
					n++
				}
			}
			return n
		}

		c.Assert(s.MarkNotificationRead(ctx, b.ID, voted.ID), qt.ErrorIs, thegoat.ErrNotificationNotFound)
		c.Assert(s.MarkNotificationRead(ctx, a.ID, "not-a-notification"), qt.ErrorIs, thegoat.ErrNotificationNotFound)
		c.Assert(unread(a.ID), qt.Equals, 2)

		c.Assert(s.MarkNotificationRead(ctx, a.ID, voted.ID), qt.IsNil)
		c.Assert(unread(a.ID), qt.Equals, 1)

		c.Assert(s.MarkAllNotificationsRead(ctx, a.ID), qt.IsNil)
		c.Assert(unread(a.ID), qt.Equals, 0)
		c.Assert(unread(b.ID), qt.Equals, 1)

		c.Assert(s.ClearNotifications(ctx, a.ID), qt.IsNil)
		notifs, err := s.ListNotifications(ctx, a.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(notifs, qt.HasLen, 0)
		notifs, err = s.ListNotifications(ctx, b.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(notifs, qt.HasLen, 1)
	})
}

func ids(polls []*thegoat.Poll) []string {
	res := make([]string, len(polls))
	for i, p := range polls {
		res[i] = p.ID
	}
	return res
}

func texts(options []*thegoat.PollOption) []string {
	res := make([]string, len(options))
	for i, o := range options {
		res[i] = o.Text
	}
	return res
}

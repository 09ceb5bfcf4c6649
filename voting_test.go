package thegoat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// fakeVoteStore enforces one vote per voter key, the way a unique index would.
type fakeVoteStore struct {
	mtx   sync.Mutex
	poll  *Poll
	votes map[string]*Vote
}

func newFakeVoteStore(p *Poll) *fakeVoteStore {
	return &fakeVoteStore{poll: p, votes: map[string]*Vote{}}
}

func (s *fakeVoteStore) FindPoll(ctx context.Context, id string) (*Poll, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if id != s.poll.ID {
		return nil, ErrPollNotFound
	}
	cp := *s.poll
	cp.Options = nil
	for _, o := range s.poll.Options {
		oc := *o
		cp.Options = append(cp.Options, &oc)
	}
	return &cp, nil
}

func (s *fakeVoteStore) InsertVote(ctx context.Context, v *Vote) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.votes[v.VoterKey]; ok {
		return ErrAlreadyVoted
	}
	s.votes[v.VoterKey] = v
	s.poll.Option(v.OptionID).VoteCount++
	s.poll.TotalVotes++
	return nil
}

func TestCastVote(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	newPoll := func() *Poll {
		p := pollWithVotes(PollTypeVersus, 0, 0)
		p.ID = "p1"
		return p
	}

	c.Run("first vote", func(c *qt.C) {
		store := newFakeVoteStore(newPoll())
		p, err := CastVote(ctx, store, "p1", "a", Identity{UserID: "7"})
		c.Assert(err, qt.IsNil)
		c.Assert(p.TotalVotes, qt.Equals, int64(1))
		c.Assert(Percentages(p), qt.DeepEquals, []int{100, 0})
		c.Assert(store.votes["user:7"].UserID, qt.Not(qt.IsNil))
	})

	c.Run("second vote of the same identity", func(c *qt.C) {
		store := newFakeVoteStore(newPoll())
		_, err := CastVote(ctx, store, "p1", "a", Identity{Addr: "10.0.0.1"})
		c.Assert(err, qt.IsNil)
		_, err = CastVote(ctx, store, "p1", "b", Identity{Addr: "10.0.0.1"})
		c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)
		c.Assert(store.poll.TotalVotes, qt.Equals, int64(1))
	})

	c.Run("unknown poll", func(c *qt.C) {
		store := newFakeVoteStore(newPoll())
		_, err := CastVote(ctx, store, "nope", "a", Identity{UserID: "7"})
		c.Assert(err, qt.ErrorIs, ErrPollNotFound)
	})

	c.Run("option of another poll", func(c *qt.C) {
		store := newFakeVoteStore(newPoll())
		_, err := CastVote(ctx, store, "p1", "z", Identity{UserID: "7"})
		c.Assert(err, qt.ErrorIs, ErrUnknownOption)
		c.Assert(store.votes, qt.HasLen, 0)
	})

	c.Run("closed poll is reported before duplicates", func(c *qt.C) {
		p := newPoll()
		store := newFakeVoteStore(p)
		_, err := CastVote(ctx, store, "p1", "a", Identity{UserID: "7"})
		c.Assert(err, qt.IsNil)

		past := NowFunc().Add(-time.Hour)
		p.EndsAt = &past
		_, err = CastVote(ctx, store, "p1", "a", Identity{UserID: "7"})
		c.Assert(err, qt.ErrorIs, ErrPollClosed)
	})

	c.Run("concurrent votes of one identity count once", func(c *qt.C) {
		store := newFakeVoteStore(newPoll())
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := CastVote(ctx, store, "p1", "b", Identity{UserID: "7"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
			} else {
				c.Assert(errors.Is(err, ErrAlreadyVoted), qt.IsTrue)
			}
		}
		c.Assert(ok, qt.Equals, 1)
		c.Assert(store.poll.TotalVotes, qt.Equals, int64(1))
	})
}

func TestResolveIdentity(t *testing.T) {
	c := qt.New(t)

	req := httptestRequest("GET", "/", "192.168.1.2:4242")
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	id := ResolveIdentity(req, nil, false)
	c.Assert(id.Key(), qt.Equals, "ip:192.168.1.2")

	id = ResolveIdentity(req, nil, true)
	c.Assert(id.Key(), qt.Equals, "ip:1.2.3.4")

	id = ResolveIdentity(req, &User{ID: "9"}, true)
	c.Assert(id.Key(), qt.Equals, "user:9")
	c.Assert(id.Addr, qt.Equals, "1.2.3.4")

	req = httptestRequest("GET", "/", "pipe")
	id = ResolveIdentity(req, nil, false)
	c.Assert(id.Key(), qt.Matches, `anonymous_[0-9a-f-]{36}`)
}

func httptestRequest(method string, target string, remoteAddr string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = remoteAddr
	return req
}

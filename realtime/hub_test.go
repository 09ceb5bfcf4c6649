package realtime

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"
)

func receive(c *qt.C, s *Subscription) Event {
	select {
	case e := <-s.C:
		return e
	case <-time.After(time.Second):
		c.Fatalf("no event received on %s", s.topic)
	}
	return Event{}
}

func TestHub(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("delivers to subscribers of the topic", func(c *qt.C) {
		hub := NewHub(zerolog.Nop())
		s := hub.Subscribe(PollTopic("1"))
		defer s.Close()

		err := hub.Publish(ctx, Event{Topic: PollTopic("1"), Kind: KindPollUpdated, PollID: "1"})
		c.Assert(err, qt.IsNil)

		e := receive(c, s)
		c.Assert(e.PollID, qt.Equals, "1")
		c.Assert(e.Kind, qt.Equals, KindPollUpdated)
	})

	c.Run("topics are isolated", func(c *qt.C) {
		hub := NewHub(zerolog.Nop())
		a := hub.Subscribe(PollTopic("a"))
		defer a.Close()
		b := hub.Subscribe(PollTopic("b"))
		defer b.Close()

		c.Assert(hub.Publish(ctx, Event{Topic: PollTopic("a"), PollID: "a"}), qt.IsNil)

		c.Assert(receive(c, a).PollID, qt.Equals, "a")
		select {
		case e := <-b.C:
			c.Fatalf("unexpected event %v", e)
		default:
		}
	})

	c.Run("every subscriber gets the event", func(c *qt.C) {
		hub := NewHub(zerolog.Nop())
		s1 := hub.Subscribe(TopicPolls)
		defer s1.Close()
		s2 := hub.Subscribe(TopicPolls)
		defer s2.Close()

		c.Assert(hub.Publish(ctx, Event{Topic: TopicPolls, PollID: "x"}), qt.IsNil)
		c.Assert(receive(c, s1).PollID, qt.Equals, "x")
		c.Assert(receive(c, s2).PollID, qt.Equals, "x")
	})

	c.Run("closing removes the subscription", func(c *qt.C) {
		hub := NewHub(zerolog.Nop())
		s := hub.Subscribe(TopicPolls)
		c.Assert(hub.Subscribers(TopicPolls), qt.Equals, 1)

		s.Close()
		s.Close()
		c.Assert(hub.Subscribers(TopicPolls), qt.Equals, 0)
		c.Assert(hub.Publish(ctx, Event{Topic: TopicPolls}), qt.IsNil)
	})

	c.Run("full subscribers don't hold publishers back", func(c *qt.C) {
		hub := NewHub(zerolog.Nop())
		stalled := make([]*Subscription, 3)
		for i := range stalled {
			stalled[i] = hub.Subscribe(TopicPolls)
			defer stalled[i].Close()
		}
		for i := 0; i < subscriptionBuffer; i++ {
			c.Assert(hub.Publish(ctx, Event{Topic: TopicPolls}), qt.IsNil)
		}

		live := hub.Subscribe(TopicPolls)
		defer live.Close()

		start := time.Now()
		c.Assert(hub.Publish(ctx, Event{Topic: TopicPolls, PollID: "x"}), qt.IsNil)
		c.Assert(time.Since(start) < 100*time.Millisecond, qt.IsTrue)

		c.Assert(receive(c, live).PollID, qt.Equals, "x")
		for _, s := range stalled {
			c.Assert(len(s.C), qt.Equals, subscriptionBuffer)
		}
	})
}

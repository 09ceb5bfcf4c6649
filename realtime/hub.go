package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const subscriptionBuffer = 16

// TopicPolls carries events about any poll, for clients displaying lists.
const TopicPolls = "polls"

// PollTopic returns the topic carrying events about a single poll.
func PollTopic(pollID string) string {
	return "poll:" + pollID
}

// Event kinds.
const (
	KindPollUpdated = "poll.updated"
	KindPollDeleted = "poll.deleted"
	KindComment     = "poll.comment"
)

// An Event notifies subscribers that something changed. It carries no state: receivers are
// expected to fetch whatever they display again.
type Event struct {
	Topic  string `json:"topic"`
	Kind   string `json:"kind"`
	PollID string `json:"poll_id,omitempty"`
}

// A Broker fans out events to subscribers of a topic.
type Broker interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(topic string) *Subscription
}

// A Subscription receives the events of a single topic on C until Close is called.
// C is never closed, readers should stop reading once they called Close.
type Subscription struct {
	C <-chan Event

	c     chan Event
	done  chan struct{}
	once  sync.Once
	topic string
	hub   *Hub
}

// Close detaches the subscription from its hub. It is safe to call it more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}

// A Hub is an in-process Broker.
type Hub struct {
	mtx    sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscription on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	c := make(chan Event, subscriptionBuffer)
	s := &Subscription{
		C:     c,
		c:     c,
		done:  make(chan struct{}),
		topic: topic,
		hub:   h,
	}

	h.mtx.Lock()
	defer h.mtx.Unlock()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][s] = struct{}{}
	h.logger.Debug().Str("topic", topic).Int("count", len(h.subs[topic])).Msg("Subscriber added")

	return s
}

// Subscribers returns how many subscriptions are registered on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.subs[topic])
}

// Publish delivers e to the subscribers of e.Topic. It never fails nor blocks: a subscriber
// whose buffer is full misses the event, the next one makes it fetch everything again anyway.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.deliver(e)
	return nil
}

func (h *Hub) deliver(e Event) {
	h.mtx.Lock()
	targets := make([]*Subscription, 0, len(h.subs[e.Topic]))
	for s := range h.subs[e.Topic] {
		targets = append(targets, s)
	}
	h.mtx.Unlock()

	for _, s := range targets {
		select {
		case <-s.done:
			continue
		default:
		}

		select {
		case s.c <- e:
		default:
			h.logger.Warn().Str("topic", e.Topic).Msg("Skipping slow subscriber")
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	subs, ok := h.subs[s.topic]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.subs, s.topic)
	}
	h.logger.Debug().Str("topic", s.topic).Int("count", len(subs)).Msg("Subscriber removed")
}

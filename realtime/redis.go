package realtime

import (
	"context"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const channelPrefix = "events:"

// A RedisBroker shares events between several server instances. Publishing goes through a Redis
// channel, and Run relays everything received on those channels to the local subscribers.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	logger zerolog.Logger
}

func NewRedisBroker(client *redis.Client, hub *Hub, logger zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		logger: logger,
	}
}

// Publish sends e on the Redis channel of its topic.
func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	payload, err := json.MarshalToString(e)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, channelPrefix+e.Topic, payload).Err()
}

// Subscribe registers a subscription on the local hub.
func (b *RedisBroker) Subscribe(topic string) *Subscription {
	return b.hub.Subscribe(topic)
}

// Run relays events from Redis to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// wait for the subscription to be confirmed before relaying anything
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var e Event
			if err := json.UnmarshalFromString(msg.Payload, &e); err != nil {
				b.logger.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to decode event")
				continue
			}
			b.hub.deliver(e)
		}
	}
}

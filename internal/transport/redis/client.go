// Package redis fans published events out to other processes over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/buzzer-backend/internal/publisher"
)

const DefaultChannel = "quiz:events"

type Client struct {
	client  *redis.Client
	channel string
}

func New(client *redis.Client, channel string) *Client {
	if channel == "" {
		channel = DefaultChannel
	}

	return &Client{client: client, channel: channel}
}

// Deliver publishes the event as JSON on the channel.
func (that *Client) Deliver(ctx context.Context, event publisher.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Name, err)
	}

	if err = that.client.Publish(ctx, that.channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Name, err)
	}

	return nil
}

// Subscribe streams events from the channel until ctx is canceled.
func (that *Client) Subscribe(ctx context.Context) (<-chan publisher.Event, error) {
	pubsub := that.client.Subscribe(ctx, that.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", that.channel, err)
	}

	events := make(chan publisher.Event)
	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				var event publisher.Event
				if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

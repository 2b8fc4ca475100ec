// Package feed delivers committed ad changes to live subscribers. Channels
// are scoped per owner, so a subscriber only ever sees its own records.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/khshakilahamed/ads-generator/internal/domain"
)

const channelPrefix = "ads:feed:"

// RedisFeed publishes ad changes over Redis pub/sub so subscribers on any
// instance observe commits made by any other instance.
type RedisFeed struct {
	client *redis.Client
	buffer int
}

// RedisOptions configures the Redis-backed feed.
type RedisOptions struct {
	Client *redis.Client
	// Buffer is the per-subscriber channel capacity. Defaults to 16.
	Buffer int
}

// NewRedisFeed creates a feed on an existing Redis client.
func NewRedisFeed(opts RedisOptions) (*RedisFeed, error) {
	if opts.Client == nil {
		return nil, errors.New("feed: redis client is required")
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 16
	}
	return &RedisFeed{client: opts.Client, buffer: buffer}, nil
}

// Publish sends the ad snapshot to the owner's channel. Callers invoke it
// after the store commit so subscribers never see uncommitted state.
func (f *RedisFeed) Publish(ctx context.Context, ad *domain.Ad) error {
	payload, err := json.Marshal(ad)
	if err != nil {
		return fmt.Errorf("feed: encode ad: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+ad.OwnerEmail, payload).Err(); err != nil {
		return fmt.Errorf("feed: publish: %w", err)
	}
	return nil
}

// Subscribe opens a live stream of ad changes for the owner. The returned
// cancel func stops the stream and closes the channel.
func (f *RedisFeed) Subscribe(ctx context.Context, ownerEmail string) (<-chan domain.Ad, func() error, error) {
	sub := f.client.Subscribe(ctx, channelPrefix+ownerEmail)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("feed: subscribe: %w", err)
	}

	out := make(chan domain.Ad, f.buffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ad domain.Ad
			if err := json.Unmarshal([]byte(msg.Payload), &ad); err != nil {
				continue
			}
			select {
			case out <- ad:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}

var _ domain.AdFeed = (*RedisFeed)(nil)

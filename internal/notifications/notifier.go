// Package notifications delivers realtime feed events to websocket clients.
package notifications

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const companyChannelPrefix = "feed:company:"

// Notifier publishes feed events into Redis so every instance can fan them
// out to its own sockets.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishCompany sends a payload to a company's feed channel.
func (n *Notifier) PublishCompany(ctx context.Context, companyID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, CompanyChannel(companyID), payload).Err()
}

// StartFeedSubscriber subscribes to `feed:company:*` and calls onMessage for
// each incoming message until ctx is cancelled.
func (n *Notifier) StartFeedSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, companyChannelPrefix+"*")
	// Wait for the subscription to be confirmed so publishes right after
	// startup are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to feed channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in FeedSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// CompanyChannel derives the Redis channel name for a company feed.
func CompanyChannel(companyID uint) string {
	return companyChannelPrefix + strconv.FormatUint(uint64(companyID), 10)
}

// ParseCompanyChannel extracts the company ID from a feed channel name.
func ParseCompanyChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, companyChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

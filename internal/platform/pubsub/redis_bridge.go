package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel the bridge uses when none is given.
const DefaultChannel = "quotes:events"

// envelope is the payload sent over Redis.
type envelope struct {
	Origin string `json:"origin"`
	Topic  Topic  `json:"topic"`
	Event  Event  `json:"event"`
}

// RedisBridge publishes locally and re-publishes on a Redis channel so that the
// subscribers of every replica receive the event.
// 自分が送ったメッセージは origin で判別して二重配信しません。
type RedisBridge struct {
	rdb     *redis.Client
	local   *Broker
	channel string
	origin  string
}

var _ Publisher = (*RedisBridge)(nil)

// NewRedisBridge creates a bridge. An empty channel uses DefaultChannel.
func NewRedisBridge(rdb *redis.Client, local *Broker, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{rdb: rdb, local: local, channel: channel, origin: uuid.NewString()}
}

// Publish delivers to local subscribers first, then to Redis.
// Redis の失敗はエラーとして返しますが、ローカル配信は済んでいます。
func (r *RedisBridge) Publish(ctx context.Context, ev Event) error {
	if ev.Topic == "" {
		ev.Topic = TopicPriceUpdate
	}
	_ = r.local.Publish(ctx, ev)

	b, err := json.Marshal(envelope{Origin: r.origin, Topic: ev.Topic, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

// Run subscribes to the Redis channel and forwards remote events to the local broker
// until ctx is canceled.
func (r *RedisBridge) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			slog.Warn("failed to close redis subscription", "error", err)
		}
	}()

	// 購読の確立を待つ
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	slog.Info("redis event bridge started", "channel", r.channel, "origin", r.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

// handle forwards one Redis payload to the local broker.
func (r *RedisBridge) handle(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		slog.Warn("drop malformed bridge message", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	env.Event.Topic = env.Topic
	_ = r.local.Publish(ctx, env.Event)
}

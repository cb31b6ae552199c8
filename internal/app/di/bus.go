package di

import (
	"github.com/redis/go-redis/v9"

	"quote_backend/internal/platform/config"
	"quote_backend/internal/platform/pubsub"
)

// NewPublisher returns the publisher the refresh engine uses.
// If Redis is available, events are also relayed to other replicas through the bridge.
// Otherwise, the in-process broker is used directly and the bridge is nil.
func NewPublisher(rdb *redis.Client, broker *pubsub.Broker) (pubsub.Publisher, *pubsub.RedisBridge) {
	if rdb == nil {
		return broker, nil
	}
	bridge := pubsub.NewRedisBridge(rdb, broker, config.String("BUS_REDIS_CHANNEL", ""))
	return bridge, bridge
}

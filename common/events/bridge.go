package events

import (
	"context"
	"fmt"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/redis"
)

// RedisBridge subscribes to every project channel and forwards payloads to
// the local hub. Each replica runs one bridge so WebSocket subscribers see
// events no matter which replica produced them.
type RedisBridge struct {
	redis *redis.Client
	hub   *Hub
	log   *logger.Logger
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, log *logger.Logger) *RedisBridge {
	return &RedisBridge{redis: rdb, hub: hub, log: log}
}

// Run blocks until the context is cancelled.
func (s *RedisBridge) Run(ctx context.Context) error {
	pubsub := s.redis.GetUnderlying().PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to event channels: %w", err)
	}
	s.log.Info("event bridge started", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("event bridge stopped")
			return nil

		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			projectID := projectFromChannel(msg.Channel)
			if projectID == "" {
				s.log.Warn("unexpected event channel", "channel", msg.Channel)
				continue
			}
			s.hub.Broadcast(projectID, []byte(msg.Payload))
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/redis"
)

// channelPrefix namespaces the pub/sub channels, one per project.
const channelPrefix = "novaintel:events:"

// Channel returns the pub/sub channel for a project.
func Channel(projectID string) string {
	return channelPrefix + projectID
}

// projectFromChannel extracts the project ID, or "" for foreign channels.
func projectFromChannel(channel string) string {
	if !strings.HasPrefix(channel, channelPrefix) {
		return ""
	}
	return channel[len(channelPrefix):]
}

// Bus is the Emitter the rest of the service uses. With Redis attached it
// publishes to the project channel so every replica's hub sees the event;
// the local bridge feeds it back to subscribers. Without Redis it goes to
// the local hub directly.
type Bus struct {
	hub     *Hub
	redis   *redis.Client
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewBus(hub *Hub, rdb *redis.Client, log *logger.Logger, m *metrics.Metrics) *Bus {
	return &Bus{hub: hub, redis: rdb, log: log, metrics: m}
}

// Emit serializes the event and fans it out. Failures are logged, never
// returned: event delivery must not fail a workflow step.
func (b *Bus) Emit(ctx context.Context, event Event) {
	if event.ProjectID == "" {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("event marshal failed", "kind", event.Kind, "error", err)
		return
	}

	if b.metrics != nil {
		b.metrics.EventsEmitted.WithLabelValues(string(event.Kind)).Inc()
	}

	if b.redis != nil {
		if err := b.redis.PublishEvent(ctx, Channel(event.ProjectID), string(data)); err != nil {
			b.log.Warn("event publish failed, falling back to local hub",
				"project_id", event.ProjectID,
				"error", err,
			)
			b.hub.Broadcast(event.ProjectID, data)
		}
		return
	}

	b.hub.Broadcast(event.ProjectID, data)
}

package events

import (
	"context"
	"sync"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
)

// Hub maintains active WebSocket subscribers keyed by project and fans
// broadcast frames out to them. Slow subscribers lose frames instead of
// stalling the sender.
type Hub struct {
	log     *logger.Logger
	metrics *metrics.Metrics

	// Map: project_id -> subscribers
	connections map[string][]*Client
	mutex       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *frame

	done chan struct{}
}

// frame is one serialized event bound for a project's subscribers.
type frame struct {
	projectID string
	data      []byte
}

func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		log:         log,
		metrics:     m,
		connections: make(map[string][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *frame, 256),
		done:        make(chan struct{}),
	}
}

// Run drives the hub until the context is cancelled, then closes every
// subscriber so their write pumps exit.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("event hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("event hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case f := <-h.broadcast:
			h.fanOut(f)
		}
	}
}

// Broadcast queues a frame for every subscriber of the project. It never
// blocks; when the hub is saturated the frame is dropped.
func (h *Hub) Broadcast(projectID string, data []byte) {
	select {
	case h.broadcast <- &frame{projectID: projectID, data: data}:
	case <-h.done:
	default:
		h.log.Warn("event hub saturated, dropping frame", "project_id", projectID)
		if h.metrics != nil {
			h.metrics.EventsDropped.Inc()
		}
	}
}

// Register hands a new subscriber to the run loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.closeSend()
	}
}

// Unregister removes a subscriber. Safe after the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.connections[client.projectID] = append(h.connections[client.projectID], client)
	h.log.Debug("subscriber registered",
		"project_id", client.projectID,
		"subscribers", len(h.connections[client.projectID]),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients := h.connections[client.projectID]
	for i, c := range clients {
		if c == client {
			h.connections[client.projectID] = append(clients[:i], clients[i+1:]...)
			c.closeSend()
			if len(h.connections[client.projectID]) == 0 {
				delete(h.connections, client.projectID)
			}
			h.log.Debug("subscriber unregistered",
				"project_id", client.projectID,
				"subscribers", len(h.connections[client.projectID]),
			)
			break
		}
	}
}

// fanOut delivers one frame to every subscriber of the project. A full
// subscriber buffer drops the frame for that subscriber only.
func (h *Hub) fanOut(f *frame) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.connections[f.projectID] {
		select {
		case client.send <- f.data:
		default:
			h.log.Warn("subscriber buffer full, dropping frame", "project_id", f.projectID)
			if h.metrics != nil {
				h.metrics.EventsDropped.Inc()
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	close(h.done)
	for _, clients := range h.connections {
		for _, c := range clients {
			c.closeSend()
		}
	}
	h.connections = make(map[string][]*Client)
}

// SubscriberCount returns the number of active subscribers across projects.
func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}

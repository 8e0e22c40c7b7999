package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const eventChannelPrefix = "events:user:"

// EventChannel is the Redis channel carrying one user's events.
func EventChannel(userID string) string {
	return eventChannelPrefix + userID
}

// EventSink receives events for one connection. Send must not block.
type EventSink interface {
	Send(ev models.Event) bool
}

// EventHub fans user events out to local websocket sinks. With a Redis
// client, events travel through pub/sub so every instance sees them;
// without one they are delivered in process.
type EventHub struct {
	client *redis.Client
	log    *zap.Logger

	mu    sync.RWMutex
	sinks map[string]map[EventSink]struct{}
}

func NewEventHub(client *redis.Client, log *zap.Logger) *EventHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHub{client: client, log: log, sinks: make(map[string]map[EventSink]struct{})}
}

// Register attaches a sink to a user. The returned func detaches it.
func (h *EventHub) Register(userID string, sink EventSink) (unregister func()) {
	h.mu.Lock()
	set, ok := h.sinks[userID]
	if !ok {
		set = make(map[EventSink]struct{})
		h.sinks[userID] = set
	}
	set[sink] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.sinks[userID]; ok {
			delete(set, sink)
			if len(set) == 0 {
				delete(h.sinks, userID)
			}
		}
	}
}

// Connections counts the sinks attached to a user.
func (h *EventHub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks[userID])
}

// Publish implements store.Publisher.
func (h *EventHub) Publish(ctx context.Context, ev models.Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if h.client == nil {
		h.fanOut(ev)
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, EventChannel(ev.UserID), data).Err()
}

func (h *EventHub) fanOut(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sink := range h.sinks[ev.UserID] {
		if !sink.Send(ev) {
			h.log.Warn("event dropped for slow connection",
				zap.String("user_id", ev.UserID), zap.String("type", ev.Type))
		}
	}
}

// Run relays Redis pub/sub events to local sinks until ctx is done,
// reconnecting with capped exponential backoff.
func (h *EventHub) Run(ctx context.Context) error {
	if h.client == nil {
		<-ctx.Done()
		return nil
	}
	backoff := time.Second
	for {
		err := h.subscribe(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return nil
		}
		h.log.Warn("event subscriber disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (h *EventHub) subscribe(ctx context.Context, onMessage func()) error {
	pubsub := h.client.PSubscribe(ctx, eventChannelPrefix+"*")
	defer pubsub.Close()
	h.log.Info("✅ Event subscriber started", zap.String("pattern", eventChannelPrefix+"*"))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		var ev models.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			h.log.Warn("bad event payload", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if ev.UserID == "" {
			ev.UserID = strings.TrimPrefix(msg.Channel, eventChannelPrefix)
		}
		h.fanOut(ev)
	}
}

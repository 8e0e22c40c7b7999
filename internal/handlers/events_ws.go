package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 90 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 32
)

// CORS for websockets is handled at the HTTP layer.
var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsClientMessage struct {
	Type string `json:"type"` // "ping"
}

// wsSink buffers events for one connection. A full buffer drops events
// rather than blocking the hub.
type wsSink struct {
	ch chan models.Event
}

func (s *wsSink) Send(ev models.Event) bool {
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// EventsWebSocket streams the caller's game events: task completions,
// achievement transitions, rewards and level ups.
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "Realtime events are not available")
		return
	}
	userID := userIDFrom(r.Context()).String()

	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sink := &wsSink{ch: make(chan models.Event, wsSendBuffer)}
	unregister := h.events.Register(userID, sink)
	defer unregister()
	h.log.Debug("events socket opened", zap.String("user_id", userID))

	done := make(chan struct{})
	defer close(done)

	// Writer goroutine: the only place that writes to conn.
	pongs := make(chan struct{}, 1)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case ev := <-sink.ch:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-pongs:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug("events socket closed", zap.String("user_id", userID))
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

type chanSink chan models.Event

func (c chanSink) Send(ev models.Event) bool {
	select {
	case c <- ev:
		return true
	default:
		return false
	}
}

func TestEventHubLocalFanOut(t *testing.T) {
	hub := NewEventHub(nil, nil)
	phone, laptop, other := make(chanSink, 1), make(chanSink, 1), make(chanSink, 1)

	unregPhone := hub.Register("u1", phone)
	hub.Register("u1", laptop)
	hub.Register("u2", other)
	assert.Equal(t, 2, hub.Connections("u1"))

	require.NoError(t, hub.Publish(context.Background(), models.Event{Type: models.EventTaskCompleted, UserID: "u1"}))
	ev := <-phone
	assert.Equal(t, models.EventTaskCompleted, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())
	<-laptop
	assert.Empty(t, other)

	unregPhone()
	assert.Equal(t, 1, hub.Connections("u1"))
	require.NoError(t, hub.Publish(context.Background(), models.Event{Type: models.EventLevelUp, UserID: "u1"}))
	assert.Empty(t, phone)
	assert.Len(t, laptop, 1)
}

func TestEventHubDropsForFullSink(t *testing.T) {
	hub := NewEventHub(nil, nil)
	full := make(chanSink)
	hub.Register("u1", full)
	// Unbuffered with no reader: Send reports false and Publish still returns.
	assert.NoError(t, hub.Publish(context.Background(), models.Event{Type: models.EventLevelUp, UserID: "u1"}))
}

func TestEventChannel(t *testing.T) {
	assert.Equal(t, "events:user:abc", EventChannel("abc"))
}

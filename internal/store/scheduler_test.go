package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Every test closes its store, so no completion goroutine may outlive it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSchedulerCollapsesDuplicates(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	defer s.Close()

	var runs atomic.Int32
	assert.True(t, s.Schedule("k", func() { runs.Add(1) }))
	assert.False(t, s.Schedule("k", func() { runs.Add(1) }))
	assert.True(t, s.Pending("k"))

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Pending("k"))

	// Once fired the key can be scheduled again.
	assert.True(t, s.Schedule("k", func() { runs.Add(1) }))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler(time.Hour)
	defer s.Close()

	ran := false
	require.True(t, s.Schedule("k", func() { ran = true }))
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Cancel("k"))
	assert.False(t, s.Pending("k"))
	assert.False(t, ran)
}

func TestSchedulerCloseStopsPending(t *testing.T) {
	s := NewScheduler(time.Hour)
	var runs atomic.Int32
	s.Schedule("a", func() { runs.Add(1) })
	s.Schedule("b", func() { runs.Add(1) })

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on stopped timers")
	}
	assert.Equal(t, int32(0), runs.Load())
	assert.False(t, s.Schedule("c", func() {}))
}

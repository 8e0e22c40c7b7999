package store

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending job per key after a fixed delay.
type Scheduler struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func NewScheduler(delay time.Duration) *Scheduler {
	if delay < 0 {
		delay = 0
	}
	return &Scheduler{delay: delay, timers: make(map[string]*time.Timer)}
}

// Schedule queues fn under key. It returns false when a job for key is
// already pending or the scheduler is closed.
func (s *Scheduler) Schedule(key string, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, pending := s.timers[key]; pending {
		return false
	}
	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		if s.timers[key] == t {
			delete(s.timers, key)
		}
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = t
	return true
}

// Cancel drops a pending job. Reports whether one was stopped.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	if t.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Close stops pending jobs and waits for running ones to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for key, t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

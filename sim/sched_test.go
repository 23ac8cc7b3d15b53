package sim

import (
	"sync"
	"time"
)

// fakeScheduler is a manually driven clock: timers fire only when the test
// advances time (or fires them explicitly, to reproduce out-of-order jitter).
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Time
	fn      func()
	fired   bool
	stopped bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward and fires due timers in deadline order.
// Callbacks run without the scheduler lock so they may arm new timers.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()

	for {
		t := s.nextDue()
		if t == nil {
			return
		}
		t.fn()
	}
}

func (s *fakeScheduler) nextDue() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *fakeTimer
	for _, t := range s.timers {
		if t.fired || t.stopped || t.at.After(s.now) {
			continue
		}
		if best == nil || t.at.Before(best.at) {
			best = t
		}
	}
	if best != nil {
		best.fired = true
	}
	return best
}

// pending returns timers that are armed but not yet fired or stopped.
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fire runs a timer immediately, ignoring its deadline.
func (s *fakeScheduler) fire(t *fakeTimer) {
	s.mu.Lock()
	if t.fired || t.stopped {
		s.mu.Unlock()
		return
	}
	t.fired = true
	s.mu.Unlock()
	t.fn()
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

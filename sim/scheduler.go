package sim

import "time"

// Scheduler abstracts timer creation and the clock so tests can drive time
// manually instead of sleeping on real timers.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback. Stop reports whether the call
// was prevented from running.
type Timer interface {
	Stop() bool
}

type systemScheduler struct{}

func (systemScheduler) Now() time.Time { return time.Now() }

func (systemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (st systemTimer) Stop() bool { return st.t.Stop() }

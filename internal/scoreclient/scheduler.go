package scoreclient

import "time"

// Timer is the cancellable handle a Scheduler hands back.
type Timer interface {
	Stop() bool
}

// Scheduler abstracts one-shot timer creation so tests can fire debounce
// and batch deadlines deterministically instead of sleeping.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

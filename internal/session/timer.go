package session

import "time"

// Timer is a single armed callback. Stop reports whether it prevented
// the callback from running.
type Timer interface {
	Stop() bool
}

// NewTimerFunc constructs a timer invoking f after d. The service uses
// time.AfterFunc; tests inject their own to control firing.
type NewTimerFunc func(d time.Duration, f func()) Timer

func newStdTimer(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

package kiosk

import "time"

// Clock supplies the current time and one-shot callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a callback scheduled with AfterFunc.
type Stopper interface {
	Stop() bool
}

type wallClock struct{}

// WallClock is the Clock backed by the time package.
func WallClock() Clock {
	return wallClock{}
}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

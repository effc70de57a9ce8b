package kiosk

import (
	"sync"
	"time"
)

// TimerPhase is the lifecycle of a single countdown.
type TimerPhase int

const (
	TimerIdle TimerPhase = iota
	TimerRunning
	TimerExpired
)

func (p TimerPhase) String() string {
	switch p {
	case TimerRunning:
		return "running"
	case TimerExpired:
		return "expired"
	default:
		return "idle"
	}
}

// Timer counts down one question in one-second steps. Every Start opens a new run; callbacks
// carry the run they belong to so listeners can drop anything from a superseded run.
// Expiry fires at most once per run and no tick follows it.
type Timer struct {
	clock    Clock
	onTick   func(run uint64, remaining int)
	onExpire func(run uint64)

	mu        sync.Mutex
	phase     TimerPhase
	remaining int
	run       uint64
	pending   Stopper
}

func NewTimer(clock Clock, onTick func(run uint64, remaining int), onExpire func(run uint64)) *Timer {
	if clock == nil {
		clock = WallClock()
	}
	return &Timer{clock: clock, onTick: onTick, onExpire: onExpire}
}

// Start stops any running countdown, resets the remaining time to limitSeconds and returns the new run.
func (t *Timer) Start(limitSeconds int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.run++
	t.phase = TimerRunning
	t.remaining = limitSeconds
	t.scheduleLocked(t.run)
	return t.run
}

// Stop halts the countdown. Safe to call at any time.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Remaining returns the seconds left in the current run.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Phase returns the current lifecycle phase.
func (t *Timer) Phase() TimerPhase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Timer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if t.phase == TimerRunning {
		t.phase = TimerIdle
		// invalidates a callback that already passed the clock but has not taken the lock yet
		t.run++
	}
}

func (t *Timer) scheduleLocked(run uint64) {
	t.pending = t.clock.AfterFunc(time.Second, func() { t.fire(run) })
}

func (t *Timer) fire(run uint64) {
	t.mu.Lock()
	if t.run != run || t.phase != TimerRunning {
		t.mu.Unlock()
		return
	}
	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}
	remaining := t.remaining
	expired := remaining == 0
	if expired {
		t.phase = TimerExpired
		t.pending = nil
	} else {
		t.scheduleLocked(run)
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(run, remaining)
	}
	if expired && t.onExpire != nil {
		t.onExpire(run)
	}
}

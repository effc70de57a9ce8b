package kiosk

import (
	"context"
	"sync"
	"time"

	"kiosk-quiz-service/internal/domain"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due callbacks in order without holding the clock lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.fn()
	}
}

type fakeBackend struct {
	mu sync.Mutex

	questions    []domain.Question
	catalogErr   error
	catalogCalls int

	registerResult domain.RegistrationResult
	registerErr    error
	registrations  []domain.Registration

	submitErrs  []error
	submissions []domain.Submission

	leaderboard    []domain.LeaderboardRow
	leaderboardErr error
}

func newFakeBackend(questions int) *fakeBackend {
	qs := make([]domain.Question, questions)
	for i := range qs {
		id := i
		qs[i] = domain.Question{ID: &id, Question: "Question", Options: []string{"a", "b", "c", "d"}}
	}
	return &fakeBackend{
		questions:      qs,
		registerResult: domain.RegistrationResult{Success: true, Message: "Registration successful"},
	}
}

func (b *fakeBackend) FetchCatalog(context.Context) ([]domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogCalls++
	if b.catalogErr != nil {
		return nil, b.catalogErr
	}
	return b.questions, nil
}

func (b *fakeBackend) Register(_ context.Context, form domain.Registration) (domain.RegistrationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrations = append(b.registrations, form)
	return b.registerResult, b.registerErr
}

func (b *fakeBackend) SubmitQuiz(_ context.Context, submission domain.Submission) (domain.SubmissionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions = append(b.submissions, submission)
	if len(b.submitErrs) > 0 {
		err := b.submitErrs[0]
		b.submitErrs = b.submitErrs[1:]
		if err != nil {
			return domain.SubmissionResult{}, err
		}
	}
	return domain.SubmissionResult{Success: true}, nil
}

func (b *fakeBackend) FetchLeaderboard(context.Context) ([]domain.LeaderboardRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leaderboard, b.leaderboardErr
}

type memoryIdentities struct {
	mu       sync.Mutex
	identity domain.Identity
	ok       bool
	clears   int
}

func (m *memoryIdentities) Load(context.Context) (domain.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.ok, nil
}

func (m *memoryIdentities) Save(_ context.Context, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity, m.ok = identity, true
	return nil
}

func (m *memoryIdentities) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity, m.ok = domain.Identity{}, false
	m.clears++
	return nil
}

func inline(f func()) { f() }

type queuedExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queuedExecutor) spawn(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, f)
}

func (q *queuedExecutor) runAll() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		task()
	}
}

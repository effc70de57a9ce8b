package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kiosk-quiz-service/internal/domain"
)

const (
	DefaultQuestionSeconds = 20
	DefaultWelcomeDelay    = 3 * time.Second
	DefaultResultsDelay    = 1200 * time.Millisecond
	DefaultRequestTimeout  = 10 * time.Second
	DefaultLeaderboardSize = 20
)

var (
	// ErrUnexpectedAction is returned for a trigger the current screen does not accept.
	ErrUnexpectedAction = errors.New("action not available on the current screen")
	// ErrNotRegistered is returned when start is requested before a successful registration.
	ErrNotRegistered = errors.New("participant not registered")
)

// Option configures a Controller.
type Option func(*Controller)

func WithClock(clock Clock) Option { return func(c *Controller) { c.clock = clock } }

func WithLogger(logger *zap.Logger) Option { return func(c *Controller) { c.logger = logger } }

func WithQuestionSeconds(seconds int) Option {
	return func(c *Controller) {
		if seconds > 0 {
			c.limit = seconds
		}
	}
}

func WithWelcomeDelay(d time.Duration) Option { return func(c *Controller) { c.welcomeDelay = d } }

func WithResultsDelay(d time.Duration) Option { return func(c *Controller) { c.resultsDelay = d } }

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

func WithLeaderboardSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.topN = n
		}
	}
}

// WithExecutor replaces the goroutine launcher used for collaborator calls.
func WithExecutor(spawn func(func())) Option { return func(c *Controller) { c.spawn = spawn } }

// Controller sequences one participant's session on a display:
// intro -> welcome -> registration -> quiz(i) -> submitting -> results -> leaderboard -> welcome.
// The question index, ledger and timer are owned here and change only through the methods below.
type Controller struct {
	backend    Backend
	identities IdentityStore
	renderer   *LeaderboardRenderer
	clock      Clock
	logger     *zap.Logger
	spawn      func(func())

	limit          int
	welcomeDelay   time.Duration
	resultsDelay   time.Duration
	requestTimeout time.Duration
	topN           int

	mu          sync.Mutex
	state       State
	epoch       uint64
	identity    domain.Identity
	status      string
	message     string
	canStart    bool
	registering bool
	catalog     *catalogFuture
	questions   []domain.Question
	index       int
	ledger      *Ledger
	timer       *Timer
	timerRun    uint64
	remaining   int
	pending     *domain.Submission
	submitting  bool
	leaderboard *LeaderboardView
	delay       Stopper
	subscribers map[chan Snapshot]struct{}
}

type catalogFuture struct {
	done      chan struct{}
	questions []domain.Question
	err       error
}

func NewController(backend Backend, identities IdentityStore, opts ...Option) *Controller {
	c := &Controller{
		backend:        backend,
		identities:     identities,
		clock:          WallClock(),
		logger:         zap.NewNop(),
		spawn:          func(f func()) { go f() },
		limit:          DefaultQuestionSeconds,
		welcomeDelay:   DefaultWelcomeDelay,
		resultsDelay:   DefaultResultsDelay,
		requestTimeout: DefaultRequestTimeout,
		topN:           DefaultLeaderboardSize,
		state:          StateIntro,
		subscribers:    make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timer = NewTimer(c.clock, c.onTick, c.onExpire)
	c.renderer = NewLeaderboardRenderer(backend, c.topN, c.logger)
	return c
}

// Boot restores the persisted identity, or discards it when the display was hard reloaded.
func (c *Controller) Boot(ctx context.Context, freshLoad bool) error {
	if freshLoad {
		if err := c.identities.Clear(ctx); err != nil {
			return fmt.Errorf("clear identity: %w", err)
		}
		return nil
	}
	identity, ok, err := c.identities.Load(ctx)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity
	c.broadcastLocked()
	return nil
}

// VideoEnded leaves the intro, starts prefetching the catalog and schedules the registration screen.
func (c *Controller) VideoEnded() error {
	c.mu.Lock()
	if c.state != StateIntro {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	fetch := c.prefetchLocked()
	c.enterWelcomeLocked()
	c.broadcastLocked()
	c.mu.Unlock()

	fetch()
	return nil
}

// Register validates the form and sends it to the backend. Validation failures return a
// *domain.ValidationError and leave the screen unchanged; the backend answer arrives asynchronously.
func (c *Controller) Register(form domain.Registration) error {
	form = form.Trimmed()

	c.mu.Lock()
	if c.state != StateRegistration || c.registering {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	if err := validateRegistration(form); err != nil {
		c.status = err.Message
		c.broadcastLocked()
		c.mu.Unlock()
		return err
	}
	c.registering = true
	c.status = "Registering..."
	epoch := c.epoch
	c.broadcastLocked()
	c.mu.Unlock()

	c.spawn(func() { c.completeRegistration(epoch, form) })
	return nil
}

func validateRegistration(form domain.Registration) *domain.ValidationError {
	var missing []string
	if form.Name == "" {
		missing = append(missing, "name")
	}
	if form.Regno == "" {
		missing = append(missing, "regno")
	}
	if len(missing) == 0 {
		return nil
	}
	return &domain.ValidationError{Fields: missing, Message: "Name and Reg No are required."}
}

func (c *Controller) completeRegistration(epoch uint64, form domain.Registration) {
	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	res, err := c.backend.Register(ctx, form)

	c.mu.Lock()
	c.registering = false
	if c.epoch != epoch || c.state != StateRegistration {
		c.mu.Unlock()
		c.logger.Info("ignoring late registration response", zap.String("regno", form.Regno))
		return
	}
	switch {
	case err != nil:
		c.logger.Warn("registration failed", zap.String("regno", form.Regno), zap.Error(err))
		c.status = domain.UserMessage(&domain.NetworkError{Op: "register", Err: err})
	case !res.Success:
		c.status = orDefault(res.Message, "Registration failed.")
	default:
		c.identity = domain.Identity{
			Name:  orDefault(res.Name, form.Name),
			Regno: orDefault(res.Regno, form.Regno),
		}
		c.canStart = true
		c.status = "Registered successfully."
	}
	identity := c.identity
	registered := err == nil && res.Success
	c.broadcastLocked()
	c.mu.Unlock()

	if registered {
		if err := c.identities.Save(ctx, identity); err != nil {
			c.logger.Warn("persist identity failed", zap.Error(err))
		}
	}
}

// Start waits for the catalog, resets the ledger and shows the first question.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRegistration {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	if !c.canStart || !c.identity.Complete() {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	fetch := func() {}
	if c.catalog == nil {
		fetch = c.prefetchLocked()
	}
	future := c.catalog
	c.mu.Unlock()

	fetch()
	select {
	case <-future.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	if future.err != nil {
		if c.catalog == future {
			c.catalog = nil
		}
		c.status = domain.UserMessage(future.err)
		c.broadcastLocked()
		c.mu.Unlock()
		return future.err
	}
	if c.state != StateRegistration || !c.canStart {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}

	c.questions = future.questions
	c.ledger = NewLedger(c.questions, c.limit, c.clock.Now)
	c.pending = nil
	c.state = StateQuiz
	c.status = ""
	c.canStart = false
	after := func() {}
	if len(c.questions) == 0 {
		after = c.finishLocked()
	} else {
		c.showLocked(0)
		c.broadcastLocked()
	}
	c.mu.Unlock()

	after()
	return nil
}

// Select records or overwrites the option for the question on screen.
func (c *Controller) Select(option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateQuiz {
		return ErrUnexpectedAction
	}
	if err := c.ledger.RecordSelection(c.index, option); err != nil {
		return err
	}
	c.broadcastLocked()
	return nil
}

// Next leaves the current question.
func (c *Controller) Next() error {
	c.mu.Lock()
	if c.state != StateQuiz {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	after := c.advanceLocked()
	c.mu.Unlock()

	after()
	return nil
}

// RetrySubmit resends the finalized ledger after a failed submission.
func (c *Controller) RetrySubmit() error {
	c.mu.Lock()
	if c.state != StateSubmitting || c.pending == nil {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	c.status = "Submitting..."
	send := c.beginSubmitLocked()
	c.broadcastLocked()
	c.mu.Unlock()

	send()
	return nil
}

// CloseLeaderboard resets the display for the next participant. The identity is kept.
func (c *Controller) CloseLeaderboard() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLeaderboard {
		return ErrUnexpectedAction
	}
	c.enterWelcomeLocked()
	c.broadcastLocked()
	return nil
}

// ClearIdentity forgets the participant, both in memory and in the persistent store.
func (c *Controller) ClearIdentity(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateQuiz || c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrUnexpectedAction
	}
	c.identity = domain.Identity{}
	c.canStart = false
	c.broadcastLocked()
	c.mu.Unlock()

	return c.identities.Clear(ctx)
}

// Snapshot returns the current screen.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of screen updates, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	initial := c.snapshotLocked()
	c.mu.Unlock()

	ch <- initial

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Close stops every timer and drops pending callbacks.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Stop()
	c.cancelDelayLocked()
	c.epoch++
}

func (c *Controller) prefetchLocked() func() {
	future := &catalogFuture{done: make(chan struct{})}
	c.catalog = future
	return func() {
		c.spawn(func() {
			defer close(future.done)
			ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
			defer cancel()
			questions, err := c.backend.FetchCatalog(ctx)
			if err != nil {
				c.logger.Warn("catalog fetch failed", zap.Error(err))
				future.err = &domain.NetworkError{Op: "fetch catalog", Err: err}
				return
			}
			future.questions = questions
		})
	}
}

func (c *Controller) enterWelcomeLocked() {
	c.cancelDelayLocked()
	c.epoch++
	c.state = StateWelcome
	c.status = ""
	c.message = ""
	c.canStart = false
	c.leaderboard = nil
	c.pending = nil
	c.ledger = nil

	epoch := c.epoch
	c.delay = c.clock.AfterFunc(c.welcomeDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch || c.state != StateWelcome {
			return
		}
		c.delay = nil
		c.state = StateRegistration
		c.broadcastLocked()
	})
}

func (c *Controller) cancelDelayLocked() {
	if c.delay != nil {
		c.delay.Stop()
		c.delay = nil
	}
}

func (c *Controller) showLocked(i int) {
	c.index = i
	c.ledger.MarkShown()
	c.remaining = c.limit
	c.timerRun = c.timer.Start(c.limit)
}

// advanceLocked leaves the question on screen exactly once. Stopping the timer comes first so an
// expiry racing with "next" finds a stale run and does nothing.
func (c *Controller) advanceLocked() func() {
	c.timer.Stop()
	c.timerRun = 0
	if !c.ledger.Has(c.index) {
		if err := c.ledger.RecordUnanswered(c.index); err != nil {
			c.logger.Error("record unanswered", zap.Int("index", c.index), zap.Error(err))
		}
	}
	if next := c.index + 1; next < len(c.questions) {
		c.showLocked(next)
		c.broadcastLocked()
		return func() {}
	}
	return c.finishLocked()
}

func (c *Controller) finishLocked() func() {
	entries, err := c.ledger.Finalize()
	if err != nil {
		c.logger.Error("finalize ledger", zap.Error(err))
		c.status = domain.UserMessage(err)
		c.broadcastLocked()
		return func() {}
	}
	c.state = StateSubmitting
	c.status = "Submitting..."
	c.pending = &domain.Submission{
		Name:    c.identity.Name,
		Regno:   c.identity.Regno,
		Answers: entries,
	}
	send := c.beginSubmitLocked()
	c.broadcastLocked()
	return send
}

func (c *Controller) beginSubmitLocked() func() {
	if c.submitting {
		return func() {}
	}
	c.submitting = true
	epoch := c.epoch
	submission := *c.pending
	return func() {
		c.spawn(func() { c.completeSubmission(epoch, submission) })
	}
}

func (c *Controller) completeSubmission(epoch uint64, submission domain.Submission) {
	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	res, err := c.backend.SubmitQuiz(ctx, submission)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if c.epoch != epoch || c.state != StateSubmitting {
		return
	}
	switch {
	case err != nil:
		c.logger.Warn("submission failed", zap.String("regno", submission.Regno), zap.Error(err))
		c.status = "Network error sending results."
	case !res.Success:
		c.status = "Error submitting quiz: " + orDefault(res.Message, "unknown")
	default:
		c.pending = nil
		c.state = StateResults
		c.status = ""
		c.message = "Your quiz has been submitted."
		c.delay = c.clock.AfterFunc(c.resultsDelay, func() { c.showLeaderboard(epoch) })
	}
	c.broadcastLocked()
}

func (c *Controller) showLeaderboard(epoch uint64) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != StateResults {
		c.mu.Unlock()
		return
	}
	c.delay = nil
	c.state = StateLeaderboard
	c.message = ""
	c.leaderboard = &LeaderboardView{Rows: []RankedRow{}, Status: leaderboardLoading}
	regno := c.identity.Regno
	c.broadcastLocked()
	c.mu.Unlock()

	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		defer cancel()
		view := c.renderer.Render(ctx, regno)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch || c.state != StateLeaderboard {
			return
		}
		c.leaderboard = &view
		c.broadcastLocked()
	})
}

func (c *Controller) onTick(run uint64, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateQuiz || run != c.timerRun {
		return
	}
	c.remaining = remaining
	c.broadcastLocked()
}

func (c *Controller) onExpire(run uint64) {
	c.mu.Lock()
	if c.state != StateQuiz || run != c.timerRun {
		c.mu.Unlock()
		return
	}
	after := c.advanceLocked()
	c.mu.Unlock()

	after()
}

func (c *Controller) broadcastLocked() {
	snap := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// the display only needs the latest screen
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    c.state,
		Status:   c.status,
		CanStart: c.canStart,
		Message:  c.message,
	}
	if c.identity.Complete() {
		snap.Badge = &Badge{Name: c.identity.Name, Regno: c.identity.Regno, Initial: c.identity.Initial()}
	}
	if c.state == StateQuiz && c.index < len(c.questions) {
		q := c.questions[c.index]
		snap.Question = &QuestionView{
			Index:     c.index,
			Total:     len(c.questions),
			Text:      fmt.Sprintf("Q%d. %s", c.index+1, q.Question),
			Options:   q.Options,
			Selected:  c.ledger.Selected(c.index),
			Remaining: c.remaining,
		}
	}
	if c.leaderboard != nil {
		view := *c.leaderboard
		snap.Leaderboard = &view
	}
	return snap
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

package kiosk

import (
	"fmt"
	"math"
	"time"

	"kiosk-quiz-service/internal/domain"
)

// Ledger keeps at most one answer per question position. Positions, not question ids, are the key
// so duplicate or missing ids in the catalog cannot collide.
type Ledger struct {
	questions []domain.Question
	limit     int
	now       func() time.Time

	entries []*domain.AnswerEntry
	shownAt time.Time
}

func NewLedger(questions []domain.Question, limitSeconds int, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		questions: questions,
		limit:     limitSeconds,
		now:       now,
		entries:   make([]*domain.AnswerEntry, len(questions)),
	}
}

// Len is the number of catalog positions.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// MarkShown stamps the moment the current question appeared on screen.
func (l *Ledger) MarkShown() {
	l.shownAt = l.now()
}

// RecordSelection overwrites the entry at position i. The last selection before leaving wins.
func (l *Ledger) RecordSelection(i, option int) error {
	if err := l.checkPosition(i); err != nil {
		return err
	}
	if option < 0 || option >= len(l.questions[i].Options) {
		return fmt.Errorf("option %d out of range for question %d", option, i)
	}
	selected := option
	elapsed := l.elapsed()
	l.entries[i] = &domain.AnswerEntry{
		QuestionID: l.questions[i].IDOr(i),
		Selected:   &selected,
		TimeSec:    &elapsed,
	}
	return nil
}

// RecordUnanswered fills position i when it is left without a selection. An existing entry is kept.
func (l *Ledger) RecordUnanswered(i int) error {
	if err := l.checkPosition(i); err != nil {
		return err
	}
	if l.entries[i] != nil {
		return nil
	}
	elapsed := l.elapsed()
	l.entries[i] = &domain.AnswerEntry{
		QuestionID: l.questions[i].IDOr(i),
		TimeSec:    &elapsed,
	}
	return nil
}

// Has reports whether position i already has an entry.
func (l *Ledger) Has(i int) bool {
	return i >= 0 && i < len(l.entries) && l.entries[i] != nil
}

// Selected returns the option chosen at position i, or nil.
func (l *Ledger) Selected(i int) *int {
	if !l.Has(i) || l.entries[i].Selected == nil {
		return nil
	}
	v := *l.entries[i].Selected
	return &v
}

// Finalize returns every entry in catalog order.
func (l *Ledger) Finalize() ([]domain.AnswerEntry, error) {
	out := make([]domain.AnswerEntry, 0, len(l.entries))
	var missing []int
	for i, entry := range l.entries {
		if entry == nil {
			missing = append(missing, i)
			continue
		}
		out = append(out, *entry)
	}
	if len(missing) > 0 {
		return nil, &domain.IncompleteLedgerError{Missing: missing}
	}
	return out, nil
}

func (l *Ledger) checkPosition(i int) error {
	if i < 0 || i >= len(l.entries) {
		return fmt.Errorf("question position %d out of range [0,%d)", i, len(l.entries))
	}
	return nil
}

// elapsed is whole seconds since MarkShown, capped at the limit; the full limit when never shown.
func (l *Ledger) elapsed() int {
	if l.shownAt.IsZero() {
		return l.limit
	}
	secs := int(math.Round(l.now().Sub(l.shownAt).Seconds()))
	if secs < 0 {
		secs = 0
	}
	if secs > l.limit {
		secs = l.limit
	}
	return secs
}

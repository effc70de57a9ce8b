package memory

import (
	"context"
	"sort"
	"sync"

	"kiosk-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ParticipantRepository and app.ResultRepository.
type ResultStore struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
	results      map[string]domain.Result
	answers      map[string][]domain.AnswerEntry
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		participants: make(map[string]domain.Participant),
		results:      make(map[string]domain.Result),
		answers:      make(map[string][]domain.AnswerEntry),
	}
}

func (s *ResultStore) CreateParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.Regno]; ok {
		return domain.ErrAlreadyRegistered
	}
	s.participants[p.Regno] = p
	return nil
}

func (s *ResultStore) GetParticipant(_ context.Context, regno string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[regno]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

// SaveResult upserts the result and replaces any stored answers.
func (s *ResultStore) SaveResult(_ context.Context, result domain.Result, answers []domain.AnswerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[result.Regno]; !ok {
		return domain.ErrParticipantNotFound
	}
	s.results[result.Regno] = result
	s.answers[result.Regno] = append([]domain.AnswerEntry(nil), answers...)
	return nil
}

// Answers returns the stored answers for regno.
func (s *ResultStore) Answers(regno string) []domain.AnswerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AnswerEntry(nil), s.answers[regno]...)
}

// TopResults orders by points desc, average time asc, then regno.
func (s *ResultStore) TopResults(_ context.Context, limit int) ([]domain.LeaderboardRow, error) {
	s.mu.RLock()
	results := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		results = append(results, r)
	}
	names := make(map[string]string, len(s.participants))
	for regno, p := range s.participants {
		names[regno] = p.Name
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Points != results[j].Points {
			return results[i].Points > results[j].Points
		}
		if results[i].AvgTime != results[j].AvgTime {
			return results[i].AvgTime < results[j].AvgTime
		}
		return results[i].Regno < results[j].Regno
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	rows := make([]domain.LeaderboardRow, 0, len(results))
	for _, r := range results {
		avg := r.AvgTime
		rows = append(rows, domain.LeaderboardRow{
			Name:    names[r.Regno],
			Regno:   r.Regno,
			Correct: r.Correct,
			Points:  r.Points,
			AvgTime: &avg,
		})
	}
	return rows, nil
}

package app

import (
	"context"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"

	"kiosk-quiz-service/internal/domain"
)

// CatalogRepository loads the question catalog (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// ParticipantRepository stores registered participants keyed by regno.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, p domain.Participant) error
	GetParticipant(ctx context.Context, regno string) (domain.Participant, error)
}

// ResultRepository stores one result per participant and the answers behind it.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.Result, answers []domain.AnswerEntry) error
	TopResults(ctx context.Context, limit int) ([]domain.LeaderboardRow, error)
}

// QuizService contains the backend use cases the kiosk talks to.
type QuizService struct {
	catalog      CatalogRepository
	participants ParticipantRepository
	results      ResultRepository
	topN         int
	logger       *zap.Logger
}

func NewQuizService(catalog CatalogRepository, participants ParticipantRepository, results ResultRepository, topN int, logger *zap.Logger) *QuizService {
	if topN <= 0 {
		topN = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		catalog:      catalog,
		participants: participants,
		results:      results,
		topN:         topN,
		logger:       logger,
	}
}

// Register creates a participant with a zeroed result. Every field is required and regno is unique.
func (s *QuizService) Register(ctx context.Context, form domain.Registration) (domain.RegistrationResult, error) {
	form = form.Trimmed()
	if form.Name == "" || form.Regno == "" || form.College == "" || form.Department == "" || form.Year == "" {
		return domain.RegistrationResult{}, domain.ErrMissingFields
	}
	year, err := strconv.Atoi(form.Year)
	if err != nil {
		return domain.RegistrationResult{}, domain.ErrInvalidYear
	}

	participant := domain.Participant{
		Name:       form.Name,
		Regno:      form.Regno,
		College:    form.College,
		Department: form.Department,
		Year:       year,
	}
	if err := s.participants.CreateParticipant(ctx, participant); err != nil {
		return domain.RegistrationResult{}, err
	}
	if err := s.results.SaveResult(ctx, domain.Result{Regno: form.Regno}, nil); err != nil {
		return domain.RegistrationResult{}, err
	}

	s.logger.Info("participant registered", zap.String("regno", form.Regno))
	return domain.RegistrationResult{
		Success: true,
		Message: "Registration successful",
		Name:    participant.Name,
		Regno:   participant.Regno,
	}, nil
}

// Questions returns the catalog without its answer key.
func (s *QuizService) Questions(ctx context.Context) ([]domain.Question, error) {
	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogNotFound) {
			return []domain.Question{}, nil
		}
		return nil, err
	}
	return catalog.Public(), nil
}

// SubmitQuiz scores a finalized ledger and replaces the participant's previous attempt.
func (s *QuizService) SubmitQuiz(ctx context.Context, submission domain.Submission) (domain.Result, error) {
	if submission.Regno == "" {
		return domain.Result{}, domain.ErrMissingRegno
	}
	if _, err := s.participants.GetParticipant(ctx, submission.Regno); err != nil {
		return domain.Result{}, err
	}
	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return domain.Result{}, err
	}

	result := scoreSubmission(catalog, submission)
	if err := s.results.SaveResult(ctx, result, submission.Answers); err != nil {
		return domain.Result{}, err
	}
	s.logger.Info("quiz submitted",
		zap.String("regno", result.Regno),
		zap.Int("correct", result.Correct),
		zap.Int("points", result.Points),
	)
	return result, nil
}

// Leaderboard returns the top results; order is the rank.
func (s *QuizService) Leaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	rows, err := s.results.TopResults(ctx, s.topN)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].AvgTime != nil {
			rounded := math.Round(*rows[i].AvgTime*100) / 100
			rows[i].AvgTime = &rounded
		}
	}
	return rows, nil
}

// scoreSubmission counts answers matching the key; each correct answer is worth two points.
// The average only covers entries that carry a time.
func scoreSubmission(catalog domain.Catalog, submission domain.Submission) domain.Result {
	correct := 0
	totalTime, timed := 0, 0
	for _, answer := range submission.Answers {
		if answer.TimeSec != nil {
			totalTime += *answer.TimeSec
			timed++
		}
		if answer.Selected == nil || answer.QuestionID < 0 || answer.QuestionID >= len(catalog) {
			continue
		}
		if *answer.Selected == catalog[answer.QuestionID].Answer {
			correct++
		}
	}

	avg := 0.0
	if timed > 0 {
		avg = float64(totalTime) / float64(timed)
	}
	return domain.Result{
		Regno:   submission.Regno,
		Correct: correct,
		Points:  correct * 2,
		AvgTime: avg,
	}
}

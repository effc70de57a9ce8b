package app

import (
	"context"
	"errors"

	"kiosk-quiz-service/internal/domain"
)

// LocalBackend serves a kiosk running in the same process as the quiz service.
// Rejections come back as unsuccessful results, the same way the HTTP API reports them.
type LocalBackend struct {
	service *QuizService
}

func NewLocalBackend(service *QuizService) *LocalBackend {
	return &LocalBackend{service: service}
}

func (b *LocalBackend) FetchCatalog(ctx context.Context) ([]domain.Question, error) {
	return b.service.Questions(ctx)
}

func (b *LocalBackend) Register(ctx context.Context, form domain.Registration) (domain.RegistrationResult, error) {
	res, err := b.service.Register(ctx, form)
	if err != nil {
		if IsRejection(err) {
			return domain.RegistrationResult{Success: false, Message: RejectionMessage(err)}, nil
		}
		return domain.RegistrationResult{}, err
	}
	return res, nil
}

func (b *LocalBackend) SubmitQuiz(ctx context.Context, submission domain.Submission) (domain.SubmissionResult, error) {
	if _, err := b.service.SubmitQuiz(ctx, submission); err != nil {
		if IsRejection(err) {
			return domain.SubmissionResult{Success: false, Message: RejectionMessage(err)}, nil
		}
		return domain.SubmissionResult{}, err
	}
	return domain.SubmissionResult{Success: true, Redirect: "/leaderboard"}, nil
}

func (b *LocalBackend) FetchLeaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	return b.service.Leaderboard(ctx)
}

// IsRejection reports whether err is a business rule rejection rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		domain.ErrMissingFields,
		domain.ErrInvalidYear,
		domain.ErrAlreadyRegistered,
		domain.ErrMissingRegno,
		domain.ErrParticipantNotFound,
		domain.ErrEmptySubmission,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RejectionMessage is the human readable form of a rejection.
func RejectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		return "Missing fields"
	case errors.Is(err, domain.ErrInvalidYear):
		return "Year must be a number"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "Registration already exists for this regno"
	case errors.Is(err, domain.ErrMissingRegno):
		return "Missing regno"
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "Please register first"
	case errors.Is(err, domain.ErrEmptySubmission):
		return "No data"
	default:
		return err.Error()
	}
}

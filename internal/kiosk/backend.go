package kiosk

import (
	"context"

	"kiosk-quiz-service/internal/domain"
)

// Backend is the set of collaborator calls the kiosk makes.
type Backend interface {
	FetchCatalog(ctx context.Context) ([]domain.Question, error)
	Register(ctx context.Context, form domain.Registration) (domain.RegistrationResult, error)
	SubmitQuiz(ctx context.Context, submission domain.Submission) (domain.SubmissionResult, error)
	LeaderboardSource
}

// LeaderboardSource returns ranked rows; order defines rank.
type LeaderboardSource interface {
	FetchLeaderboard(ctx context.Context) ([]domain.LeaderboardRow, error)
}

// IdentityStore persists the participant across in-app navigation.
type IdentityStore interface {
	Load(ctx context.Context) (domain.Identity, bool, error)
	Save(ctx context.Context, identity domain.Identity) error
	Clear(ctx context.Context) error
}

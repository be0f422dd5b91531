package creditscore

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"
)

type Service interface {
	Get(ctx context.Context, userID string) (*Score, error)

	Adjust(ctx context.Context, userID string, delta int) (*Score, error)
}

type serviceImpl struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &serviceImpl{
		repo:   repo,
		now:    time.Now,
		logger: logger.With("component", "CreditScoreService"),
	}
}

// Get returns the user's score, creating the default one on first access.
func (s *serviceImpl) Get(ctx context.Context, userID string) (*Score, error) {
	score, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.ErrorContext(ctx, "Failed to load credit score", "userID", userID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to load credit score for user %s: %w", userID, err)
	}

	score, err = s.repo.Adjust(ctx, userID, 0, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create default credit score", "userID", userID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to create credit score for user %s: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "Created default credit score", "userID", userID, "score", score.Score)
	return score, nil
}

// Adjust applies delta atomically in storage; concurrent adjustments for
// one user all land.
func (s *serviceImpl) Adjust(ctx context.Context, userID string, delta int) (*Score, error) {
	score, err := s.repo.Adjust(ctx, userID, delta, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to adjust credit score", "userID", userID, "delta", delta, slog.Any("error", err))
		return nil, fmt.Errorf("failed to adjust credit score for user %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Credit score adjusted", "userID", userID, "delta", delta, "to", score.Score)
	return score, nil
}

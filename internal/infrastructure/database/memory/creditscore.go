package memory

import (
	"context"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/pkg/apperrors"
	"time"
)

type CreditScoreRepository struct {
	s *Store
}

var _ creditscore.Repository = (*CreditScoreRepository)(nil)

func (r *CreditScoreRepository) GetByUserID(ctx context.Context, userID string) (*creditscore.Score, error) {
	defer r.s.lock(ctx)()

	score, ok := r.s.st.scores[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &score, nil
}

func (r *CreditScoreRepository) Adjust(ctx context.Context, userID string, delta int, at time.Time) (*creditscore.Score, error) {
	defer r.s.lock(ctx)()

	score, ok := r.s.st.scores[userID]
	if !ok {
		score = creditscore.Score{UserID: userID, Score: creditscore.DefaultScore}
	}
	score.Score = creditscore.Clamp(score.Score + delta)
	score.LastUpdated = at
	r.s.st.scores[userID] = score
	return &score, nil
}

package creditscore

import (
	"context"
	"time"
)

type Repository interface {
	// GetByUserID returns apperrors.ErrNotFound when the user has no score yet.
	GetByUserID(ctx context.Context, userID string) (*Score, error)

	// Adjust adds delta to the stored score in one atomic step and returns the
	// result. A user without a score starts at DefaultScore. The result is
	// clamped to [MinScore, MaxScore].
	Adjust(ctx context.Context, userID string, delta int, at time.Time) (*Score, error)
}

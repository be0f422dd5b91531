package postgres

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

type CreditScoreRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ creditscore.Repository = (*CreditScoreRepository)(nil)

func NewCreditScoreRepository(db DBPool, logger *slog.Logger) *CreditScoreRepository {
	return &CreditScoreRepository{db: db, logger: logger.With("component", "CreditScoreRepository")}
}

func (r *CreditScoreRepository) GetByUserID(ctx context.Context, userID string) (*creditscore.Score, error) {
	query := `SELECT user_id, score, last_updated FROM credit_scores WHERE user_id = $1`
	startTime := time.Now()

	var s creditscore.Score
	err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&s.UserID, &s.Score, &s.LastUpdated)
	recordQuery("GetCreditScore", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get credit score", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &s, nil
}

func (r *CreditScoreRepository) Adjust(ctx context.Context, userID string, delta int, at time.Time) (*creditscore.Score, error) {
	query := `
        INSERT INTO credit_scores (user_id, score, last_updated)
        VALUES ($1, LEAST($5::int, GREATEST($4::int, $2::int + $3::int)), $6)
        ON CONFLICT (user_id) DO UPDATE
        SET score = LEAST($5::int, GREATEST($4::int, credit_scores.score + $3::int)),
            last_updated = EXCLUDED.last_updated
        RETURNING user_id, score, last_updated`
	startTime := time.Now()

	var s creditscore.Score
	err := conn(ctx, r.db).QueryRow(ctx, query,
		userID, creditscore.DefaultScore, delta, creditscore.MinScore, creditscore.MaxScore, at,
	).Scan(&s.UserID, &s.Score, &s.LastUpdated)
	recordQuery("AdjustCreditScore", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to adjust credit score", "user_id", userID, "delta", delta, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &s, nil
}

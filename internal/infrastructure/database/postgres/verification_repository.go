package postgres

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

type VerificationRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ verification.Repository = (*VerificationRepository)(nil)

func NewVerificationRepository(db DBPool, logger *slog.Logger) *VerificationRepository {
	return &VerificationRepository{db: db, logger: logger.With("component", "VerificationRepository")}
}

const linkColumns = `id, user_id, user_email, user_name, account_number, status, retry_count, created_at, updated_at`

func scanLink(row pgx.Row) (*verification.Link, error) {
	var l verification.Link
	err := row.Scan(&l.ID, &l.UserID, &l.UserEmail, &l.UserName, &l.AccountNumber,
		&l.Status, &l.RetryCount, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *VerificationRepository) getOne(ctx context.Context, name, query string, arg string) (*verification.Link, error) {
	startTime := time.Now()

	link, err := scanLink(conn(ctx, r.db).QueryRow(ctx, query, arg))
	recordQuery(name, startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get account link", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return link, nil
}

func (r *VerificationRepository) GetByUserID(ctx context.Context, userID string) (*verification.Link, error) {
	return r.getOne(ctx, "GetLinkByUserID",
		`SELECT `+linkColumns+` FROM account_links WHERE user_id = $1`, userID)
}

func (r *VerificationRepository) FindVerifiedByAccountNumber(ctx context.Context, accountNumber string) (*verification.Link, error) {
	return r.getOne(ctx, "FindVerifiedLink",
		`SELECT `+linkColumns+` FROM account_links WHERE account_number = $1 AND status = 'VERIFIED'`, accountNumber)
}

func (r *VerificationRepository) ListByAccountNumber(ctx context.Context, accountNumber string) ([]verification.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM account_links WHERE account_number = $1 ORDER BY id ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, accountNumber)
	if err != nil {
		recordQuery("ListLinksByAccount", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query account links", "account_number", accountNumber, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	links := make([]verification.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			recordQuery("ListLinksByAccount", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan account link row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		links = append(links, *link)
	}
	err = rows.Err()
	recordQuery("ListLinksByAccount", startTime, err)
	if err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return links, nil
}

func (r *VerificationRepository) Create(ctx context.Context, link *verification.Link) (*verification.Link, error) {
	query := `
        INSERT INTO account_links (user_id, user_email, user_name, account_number, status, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING ` + linkColumns
	startTime := time.Now()

	created, err := scanLink(conn(ctx, r.db).QueryRow(ctx, query,
		link.UserID, link.UserEmail, link.UserName, link.AccountNumber, link.Status, link.RetryCount,
	))
	recordQuery("CreateLink", startTime, err)

	if err != nil {
		if isUniqueViolation(err) {
			r.logger.WarnContext(ctx, "User already has an account link", "user_id", link.UserID)
			return nil, apperrors.ErrAlreadyExists
		}
		r.logger.ErrorContext(ctx, "Failed to insert account link", "user_id", link.UserID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert account link: %w", apperrors.ErrDatabase, err)
	}
	return created, nil
}

func (r *VerificationRepository) Update(ctx context.Context, link *verification.Link) error {
	query := `
        UPDATE account_links
        SET user_email = $2, user_name = $3, account_number = $4, status = $5, retry_count = $6, updated_at = NOW()
        WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, link.ID, link.UserEmail, link.UserName,
		link.AccountNumber, link.Status, link.RetryCount)
	recordQuery("UpdateLink", startTime, err)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s is already verified", apperrors.ErrConflict, link.AccountNumber)
		}
		r.logger.ErrorContext(ctx, "Failed to update account link", "link_id", link.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *VerificationRepository) DeleteOthersByAccountNumber(ctx context.Context, accountNumber, keepUserID string) (int64, error) {
	query := `DELETE FROM account_links WHERE account_number = $1 AND user_id <> $2`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, accountNumber, keepUserID)
	recordQuery("DeleteOtherLinks", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete competing account links", "account_number", accountNumber, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cmdTag.RowsAffected(), nil
}

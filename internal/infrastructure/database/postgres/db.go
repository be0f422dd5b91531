package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

// querier is the part of the pool a repository needs. pgx.Tx satisfies it too.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var errMsgFormat = "%w: %w"

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, db DBPool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

type TxManager struct {
	db     DBPool
	logger *slog.Logger
}

var _ uow.TxManager = (*TxManager)(nil)

func NewTxManager(db DBPool, logger *slog.Logger) *TxManager {
	return &TxManager{db: db, logger: logger.With("component", "TxManager")}
}

// WithinTx joins an enclosing transaction when ctx already carries one.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DBPool, logger *slog.Logger) error {
	logger.InfoContext(ctx, "Applying database schema...")
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		logger.ErrorContext(ctx, "Failed to apply database schema", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	logger.InfoContext(ctx, "Database schema is up to date.")
	return nil
}

// isUniqueViolation reports a unique constraint failure (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

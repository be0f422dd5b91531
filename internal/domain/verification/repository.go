package verification

import "context"

type Repository interface {
	// GetByUserID returns apperrors.ErrNotFound when the user has no link.
	GetByUserID(ctx context.Context, userID string) (*Link, error)

	// FindVerifiedByAccountNumber returns apperrors.ErrNotFound when no user
	// has verified the number.
	FindVerifiedByAccountNumber(ctx context.Context, accountNumber string) (*Link, error)

	ListByAccountNumber(ctx context.Context, accountNumber string) ([]Link, error)

	Create(ctx context.Context, link *Link) (*Link, error)

	Update(ctx context.Context, link *Link) error

	// DeleteOthersByAccountNumber removes every link on the number not owned
	// by keepUserID and reports how many were removed.
	DeleteOthersByAccountNumber(ctx context.Context, accountNumber, keepUserID string) (int64, error)
}

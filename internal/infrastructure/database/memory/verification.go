package memory

import (
	"context"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/pkg/apperrors"
	"sort"
	"time"
)

type VerificationRepository struct {
	s *Store
}

var _ verification.Repository = (*VerificationRepository)(nil)

func (r *VerificationRepository) GetByUserID(ctx context.Context, userID string) (*verification.Link, error) {
	defer r.s.lock(ctx)()

	for _, link := range r.s.st.links {
		if link.UserID == userID {
			return &link, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *VerificationRepository) FindVerifiedByAccountNumber(ctx context.Context, accountNumber string) (*verification.Link, error) {
	defer r.s.lock(ctx)()

	for _, link := range r.s.st.links {
		if link.AccountNumber == accountNumber && link.Status == verification.StatusVerified {
			return &link, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *VerificationRepository) ListByAccountNumber(ctx context.Context, accountNumber string) ([]verification.Link, error) {
	defer r.s.lock(ctx)()

	var out []verification.Link
	for _, link := range r.s.st.links {
		if link.AccountNumber == accountNumber {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *VerificationRepository) Create(ctx context.Context, link *verification.Link) (*verification.Link, error) {
	defer r.s.lock(ctx)()

	for _, existing := range r.s.st.links {
		if existing.UserID == link.UserID {
			return nil, apperrors.ErrAlreadyExists
		}
	}
	created := *link
	created.ID = r.s.newID()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
		created.UpdatedAt = created.CreatedAt
	}
	r.s.st.links[created.ID] = created
	return &created, nil
}

func (r *VerificationRepository) Update(ctx context.Context, link *verification.Link) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.st.links[link.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.s.st.links[link.ID] = *link
	return nil
}

func (r *VerificationRepository) DeleteOthersByAccountNumber(ctx context.Context, accountNumber, keepUserID string) (int64, error) {
	defer r.s.lock(ctx)()

	var deleted int64
	for id, link := range r.s.st.links {
		if link.AccountNumber == accountNumber && link.UserID != keepUserID {
			delete(r.s.st.links, id)
			deleted++
		}
	}
	return deleted, nil
}

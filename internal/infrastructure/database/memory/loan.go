package memory

import (
	"context"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type LoanRepository struct {
	s *Store
}

var _ loan.Repository = (*LoanRepository)(nil)

func (r *LoanRepository) CreateApplication(ctx context.Context, app *loan.Application) (*loan.Application, error) {
	defer r.s.lock(ctx)()

	created := *app
	created.ID = r.s.newID()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
		created.UpdatedAt = created.CreatedAt
	}
	r.s.st.applications[created.ID] = created
	return &created, nil
}

func (r *LoanRepository) GetApplication(ctx context.Context, id int64) (*loan.Application, error) {
	defer r.s.lock(ctx)()

	app, ok := r.s.st.applications[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &app, nil
}

func (r *LoanRepository) UpdateApplication(ctx context.Context, app *loan.Application) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.st.applications[app.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.s.st.applications[app.ID] = *app
	return nil
}

func (r *LoanRepository) ListApplications(ctx context.Context, filter loan.ApplicationFilter) ([]loan.Application, error) {
	defer r.s.lock(ctx)()

	var out []loan.Application
	for _, app := range r.s.st.applications {
		if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.AccountNumber != "" && app.AccountNumber != filter.AccountNumber {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan, installments []loan.Installment) (*loan.Loan, error) {
	defer r.s.lock(ctx)()

	created := *l
	created.ID = r.s.newID()
	r.s.st.loans[created.ID] = created
	for _, inst := range installments {
		inst.ID = r.s.newID()
		inst.LoanID = created.ID
		r.s.st.installments[inst.ID] = inst
	}
	return &created, nil
}

func (r *LoanRepository) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	defer r.s.lock(ctx)()

	l, ok := r.s.st.loans[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &l, nil
}

func (r *LoanRepository) FindActiveLoanByAccount(ctx context.Context, accountNumber string) (*loan.Loan, error) {
	defer r.s.lock(ctx)()

	var found *loan.Loan
	for _, l := range r.s.st.loans {
		if l.AccountNumber != accountNumber || !l.IsActive() {
			continue
		}
		if found == nil || l.ID < found.ID {
			candidate := l
			found = &candidate
		}
	}
	if found == nil {
		return nil, apperrors.ErrNotFound
	}
	return found, nil
}

func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.LoanFilter) ([]loan.Loan, error) {
	defer r.s.lock(ctx)()

	var out []loan.Loan
	for _, l := range r.s.st.loans {
		if filter.ApplicantID != "" && l.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.AccountNumber != "" && l.AccountNumber != filter.AccountNumber {
			continue
		}
		if filter.ActiveOnly && !l.IsActive() {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LoanRepository) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.st.loans[l.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.s.st.loans[l.ID] = *l
	return nil
}

func (r *LoanRepository) GetInstallments(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	defer r.s.lock(ctx)()

	var out []loan.Installment
	for _, inst := range r.s.st.installments {
		if inst.LoanID == loanID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *LoanRepository) UpdateInstallments(ctx context.Context, installments []loan.Installment) error {
	defer r.s.lock(ctx)()

	for _, inst := range installments {
		if _, ok := r.s.st.installments[inst.ID]; !ok {
			return apperrors.ErrNotFound
		}
	}
	for _, inst := range installments {
		r.s.st.installments[inst.ID] = inst
	}
	return nil
}

func (r *LoanRepository) CreateRepayment(ctx context.Context, repayment *loan.Repayment) (*loan.Repayment, error) {
	defer r.s.lock(ctx)()

	created := *repayment
	created.ID = r.s.newID()
	r.s.st.repayments[created.ID] = created
	return &created, nil
}

func (r *LoanRepository) UpdateRepaymentStatus(ctx context.Context, id int64, status loan.RepaymentStatus, at time.Time) error {
	defer r.s.lock(ctx)()

	repayment, ok := r.s.st.repayments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	repayment.Status = status
	repayment.PaidAt = at
	r.s.st.repayments[id] = repayment
	return nil
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanID int64) ([]loan.Repayment, error) {
	defer r.s.lock(ctx)()

	var out []loan.Repayment
	for _, repayment := range r.s.st.repayments {
		if repayment.LoanID == loanID {
			out = append(out, repayment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LoanRepository) DashboardStats(ctx context.Context) (*loan.DashboardStats, error) {
	defer r.s.lock(ctx)()

	stats := &loan.DashboardStats{TotalDisbursed: decimal.Zero, TotalOutstanding: decimal.Zero}
	for _, app := range r.s.st.applications {
		stats.TotalApplications++
		switch app.Status {
		case loan.ApplicationPending:
			stats.PendingApplications++
		case loan.ApplicationApproved:
			stats.ApprovedApplications++
		case loan.ApplicationRejected:
			stats.RejectedApplications++
		}
	}
	for _, l := range r.s.st.loans {
		stats.TotalDisbursed = stats.TotalDisbursed.Add(l.TotalPrincipal)
		stats.TotalOutstanding = stats.TotalOutstanding.Add(l.RemainingAmount)
		if l.IsActive() {
			stats.ActiveLoans++
		}
	}
	return stats, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

const applicationColumns = `id, applicant_id, applicant_email, applicant_name, account_number, amount, purpose, term_months,
        interest_rate, emi, total_payable, status, reason, created_at, updated_at`

func scanApplication(row pgx.Row) (*loan.Application, error) {
	var a loan.Application
	err := row.Scan(&a.ID, &a.ApplicantID, &a.ApplicantEmail, &a.ApplicantName, &a.AccountNumber,
		&a.Amount, &a.Purpose, &a.TermMonths, &a.InterestRate, &a.EMI, &a.TotalPayable,
		&a.Status, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const loanColumns = `id, application_id, applicant_id, applicant_email, applicant_name, account_number, total_principal,
        remaining_amount, interest_rate, term_months, emi_amount, origination_date, due_date, created_at, updated_at`

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(&l.ID, &l.ApplicationID, &l.ApplicantID, &l.ApplicantEmail, &l.ApplicantName,
		&l.AccountNumber, &l.TotalPrincipal, &l.RemainingAmount, &l.InterestRate, &l.TermMonths,
		&l.EMIAmount, &l.OriginationDate, &l.DueDate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateApplication(ctx context.Context, app *loan.Application) (*loan.Application, error) {
	query := `
        INSERT INTO loan_applications (applicant_id, applicant_email, applicant_name, account_number, amount, purpose,
            term_months, interest_rate, emi, total_payable, status, reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
        RETURNING ` + applicationColumns
	startTime := time.Now()

	created, err := scanApplication(conn(ctx, r.db).QueryRow(ctx, query,
		app.ApplicantID, app.ApplicantEmail, app.ApplicantName, app.AccountNumber, app.Amount, app.Purpose,
		app.TermMonths, app.InterestRate, app.EMI, app.TotalPayable, app.Status, app.Reason,
	))
	recordQuery("CreateApplication", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan application", "applicant_id", app.ApplicantID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan application: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan application created in DB", "application_id", created.ID)
	return created, nil
}

func (r *LoanRepository) GetApplication(ctx context.Context, id int64) (*loan.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`
	startTime := time.Now()

	app, err := scanApplication(conn(ctx, r.db).QueryRow(ctx, query, id))
	recordQuery("GetApplication", startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan application not found", "application_id", id)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan application", "application_id", id, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return app, nil
}

func (r *LoanRepository) UpdateApplication(ctx context.Context, app *loan.Application) error {
	query := `UPDATE loan_applications SET status = $2, reason = $3, updated_at = NOW() WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, app.ID, app.Status, app.Reason)
	recordQuery("UpdateApplication", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan application", "application_id", app.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) ListApplications(ctx context.Context, filter loan.ApplicationFilter) ([]loan.Application, error) {
	query := `
        SELECT ` + applicationColumns + `
        FROM loan_applications
        WHERE ($1 = '' OR applicant_id = $1)
          AND ($2 = '' OR account_number = $2)
          AND ($3 = '' OR status = $3)
        ORDER BY id ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, filter.ApplicantID, filter.AccountNumber, string(filter.Status))
	if err != nil {
		recordQuery("ListApplications", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query loan applications", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	apps := make([]loan.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			recordQuery("ListApplications", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan loan application row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		apps = append(apps, *app)
	}
	err = rows.Err()
	recordQuery("ListApplications", startTime, err)
	if err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return apps, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan, installments []loan.Installment) (*loan.Loan, error) {
	loanSQL := `
        INSERT INTO loans (application_id, applicant_id, applicant_email, applicant_name, account_number, total_principal,
            remaining_amount, interest_rate, term_months, emi_amount, origination_date, due_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
        RETURNING ` + loanColumns
	startTime := time.Now()
	q := conn(ctx, r.db)

	created, err := scanLoan(q.QueryRow(ctx, loanSQL,
		newLoan.ApplicationID, newLoan.ApplicantID, newLoan.ApplicantEmail, newLoan.ApplicantName, newLoan.AccountNumber,
		newLoan.TotalPrincipal, newLoan.RemainingAmount, newLoan.InterestRate, newLoan.TermMonths, newLoan.EMIAmount,
		newLoan.OriginationDate, newLoan.DueDate,
	))
	if err != nil {
		recordQuery("CreateLoan", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to insert loan", "application_id", newLoan.ApplicationID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)

	if len(installments) > 0 {
		installmentSQL := `
            INSERT INTO loan_installments (loan_id, installment_number, due_date, emi, interest, principal, remaining_principal, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		batch := &pgx.Batch{}
		for _, inst := range installments {
			batch.Queue(installmentSQL, created.ID, inst.Number, inst.DueDate, inst.EMI, inst.Interest,
				inst.Principal, inst.RemainingPrincipal, inst.Status)
		}

		if err := r.execBatch(ctx, q, batch, "installment insert"); err != nil {
			recordQuery("CreateLoan", startTime, err)
			return nil, err
		}
	}
	recordQuery("CreateLoan", startTime, nil)
	r.logger.InfoContext(ctx, "Loan schedule created in DB", "loan_id", created.ID, "num_installments", len(installments))

	return created, nil
}

func (r *LoanRepository) execBatch(ctx context.Context, q querier, batch *pgx.Batch, what string) error {
	results := q.SendBatch(ctx, batch)

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing batch", "batch", what, "entry_index", i, "error", err)
			return fmt.Errorf("%w: %s entry %d failed: %w", apperrors.ErrDatabase, what, i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing batch results", "batch", what, "error", err)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) getLoan(ctx context.Context, name, query string, arg any) (*loan.Loan, error) {
	startTime := time.Now()

	l, err := scanLoan(conn(ctx, r.db).QueryRow(ctx, query, arg))
	recordQuery(name, startTime, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan", "query", name, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	return r.getLoan(ctx, "GetLoan", `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

func (r *LoanRepository) FindActiveLoanByAccount(ctx context.Context, accountNumber string) (*loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE account_number = $1 AND remaining_amount > 0
        ORDER BY id ASC
        LIMIT 1`
	return r.getLoan(ctx, "FindActiveLoanByAccount", query, accountNumber)
}

func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.LoanFilter) ([]loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE ($1 = '' OR applicant_id = $1)
          AND ($2 = '' OR account_number = $2)
          AND (NOT $3 OR remaining_amount > 0)
        ORDER BY id ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, filter.ApplicantID, filter.AccountNumber, filter.ActiveOnly)
	if err != nil {
		recordQuery("ListLoans", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			recordQuery("ListLoans", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, *l)
	}
	err = rows.Err()
	recordQuery("ListLoans", startTime, err)
	if err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	query := `UPDATE loans SET remaining_amount = $2, emi_amount = $3, updated_at = NOW() WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, l.ID, l.RemainingAmount, l.EMIAmount)
	recordQuery("UpdateLoan", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) GetInstallments(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT id, loan_id, installment_number, due_date, emi, interest, principal, remaining_principal, status
        FROM loan_installments
        WHERE loan_id = $1
        ORDER BY installment_number ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, loanID)
	if err != nil {
		recordQuery("GetInstallments", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query installments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	installments := make([]loan.Installment, 0)
	for rows.Next() {
		var i loan.Installment
		if err := rows.Scan(&i.ID, &i.LoanID, &i.Number, &i.DueDate, &i.EMI, &i.Interest,
			&i.Principal, &i.RemainingPrincipal, &i.Status); err != nil {
			recordQuery("GetInstallments", startTime, err)
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		installments = append(installments, i)
	}
	err = rows.Err()
	recordQuery("GetInstallments", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return installments, nil
}

func (r *LoanRepository) UpdateInstallments(ctx context.Context, installments []loan.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	query := `
        UPDATE loan_installments
        SET emi = $2, interest = $3, principal = $4, remaining_principal = $5, status = $6
        WHERE id = $1`
	startTime := time.Now()

	batch := &pgx.Batch{}
	for _, inst := range installments {
		batch.Queue(query, inst.ID, inst.EMI, inst.Interest, inst.Principal, inst.RemainingPrincipal, inst.Status)
	}
	err := r.execBatch(ctx, conn(ctx, r.db), batch, "installment update")
	recordQuery("UpdateInstallments", startTime, err)
	return err
}

func (r *LoanRepository) CreateRepayment(ctx context.Context, repayment *loan.Repayment) (*loan.Repayment, error) {
	query := `
        INSERT INTO loan_repayments (loan_id, reference, amount, status, paid_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, loan_id, reference, amount, status, paid_at`
	startTime := time.Now()

	var p loan.Repayment
	err := conn(ctx, r.db).QueryRow(ctx, query,
		repayment.LoanID, repayment.Reference, repayment.Amount, repayment.Status, repayment.PaidAt,
	).Scan(&p.ID, &p.LoanID, &p.Reference, &p.Amount, &p.Status, &p.PaidAt)
	recordQuery("CreateRepayment", startTime, err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyExists
		}
		r.logger.ErrorContext(ctx, "Failed to insert repayment", "loan_id", repayment.LoanID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert repayment: %w", apperrors.ErrDatabase, err)
	}
	return &p, nil
}

func (r *LoanRepository) UpdateRepaymentStatus(ctx context.Context, id int64, status loan.RepaymentStatus, at time.Time) error {
	query := `UPDATE loan_repayments SET status = $2, paid_at = $3 WHERE id = $1`
	startTime := time.Now()

	cmdTag, err := conn(ctx, r.db).Exec(ctx, query, id, status, at)
	recordQuery("UpdateRepaymentStatus", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update repayment status", "repayment_id", id, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanID int64) ([]loan.Repayment, error) {
	query := `
        SELECT id, loan_id, reference, amount, status, paid_at
        FROM loan_repayments
        WHERE loan_id = $1
        ORDER BY id ASC`
	startTime := time.Now()

	rows, err := conn(ctx, r.db).Query(ctx, query, loanID)
	if err != nil {
		recordQuery("ListRepayments", startTime, err)
		r.logger.ErrorContext(ctx, "Failed to query repayments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	repayments := make([]loan.Repayment, 0)
	for rows.Next() {
		var p loan.Repayment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Reference, &p.Amount, &p.Status, &p.PaidAt); err != nil {
			recordQuery("ListRepayments", startTime, err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		repayments = append(repayments, p)
	}
	err = rows.Err()
	recordQuery("ListRepayments", startTime, err)
	if err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return repayments, nil
}

func (r *LoanRepository) DashboardStats(ctx context.Context) (*loan.DashboardStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM loan_applications),
            (SELECT COUNT(*) FROM loan_applications WHERE status = 'PENDING'),
            (SELECT COUNT(*) FROM loan_applications WHERE status = 'APPROVED'),
            (SELECT COUNT(*) FROM loan_applications WHERE status = 'REJECTED'),
            (SELECT COUNT(*) FROM loans WHERE remaining_amount > 0),
            (SELECT COALESCE(SUM(total_principal), 0) FROM loans),
            (SELECT COALESCE(SUM(remaining_amount), 0) FROM loans)`
	startTime := time.Now()

	var s loan.DashboardStats
	err := conn(ctx, r.db).QueryRow(ctx, query).Scan(
		&s.TotalApplications, &s.PendingApplications, &s.ApprovedApplications, &s.RejectedApplications,
		&s.ActiveLoans, &s.TotalDisbursed, &s.TotalOutstanding,
	)
	recordQuery("DashboardStats", startTime, err)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to compute dashboard stats", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &s, nil
}

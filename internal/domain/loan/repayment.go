package loan

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/domain/amortization"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repay collects amount from the account through the bank and allocates it
// to the active loan. Local state changes only after the bank confirms.
func (s *serviceImpl) Repay(ctx context.Context, payer identity.Identity, accountNumber string, amount decimal.Decimal) (*RepaymentResult, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "amount must be greater than zero")
	}
	unlock := s.locks.Lock(accountKey(accountNumber))
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting loan repayment", "accountNumber", accountNumber, "amount", amount.String())

	loan, err := s.repo.FindActiveLoanByAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoOutstandingLoan, accountNumber)
		}
		return nil, fmt.Errorf("failed to load active loan: %w", err)
	}
	if loan.ApplicantID != payer.UserID {
		s.logger.WarnContext(ctx, "Repayment attempted by non-owner", "loanID", loan.ID, "userID", payer.UserID)
		return nil, ErrNotOwner
	}

	repayment, err := s.repo.CreateRepayment(ctx, &Repayment{
		LoanID:    loan.ID,
		Reference: uuid.NewString(),
		Amount:    amount,
		Status:    RepaymentWaiting,
		PaidAt:    s.now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record repayment", "loanID", loan.ID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to record repayment: %w", err)
	}

	outcome, err := s.bank.CollectRepayment(ctx, accountNumber, amount)
	if err == nil && !outcome.Success {
		err = outcome.Err()
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Bank refused repayment", "loanID", loan.ID, "reference", repayment.Reference, slog.Any("error", err))
		if markErr := s.repo.UpdateRepaymentStatus(ctx, repayment.ID, RepaymentFailed, s.now()); markErr != nil {
			s.logger.ErrorContext(ctx, "Failed to mark repayment failed", "repaymentID", repayment.ID, slog.Any("error", markErr))
		}
		monitoring.RecordRepayment("failed")
		return nil, fmt.Errorf("repayment failed: %w", err)
	}

	if outcome.Amount.IsPositive() && outcome.Amount.LessThan(amount) {
		// The loan is still credited with the full amount; the ledger keeps
		// the smaller figure.
		s.logger.WarnContext(ctx, "Bank collected less than requested",
			"loanID", loan.ID, "reference", repayment.Reference,
			"requested", amount.String(), "collected", outcome.Amount.String())
		monitoring.RecordRepayment("short_collected")
	}

	installments, err := s.repo.GetInstallments(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}

	late := repayment.PaidAt.After(loan.DueDate)
	var score *creditscore.Score
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateRepaymentStatus(ctx, repayment.ID, RepaymentPaid, repayment.PaidAt); err != nil {
			return fmt.Errorf("failed to mark repayment paid: %w", err)
		}
		repayment.Status = RepaymentPaid

		allocate(loan, installments, amount, amortization.MonthlyRate(loan.InterestRate))
		loan.UpdatedAt = s.now()

		if err := s.repo.UpdateInstallments(ctx, installments); err != nil {
			return fmt.Errorf("failed to update installments: %w", err)
		}
		if err := s.repo.UpdateLoan(ctx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}

		for _, delta := range repaymentScoreDeltas(!loan.IsActive(), amount, loan.EMIAmount, late) {
			var err error
			if score, err = s.scores.Adjust(ctx, payer.UserID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to apply collected repayment", "loanID", loan.ID, "reference", repayment.Reference, slog.Any("error", err))
		return nil, err
	}
	monitoring.RecordRepayment("paid")

	subject, body := notification.RepaymentReceived(applicantName(loan.ApplicantName, loan.ApplicantEmail), loan.ID, amount, loan.RemainingAmount)
	notification.Notify(ctx, s.notifier, s.logger, loan.ApplicantEmail, subject, body)

	s.logger.InfoContext(ctx, "Successfully applied repayment", "loanID", loan.ID, "reference", repayment.Reference, "remaining", loan.RemainingAmount.String())
	return &RepaymentResult{
		Repayment:    repayment,
		Loan:         loan,
		Installments: installments,
		FullyRepaid:  !loan.IsActive(),
		Late:         late,
		CreditScore:  score.Score,
	}, nil
}

// allocate applies a confirmed payment: the waterfall over the schedule, the
// loan balance reduction and then either rescheduling or closing out.
func allocate(loan *Loan, installments []Installment, amount, monthlyRate decimal.Decimal) {
	sort.Slice(installments, func(i, j int) bool { return installments[i].Number < installments[j].Number })

	applyWaterfall(installments, amount)

	loan.RemainingAmount = loan.RemainingAmount.Sub(amount)
	if loan.RemainingAmount.IsNegative() {
		loan.RemainingAmount = decimal.Zero
	}

	if loan.IsActive() {
		reschedule(installments, loan.RemainingAmount, monthlyRate)
		return
	}
	for i := range installments {
		installments[i].Status = InstallmentPaid
		installments[i].Interest = decimal.Zero
		installments[i].Principal = decimal.Zero
		installments[i].RemainingPrincipal = decimal.Zero
	}
}

// applyWaterfall spends payment on pending installments in order, interest
// before principal, and returns whatever is left over. installments must be
// sorted by Number.
func applyWaterfall(installments []Installment, payment decimal.Decimal) decimal.Decimal {
	for i := range installments {
		if !payment.IsPositive() {
			break
		}
		inst := &installments[i]
		if inst.IsPaid() {
			continue
		}

		if payment.LessThan(inst.Interest) {
			inst.Interest = inst.Interest.Sub(payment)
			return decimal.Zero
		}
		payment = payment.Sub(inst.Interest)
		inst.Interest = decimal.Zero

		if payment.LessThan(inst.Principal) {
			inst.Principal = inst.Principal.Sub(payment)
			inst.RemainingPrincipal = inst.RemainingPrincipal.Sub(payment)
			return decimal.Zero
		}
		payment = payment.Sub(inst.Principal)
		inst.Principal = decimal.Zero
		inst.RemainingPrincipal = decimal.Zero
		inst.Status = InstallmentPaid
	}
	return payment
}

// reschedule spreads remaining over the pending installments with a fresh EMI.
// The last pending installment absorbs rounding so the balance ends at zero.
func reschedule(installments []Installment, remaining, monthlyRate decimal.Decimal) {
	pending := make([]int, 0, len(installments))
	for i := range installments {
		if !installments[i].IsPaid() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 || !monthlyRate.IsPositive() {
		return
	}

	emi := amortization.EMI(remaining, monthlyRate, len(pending))
	for n, idx := range pending {
		inst := &installments[idx]
		interest := remaining.Mul(monthlyRate).Round(amortization.MoneyScale)
		principal := emi.Sub(interest).Round(amortization.MoneyScale)
		installmentEMI := emi
		if n == len(pending)-1 {
			principal = remaining
			installmentEMI = principal.Add(interest)
		}
		remaining = remaining.Sub(principal)

		inst.EMI = installmentEMI
		inst.Interest = interest
		inst.Principal = principal
		inst.RemainingPrincipal = remaining
	}
}

// repaymentScoreDeltas returns the score changes for one repayment in the
// order they are applied. The late penalty stacks with the amount based delta.
func repaymentScoreDeltas(fullyRepaid bool, amount, emi decimal.Decimal, late bool) []int {
	var deltas []int
	switch {
	case fullyRepaid:
		deltas = append(deltas, creditscore.DeltaFullyRepaid)
	case amount.GreaterThanOrEqual(emi):
		deltas = append(deltas, creditscore.DeltaPaidAtLeast)
	default:
		deltas = append(deltas, creditscore.DeltaUnderpaid)
	}
	if late {
		deltas = append(deltas, creditscore.DeltaLatePayment)
	}
	return deltas
}

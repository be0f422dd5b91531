// Package loan covers loan applications, approval and disbursement, the
// installment schedule and the repayment waterfall.
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
)

type RepaymentStatus string

const (
	RepaymentWaiting RepaymentStatus = "WAITING"
	RepaymentPaid    RepaymentStatus = "PAID"
	RepaymentFailed  RepaymentStatus = "FAILED"
)

// LoanTermDays is the number of days per month used for the loan due date.
const LoanTermDays = 30

type Application struct {
	ID             int64
	ApplicantID    string
	ApplicantEmail string
	ApplicantName  string
	AccountNumber  string
	Amount         decimal.Decimal
	Purpose        string
	TermMonths     int
	InterestRate   decimal.Decimal
	EMI            decimal.Decimal
	TotalPayable   decimal.Decimal
	Status         ApplicationStatus
	Reason         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the application was already decided.
func (a *Application) IsTerminal() bool {
	return a.Status == ApplicationApproved || a.Status == ApplicationRejected
}

type Loan struct {
	ID              int64
	ApplicationID   int64
	ApplicantID     string
	ApplicantEmail  string
	ApplicantName   string
	AccountNumber   string
	TotalPrincipal  decimal.Decimal
	RemainingAmount decimal.Decimal
	InterestRate    decimal.Decimal
	TermMonths      int
	EMIAmount       decimal.Decimal
	OriginationDate time.Time
	DueDate         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (l *Loan) IsActive() bool {
	return l.RemainingAmount.IsPositive()
}

type Installment struct {
	ID                 int64
	LoanID             int64
	Number             int
	DueDate            time.Time
	EMI                decimal.Decimal
	Interest           decimal.Decimal
	Principal          decimal.Decimal
	RemainingPrincipal decimal.Decimal
	Status             InstallmentStatus
}

func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentPaid
}

type Repayment struct {
	ID        int64
	LoanID    int64
	Reference string
	Amount    decimal.Decimal
	Status    RepaymentStatus
	PaidAt    time.Time
}

type ApplicationFilter struct {
	ApplicantID   string
	AccountNumber string
	Status        ApplicationStatus
}

type LoanFilter struct {
	ApplicantID   string
	AccountNumber string
	ActiveOnly    bool
}

type DashboardStats struct {
	TotalApplications    int64
	PendingApplications  int64
	ApprovedApplications int64
	RejectedApplications int64
	ActiveLoans          int64
	TotalDisbursed       decimal.Decimal
	TotalOutstanding     decimal.Decimal
}

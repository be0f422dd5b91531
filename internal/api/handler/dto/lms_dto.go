package dto

import (
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/identity"
	"lending-engine/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type VerificationRequest struct {
	AccountNumber string `json:"accountNumber"`
}

func (r *VerificationRequest) Validate() error {
	return requireAccountNumber(r.AccountNumber)
}

type ConfirmDepositRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
}

func (r *ConfirmDepositRequest) Validate() (decimal.Decimal, error) {
	if err := requireAccountNumber(r.AccountNumber); err != nil {
		return decimal.Zero, err
	}
	return ParseAmount("amount", r.Amount)
}

type VerificationResponse struct {
	Outcome       string `json:"outcome"`
	Message       string `json:"message"`
	AccountNumber string `json:"accountNumber,omitempty"`
	Status        string `json:"status,omitempty"`
	RetryCount    int    `json:"retryCount"`
	CreditScore   int    `json:"creditScore,omitempty"`
}

func NewVerificationResponse(result *verification.Result) VerificationResponse {
	resp := VerificationResponse{
		Outcome:     string(result.Outcome),
		Message:     result.Message,
		CreditScore: result.CreditScore,
	}
	if result.Link != nil {
		resp.AccountNumber = result.Link.AccountNumber
		resp.Status = string(result.Link.Status)
		resp.RetryCount = result.Link.RetryCount
	}
	return resp
}

type ProfileResponse struct {
	UserID             string `json:"userId"`
	Email              string `json:"email,omitempty"`
	Name               string `json:"name,omitempty"`
	Role               string `json:"role"`
	AccountNumber      string `json:"accountNumber,omitempty"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
	Verified           bool   `json:"verified"`
	CreditScore        int    `json:"creditScore"`
}

// NewProfileResponse builds the profile of caller. link may be nil.
func NewProfileResponse(caller identity.Identity, link *verification.Link, score *creditscore.Score) ProfileResponse {
	resp := ProfileResponse{
		UserID: caller.UserID,
		Email:  caller.Email,
		Name:   caller.Name,
		Role:   string(caller.Role),
	}
	if link != nil {
		resp.AccountNumber = link.AccountNumber
		resp.VerificationStatus = string(link.Status)
		resp.Verified = link.IsVerified()
	}
	if score != nil {
		resp.CreditScore = score.Score
	}
	return resp
}

type ApplyLoanRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
	Purpose       string `json:"purpose"`
	TermMonths    int    `json:"termMonths"`
}

func (r *ApplyLoanRequest) Validate() (loan.ApplyRequest, error) {
	if err := requireAccountNumber(r.AccountNumber); err != nil {
		return loan.ApplyRequest{}, err
	}
	amount, err := ParseAmount("amount", r.Amount)
	if err != nil {
		return loan.ApplyRequest{}, err
	}
	if r.TermMonths <= 0 {
		return loan.ApplyRequest{}, apperrors.NewValidationError("termMonths", "termMonths must be positive")
	}
	return loan.ApplyRequest{
		AccountNumber: strings.TrimSpace(r.AccountNumber),
		Amount:        amount,
		Purpose:       strings.TrimSpace(r.Purpose),
		TermMonths:    r.TermMonths,
	}, nil
}

type ApplicationResponse struct {
	ID            int64     `json:"id"`
	ApplicantID   string    `json:"applicantId"`
	ApplicantName string    `json:"applicantName,omitempty"`
	AccountNumber string    `json:"accountNumber"`
	Amount        string    `json:"amount"`
	Purpose       string    `json:"purpose,omitempty"`
	TermMonths    int       `json:"termMonths"`
	InterestRate  string    `json:"interestRate"`
	EMI           string    `json:"emi"`
	TotalPayable  string    `json:"totalPayable"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewApplicationResponse(app *loan.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:            app.ID,
		ApplicantID:   app.ApplicantID,
		ApplicantName: app.ApplicantName,
		AccountNumber: app.AccountNumber,
		Amount:        Money(app.Amount),
		Purpose:       app.Purpose,
		TermMonths:    app.TermMonths,
		InterestRate:  app.InterestRate.String(),
		EMI:           Money(app.EMI),
		TotalPayable:  Money(app.TotalPayable),
		Status:        string(app.Status),
		Reason:        app.Reason,
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}

func NewApplicationResponses(apps []loan.Application) []ApplicationResponse {
	resp := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		resp = append(resp, NewApplicationResponse(&apps[i]))
	}
	return resp
}

type ApplyLoanResponse struct {
	Application  ApplicationResponse `json:"application"`
	EMI          string              `json:"emi"`
	TotalPayable string              `json:"totalPayable"`
	CreditScore  int                 `json:"creditScore"`
}

func NewApplyLoanResponse(result *loan.ApplyResult) ApplyLoanResponse {
	return ApplyLoanResponse{
		Application:  NewApplicationResponse(result.Application),
		EMI:          Money(result.EMI),
		TotalPayable: Money(result.TotalPayable),
		CreditScore:  result.CreditScore,
	}
}

type RepayRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
}

func (r *RepayRequest) Validate() (decimal.Decimal, error) {
	if err := requireAccountNumber(r.AccountNumber); err != nil {
		return decimal.Zero, err
	}
	return ParseAmount("amount", r.Amount)
}

type InstallmentResponse struct {
	Number             int    `json:"number"`
	DueDate            string `json:"dueDate"`
	EMI                string `json:"emi"`
	Interest           string `json:"interest"`
	Principal          string `json:"principal"`
	RemainingPrincipal string `json:"remainingPrincipal"`
	Status             string `json:"status"`
}

func NewInstallmentResponses(installments []loan.Installment) []InstallmentResponse {
	resp := make([]InstallmentResponse, 0, len(installments))
	for _, inst := range installments {
		resp = append(resp, InstallmentResponse{
			Number:             inst.Number,
			DueDate:            inst.DueDate.Format(time.DateOnly),
			EMI:                Money(inst.EMI),
			Interest:           Money(inst.Interest),
			Principal:          Money(inst.Principal),
			RemainingPrincipal: Money(inst.RemainingPrincipal),
			Status:             string(inst.Status),
		})
	}
	return resp
}

type RepaymentResponse struct {
	Reference string    `json:"reference"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	PaidAt    time.Time `json:"paidAt"`
}

func newRepaymentResponse(r *loan.Repayment) RepaymentResponse {
	return RepaymentResponse{
		Reference: r.Reference,
		Amount:    Money(r.Amount),
		Status:    string(r.Status),
		PaidAt:    r.PaidAt,
	}
}

type RepayResponse struct {
	Repayment       RepaymentResponse     `json:"repayment"`
	LoanID          int64                 `json:"loanId"`
	RemainingAmount string                `json:"remainingAmount"`
	FullyRepaid     bool                  `json:"fullyRepaid"`
	Late            bool                  `json:"late"`
	CreditScore     int                   `json:"creditScore"`
	Installments    []InstallmentResponse `json:"installments"`
}

func NewRepayResponse(result *loan.RepaymentResult) RepayResponse {
	return RepayResponse{
		Repayment:       newRepaymentResponse(result.Repayment),
		LoanID:          result.Loan.ID,
		RemainingAmount: Money(result.Loan.RemainingAmount),
		FullyRepaid:     result.FullyRepaid,
		Late:            result.Late,
		CreditScore:     result.CreditScore,
		Installments:    NewInstallmentResponses(result.Installments),
	}
}

type LoanResponse struct {
	ID              int64                 `json:"id"`
	ApplicationID   int64                 `json:"applicationId"`
	ApplicantID     string                `json:"applicantId"`
	ApplicantName   string                `json:"applicantName,omitempty"`
	AccountNumber   string                `json:"accountNumber"`
	TotalPrincipal  string                `json:"totalPrincipal"`
	RemainingAmount string                `json:"remainingAmount"`
	InterestRate    string                `json:"interestRate"`
	TermMonths      int                   `json:"termMonths"`
	EMIAmount       string                `json:"emiAmount"`
	OriginationDate string                `json:"originationDate"`
	DueDate         string                `json:"dueDate"`
	Active          bool                  `json:"active"`
	Installments    []InstallmentResponse `json:"installments,omitempty"`
	Repayments      []RepaymentResponse   `json:"repayments,omitempty"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:              l.ID,
		ApplicationID:   l.ApplicationID,
		ApplicantID:     l.ApplicantID,
		ApplicantName:   l.ApplicantName,
		AccountNumber:   l.AccountNumber,
		TotalPrincipal:  Money(l.TotalPrincipal),
		RemainingAmount: Money(l.RemainingAmount),
		InterestRate:    l.InterestRate.String(),
		TermMonths:      l.TermMonths,
		EMIAmount:       Money(l.EMIAmount),
		OriginationDate: l.OriginationDate.Format(time.DateOnly),
		DueDate:         l.DueDate.Format(time.DateOnly),
		Active:          l.IsActive(),
	}
}

func NewLoanDetailsResponse(details *loan.LoanDetails) LoanResponse {
	resp := NewLoanResponse(details.Loan)
	resp.Installments = NewInstallmentResponses(details.Installments)
	for i := range details.Repayments {
		resp.Repayments = append(resp.Repayments, newRepaymentResponse(&details.Repayments[i]))
	}
	return resp
}

func NewLoanResponses(loans []loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		resp = append(resp, NewLoanResponse(&loans[i]))
	}
	return resp
}

type CreditScoreResponse struct {
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func NewCreditScoreResponse(score *creditscore.Score) CreditScoreResponse {
	return CreditScoreResponse{UserID: score.UserID, Score: score.Score, LastUpdated: score.LastUpdated}
}

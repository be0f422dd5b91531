package dto

import (
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
)

type ApproveRequest struct {
	ApplicationID int64 `json:"applicationId"`
}

func (r *ApproveRequest) Validate() error {
	if r.ApplicationID <= 0 {
		return apperrors.NewValidationError("applicationId", "applicationId must be a positive number")
	}
	return nil
}

type RejectRequest struct {
	ApplicationID int64  `json:"applicationId"`
	Reason        string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if r.ApplicationID <= 0 {
		return apperrors.NewValidationError("applicationId", "applicationId must be a positive number")
	}
	return nil
}

type DecisionResponse struct {
	Application ApplicationResponse `json:"application"`
	Loan        *LoanResponse       `json:"loan,omitempty"`
	Rejected    bool                `json:"rejected"`
	Reason      string              `json:"reason,omitempty"`
}

func NewDecisionResponse(decision *loan.Decision) DecisionResponse {
	resp := DecisionResponse{
		Application: NewApplicationResponse(decision.Application),
		Rejected:    decision.Rejected,
		Reason:      decision.Reason,
	}
	if decision.Loan != nil {
		l := NewLoanResponse(decision.Loan)
		resp.Loan = &l
	}
	return resp
}

type PendingApplicationResponse struct {
	ApplicationResponse
	// Bank is omitted when the bank could not be queried.
	Bank *LoanSummaryResponse `json:"bank,omitempty"`
}

func NewPendingApplicationResponses(pending []loan.PendingApplication) []PendingApplicationResponse {
	resp := make([]PendingApplicationResponse, 0, len(pending))
	for i := range pending {
		item := PendingApplicationResponse{ApplicationResponse: NewApplicationResponse(&pending[i].Application)}
		if s := pending[i].Bank; s != nil {
			summary := NewLoanSummaryResponse(&ledger.LoanSummary{
				AccountNumber: s.AccountNumber,
				Paid:          s.Paid,
				Remaining:     s.Remaining,
				Total:         s.Total,
			})
			item.Bank = &summary
		}
		resp = append(resp, item)
	}
	return resp
}

type DashboardResponse struct {
	TotalApplications    int64  `json:"totalApplications"`
	PendingApplications  int64  `json:"pendingApplications"`
	ApprovedApplications int64  `json:"approvedApplications"`
	RejectedApplications int64  `json:"rejectedApplications"`
	ActiveLoans          int64  `json:"activeLoans"`
	TotalDisbursed       string `json:"totalDisbursed"`
	TotalOutstanding     string `json:"totalOutstanding"`
}

func NewDashboardResponse(stats *loan.DashboardStats) DashboardResponse {
	return DashboardResponse{
		TotalApplications:    stats.TotalApplications,
		PendingApplications:  stats.PendingApplications,
		ApprovedApplications: stats.ApprovedApplications,
		RejectedApplications: stats.RejectedApplications,
		ActiveLoans:          stats.ActiveLoans,
		TotalDisbursed:       Money(stats.TotalDisbursed),
		TotalOutstanding:     Money(stats.TotalOutstanding),
	}
}

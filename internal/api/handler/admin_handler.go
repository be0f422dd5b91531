package handler

import (
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strings"
)

type AdminHandler struct {
	loans  loan.Service
	logger *slog.Logger
}

func NewAdminHandler(loans loan.Service, l *slog.Logger) *AdminHandler {
	return &AdminHandler{
		loans:  loans,
		logger: l.With("component", "AdminHandler"),
	}
}

// Approve approves a pending application and disburses the loan. An
// application whose account still carries a loan is rejected instead.
//
// @Summary Approve a loan application
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.ApproveRequest true "Application id"
// @Success 200 {object} dto.DecisionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Application already decided"
// @Failure 422 {object} dto.ErrorResponse "Insufficient fund"
// @Router /api/lms/loan/approve [post]
// @Security BearerAuth
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req dto.ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	decision, err := h.loans.Approve(r.Context(), req.ApplicationID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDecisionResponse(decision))
}

// Reject closes a pending application.
//
// @Summary Reject a loan application
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.RejectRequest true "Application id and reason"
// @Success 200 {object} dto.ApplicationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/lms/loan/reject [post]
// @Security BearerAuth
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	app, err := h.loans.Reject(r.Context(), req.ApplicationID, req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewApplicationResponse(app))
}

// Pending lists pending applications with the bank's view of each account.
//
// @Summary List pending applications
// @Tags Admin
// @Produce json
// @Success 200 {array} dto.PendingApplicationResponse
// @Router /api/lms/loan/pending [get]
// @Security BearerAuth
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.loans.ListPendingApplications(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPendingApplicationResponses(pending))
}

// LoanSummary lists every active loan.
//
// @Summary List active loans
// @Tags Admin
// @Produce json
// @Success 200 {array} dto.LoanResponse
// @Router /api/lms/loan/admin-summary [get]
// @Security BearerAuth
func (h *AdminHandler) LoanSummary(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.AdminLoanSummary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponses(loans))
}

// @Summary Lending dashboard counters
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /api/lms/admin/dashboard [get]
// @Security BearerAuth
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.loans.Dashboard(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDashboardResponse(stats))
}

// Applications lists applications, optionally filtered by status, account
// number or applicant.
//
// @Summary Search loan applications
// @Tags Admin
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param accountNumber query string false "Account number"
// @Param applicantId query string false "Applicant user id"
// @Success 200 {array} dto.ApplicationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/lms/admin/applications [get]
// @Security BearerAuth
func (h *AdminHandler) Applications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := loan.ApplicationFilter{
		ApplicantID:   q.Get("applicantId"),
		AccountNumber: q.Get("accountNumber"),
	}
	switch status := loan.ApplicationStatus(strings.ToUpper(q.Get("status"))); status {
	case "", loan.ApplicationPending, loan.ApplicationApproved, loan.ApplicationRejected:
		filter.Status = status
	default:
		respondError(w, apperrors.NewValidationError("status", "status must be PENDING, APPROVED or REJECTED"))
		return
	}

	apps, err := h.loans.ListApplications(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewApplicationResponses(apps))
}

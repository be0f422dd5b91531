package handler

import (
	"encoding/json"
	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/verification"
	"lending-engine/internal/identity"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var borrower = identity.Identity{UserID: "u-1", Email: "u1@example.com", Name: "User One", Role: identity.RoleUser}

type lmsMocks struct {
	verification *MockVerificationService
	loans        *MockLoanService
	scores       *MockCreditScoreService
}

func setupLMSHandler() (*LMSHandler, lmsMocks) {
	m := lmsMocks{
		verification: new(MockVerificationService),
		loans:        new(MockLoanService),
		scores:       new(MockCreditScoreService),
	}
	return NewLMSHandler(m.verification, m.loans, m.scores, logger), m
}

func TestLMSHandler_RequiresCaller(t *testing.T) {
	h, _ := setupLMSHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/lms/profile", nil)
	rec := httptest.NewRecorder()

	h.Profile(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLMSHandler_RequestVerification(t *testing.T) {
	t.Run("micro deposit sent", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.verification.On("RequestVerification", mock.Anything, borrower, "ACC-1").Return(&verification.Result{
			Outcome: verification.OutcomeMicroDepositSent,
			Message: "A micro deposit has been sent",
			Link:    &verification.Link{AccountNumber: "ACC-1", Status: verification.StatusWaiting, RetryCount: 1},
		}, nil)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/account/send", strings.NewReader(`{"accountNumber":"ACC-1"}`)), borrower)
		rec := httptest.NewRecorder()

		h.RequestVerification(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.VerificationResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "MICRO_DEPOSIT_SENT", resp.Outcome)
		assert.Equal(t, 1, resp.RetryCount)
		m.verification.AssertExpectations(t)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.verification.On("RequestVerification", mock.Anything, borrower, "ACC-1").Return(nil, verification.ErrRetryExceeded)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/account/send", strings.NewReader(`{"accountNumber":"ACC-1"}`)), borrower)
		rec := httptest.NewRecorder()

		h.RequestVerification(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, verification.CodeRetryExceeded, decodeError(t, rec).Code)
	})
}

func TestLMSHandler_ConfirmDeposit(t *testing.T) {
	h, m := setupLMSHandler()
	m.verification.On("ConfirmVerification", mock.Anything, borrower, "ACC-1", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("0.50"))
	})).Return(&verification.Result{
		Outcome:     verification.OutcomeVerified,
		Link:        &verification.Link{AccountNumber: "ACC-1", Status: verification.StatusVerified, RetryCount: 1},
		CreditScore: 620,
	}, nil)

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/account/confirm-deposit",
		strings.NewReader(`{"accountNumber":"ACC-1","amount":"0.50"}`)), borrower)
	rec := httptest.NewRecorder()

	h.ConfirmDeposit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.VerificationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "VERIFIED", resp.Status)
	assert.Equal(t, 620, resp.CreditScore)
}

func TestLMSHandler_Profile(t *testing.T) {
	t.Run("without a linked account", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.verification.On("GetLink", mock.Anything, "u-1").Return(nil, verification.ErrLinkNotFound)
		m.scores.On("Get", mock.Anything, "u-1").Return(&creditscore.Score{UserID: "u-1", Score: 600}, nil)

		req := withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/profile", nil), borrower)
		rec := httptest.NewRecorder()

		h.Profile(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.ProfileResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Verified)
		assert.Empty(t, resp.AccountNumber)
		assert.Equal(t, 600, resp.CreditScore)
	})

	t.Run("with a verified account", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.verification.On("GetLink", mock.Anything, "u-1").Return(&verification.Link{AccountNumber: "ACC-1", Status: verification.StatusVerified}, nil)
		m.scores.On("Get", mock.Anything, "u-1").Return(&creditscore.Score{UserID: "u-1", Score: 620}, nil)

		req := withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/profile", nil), borrower)
		rec := httptest.NewRecorder()

		h.Profile(rec, req)

		var resp dto.ProfileResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Verified)
		assert.Equal(t, "ACC-1", resp.AccountNumber)
	})
}

func TestLMSHandler_Apply(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, m := setupLMSHandler()
		now := time.Now()
		m.loans.On("Apply", mock.Anything, borrower, mock.MatchedBy(func(r loan.ApplyRequest) bool {
			return r.AccountNumber == "ACC-1" && r.Amount.Equal(decimal.NewFromInt(1200)) && r.TermMonths == 12
		})).Return(&loan.ApplyResult{
			Application: &loan.Application{ID: 5, AccountNumber: "ACC-1", Amount: decimal.NewFromInt(1200), TermMonths: 12,
				InterestRate: decimal.NewFromInt(10), EMI: decimal.RequireFromString("105.5"), TotalPayable: decimal.NewFromInt(1266),
				Status: loan.ApplicationPending, CreatedAt: now, UpdatedAt: now},
			EMI:          decimal.RequireFromString("105.5"),
			TotalPayable: decimal.NewFromInt(1266),
			CreditScore:  610,
		}, nil)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/loan/apply",
			strings.NewReader(`{"accountNumber":"ACC-1","amount":"1200","purpose":"laptop","termMonths":12}`)), borrower)
		rec := httptest.NewRecorder()

		h.Apply(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.ApplyLoanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "105.50", resp.EMI)
		assert.Equal(t, "1266.00", resp.TotalPayable)
		assert.Equal(t, "PENDING", resp.Application.Status)
	})

	t.Run("outstanding loan", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.loans.On("Apply", mock.Anything, borrower, mock.Anything).Return(nil, loan.ErrOutstandingLoanExists)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/loan/apply",
			strings.NewReader(`{"accountNumber":"ACC-1","amount":"1200","termMonths":12}`)), borrower)
		rec := httptest.NewRecorder()

		h.Apply(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "OUTSTANDING_LOAN_EXISTS", decodeError(t, rec).Code)
	})

	t.Run("invalid term", func(t *testing.T) {
		h, m := setupLMSHandler()

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/loan/apply",
			strings.NewReader(`{"accountNumber":"ACC-1","amount":"1200","termMonths":0}`)), borrower)
		rec := httptest.NewRecorder()

		h.Apply(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		m.loans.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLMSHandler_Repay(t *testing.T) {
	t.Run("applies the repayment", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.loans.On("Repay", mock.Anything, borrower, "ACC-1", mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(300))
		})).Return(&loan.RepaymentResult{
			Repayment:   &loan.Repayment{Reference: "ref-1", Amount: decimal.NewFromInt(300), Status: loan.RepaymentPaid},
			Loan:        &loan.Loan{ID: 21, RemainingAmount: decimal.NewFromInt(966)},
			CreditScore: 602,
		}, nil)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/loan/repay",
			strings.NewReader(`{"accountNumber":"ACC-1","amount":"300"}`)), borrower)
		rec := httptest.NewRecorder()

		h.Repay(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.RepayResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "966.00", resp.RemainingAmount)
		assert.Equal(t, "PAID", resp.Repayment.Status)
		assert.Equal(t, 602, resp.CreditScore)
	})

	t.Run("someone else's loan", func(t *testing.T) {
		h, m := setupLMSHandler()
		m.loans.On("Repay", mock.Anything, borrower, "ACC-2", mock.Anything).Return(nil, loan.ErrNotOwner)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/lms/loan/repay",
			strings.NewReader(`{"accountNumber":"ACC-2","amount":"300"}`)), borrower)
		rec := httptest.NewRecorder()

		h.Repay(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLMSHandler_Schedule(t *testing.T) {
	h, m := setupLMSHandler()
	due := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	m.loans.On("GetLoan", mock.Anything, borrower, int64(21)).Return(&loan.LoanDetails{
		Loan: &loan.Loan{ID: 21, RemainingAmount: decimal.NewFromInt(1266), OriginationDate: due.AddDate(0, -1, 0), DueDate: due.AddDate(0, 11, 0)},
		Installments: []loan.Installment{
			{Number: 1, DueDate: due, EMI: decimal.RequireFromString("105.5"), Status: loan.InstallmentPending},
			{Number: 2, DueDate: due.AddDate(0, 1, 0), EMI: decimal.RequireFromString("105.5"), Status: loan.InstallmentPending},
		},
	}, nil)

	req := withURLParams(withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/loans/21/schedule", nil), borrower), "loanID", "21")
	rec := httptest.NewRecorder()

	h.Schedule(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.LoanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Active)
	require.Len(t, resp.Installments, 2)
	assert.Equal(t, "2025-03-15", resp.Installments[1].DueDate)
}

func TestLMSHandler_ActiveLoan_NotFound(t *testing.T) {
	h, m := setupLMSHandler()
	m.loans.On("ActiveLoan", mock.Anything, borrower, "ACC-1").Return(nil, loan.ErrNoOutstandingLoan)

	req := withURLParams(withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/active/ACC-1", nil), borrower), "accountNumber", "ACC-1")
	rec := httptest.NewRecorder()

	h.ActiveLoan(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_OUTSTANDING_LOAN", decodeError(t, rec).Code)
}

func TestLMSHandler_ApplicationsByAccount(t *testing.T) {
	h, m := setupLMSHandler()
	m.loans.On("ListApplicationsByAccount", mock.Anything, borrower, "ACC-1").Return([]loan.Application{
		{ID: 1, AccountNumber: "ACC-1", Status: loan.ApplicationRejected, Reason: "score"},
		{ID: 2, AccountNumber: "ACC-1", Status: loan.ApplicationPending},
	}, nil)

	req := withURLParams(withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/applications/ACC-1", nil), borrower), "accountNumber", "ACC-1")
	rec := httptest.NewRecorder()

	h.ApplicationsByAccount(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []dto.ApplicationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 2)
	assert.Equal(t, "REJECTED", resp[0].Status)
}

func TestLMSHandler_CreditScore(t *testing.T) {
	h, m := setupLMSHandler()
	m.scores.On("Get", mock.Anything, "u-1").Return(&creditscore.Score{UserID: "u-1", Score: 655}, nil)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/lms/credit-score", nil), borrower)
	rec := httptest.NewRecorder()

	h.CreditScore(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.CreditScoreResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 655, resp.Score)
}

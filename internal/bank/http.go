package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lending-engine/internal/config"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const serviceSubject = "lending-service"

// HTTPClient talks to the bank API exposed under /api/bank.
type HTTPClient struct {
	baseURL    string
	jwtSecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(cfg config.BankConfig, logger *slog.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		jwtSecret:  cfg.JWTSecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "BankHTTPClient"),
	}
}

func (c *HTTPClient) SendChallenge(ctx context.Context, accountNumber string) (*Outcome, error) {
	return c.operation(ctx, "/verify", OperationRequest{AccountNumber: accountNumber})
}

func (c *HTTPClient) ConfirmChallenge(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	return c.operation(ctx, "/verify-deposit", OperationRequest{AccountNumber: accountNumber, Amount: amount.String()})
}

func (c *HTTPClient) Disburse(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	return c.operation(ctx, "/loan", OperationRequest{AccountNumber: accountNumber, Amount: amount.String()})
}

func (c *HTTPClient) CollectRepayment(ctx context.Context, accountNumber string, amount decimal.Decimal) (*Outcome, error) {
	return c.operation(ctx, "/repay", OperationRequest{AccountNumber: accountNumber, Amount: amount.String()})
}

func (c *HTTPClient) QueryOutstanding(ctx context.Context, accountNumber string) (*Summary, error) {
	status, body, outcome, err := c.do(ctx, http.MethodGet, "/loan-summary/"+url.PathEscape(accountNumber), nil)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome.Err()
	}

	var resp SummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode loan summary", "status", status, slog.Any("error", err))
		return nil, (&Outcome{Reason: ReasonRemoteError, Message: "malformed loan summary response"}).Err()
	}

	summary := &Summary{AccountNumber: resp.AccountNumber}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{resp.Paid, &summary.Paid},
		{resp.Remaining, &summary.Remaining},
		{resp.Total, &summary.Total},
	} {
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return nil, (&Outcome{Reason: ReasonRemoteError, Message: "malformed amount in loan summary"}).Err()
		}
		*field.dst = v
	}
	return summary, nil
}

func (c *HTTPClient) operation(ctx context.Context, path string, req OperationRequest) (*Outcome, error) {
	_, body, outcome, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return outcome, nil
	}

	var resp OperationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode bank response", "path", path, slog.Any("error", err))
		return &Outcome{Success: false, Reason: ReasonRemoteError, Message: "malformed bank response"}, nil
	}

	result := &Outcome{Success: true, Message: resp.Message}
	if resp.Amount != "" {
		if amount, err := decimal.NewFromString(resp.Amount); err == nil {
			result.Amount = amount
		}
	}
	return result, nil
}

// do performs the request. A non-nil outcome means the bank refused or could
// not be reached; body is only meaningful when outcome is nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) (int, []byte, *Outcome, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to encode bank request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to build bank request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.jwtSecret != "" {
		token, err := c.serviceToken()
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to sign bank service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Bank request failed", "method", method, "path", path, slog.Any("error", err))
		return 0, nil, &Outcome{Success: false, Reason: ReasonRemoteError, Message: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &Outcome{Success: false, Reason: ReasonRemoteError, Message: err.Error()}, nil
	}
	c.logger.DebugContext(ctx, "Bank request completed", "method", method, "path", path, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, body, nil, nil
	}

	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		return resp.StatusCode, body, &Outcome{Success: false, Reason: envelope.Error.Code, Message: envelope.Error.Message}, nil
	}
	return resp.StatusCode, body, &Outcome{
		Success: false,
		Reason:  ReasonRemoteError,
		Message: fmt.Sprintf("bank returned status %d", resp.StatusCode),
	}, nil
}

func (c *HTTPClient) serviceToken() (string, error) {
	claims := jwt.MapClaims{
		"sub":  serviceSubject,
		"role": "ADMIN",
		"exp":  time.Now().Add(5 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.jwtSecret))
}

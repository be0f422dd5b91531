package verification

import (
	"context"
	"errors"
	"fmt"
	"lending-engine/internal/bank"
	"lending-engine/internal/domain/creditscore"
	"lending-engine/internal/domain/uow"
	"lending-engine/internal/identity"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/notification"
	"lending-engine/internal/pkg/apperrors"
	"lending-engine/internal/pkg/keylock"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	RequestVerification(ctx context.Context, claimant identity.Identity, accountNumber string) (*Result, error)

	ConfirmVerification(ctx context.Context, claimant identity.Identity, accountNumber string, amount decimal.Decimal) (*Result, error)

	// GetLink returns ErrLinkNotFound when the user has not linked an account.
	GetLink(ctx context.Context, userID string) (*Link, error)

	IsVerified(ctx context.Context, userID, accountNumber string) (bool, error)
}

type serviceImpl struct {
	repo     Repository
	tx       uow.TxManager
	bank     bank.Client
	scores   creditscore.Service
	notifier notification.Sender
	locks    *keylock.Map
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(repo Repository, tx uow.TxManager, bankClient bank.Client, scores creditscore.Service, notifier notification.Sender, logger *slog.Logger) Service {
	return &serviceImpl{
		repo:     repo,
		tx:       tx,
		bank:     bankClient,
		scores:   scores,
		notifier: notifier,
		locks:    keylock.New(),
		now:      time.Now,
		logger:   logger.With("component", "VerificationService"),
	}
}

// lock serializes on the claimant first and the account number second. The
// order is fixed so two claimants racing for one number cannot deadlock.
func (s *serviceImpl) lock(userID, accountNumber string) func() {
	unlockUser := s.locks.Lock("user:" + userID)
	unlockAccount := s.locks.Lock("account:" + accountNumber)
	return func() {
		unlockAccount()
		unlockUser()
	}
}

func (s *serviceImpl) RequestVerification(ctx context.Context, claimant identity.Identity, accountNumber string) (*Result, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, apperrors.NewValidationError("accountNumber", "account number is required")
	}
	unlock := s.lock(claimant.UserID, accountNumber)
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting to request account verification", "userID", claimant.UserID, "accountNumber", accountNumber)

	owner, err := s.repo.FindVerifiedByAccountNumber(ctx, accountNumber)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check account ownership: %w", err)
	}
	if owner != nil && owner.UserID != claimant.UserID {
		s.logger.WarnContext(ctx, "Account already verified by another user", "userID", claimant.UserID, "accountNumber", accountNumber)
		monitoring.RecordVerification("request", "verified_by_other")
		return nil, ErrAlreadyVerifiedByOther
	}

	link, err := s.findLink(ctx, claimant.UserID)
	if err != nil {
		return nil, err
	}

	if link == nil {
		if err := s.sendChallenge(ctx, accountNumber); err != nil {
			return nil, err
		}
		now := s.now()
		created, err := s.repo.Create(ctx, &Link{
			UserID:        claimant.UserID,
			UserEmail:     claimant.Email,
			UserName:      claimant.Name,
			AccountNumber: accountNumber,
			Status:        StatusWaiting,
			RetryCount:    1,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to create account link", "userID", claimant.UserID, slog.Any("error", err))
			return nil, fmt.Errorf("failed to create account link: %w", err)
		}
		monitoring.RecordVerification("request", "sent")
		s.logger.InfoContext(ctx, "Successfully requested verification", "userID", claimant.UserID, "linkID", created.ID)
		return &Result{Outcome: OutcomeMicroDepositSent, Link: created, Message: "Micro deposit sent. Please confirm the amount."}, nil
	}

	if link.IsVerified() {
		monitoring.RecordVerification("request", "already_verified")
		return nil, ErrAlreadyVerified
	}
	if link.RetryCount >= MaxRetries {
		s.logger.WarnContext(ctx, "Verification retry limit reached", "userID", claimant.UserID, "retryCount", link.RetryCount)
		monitoring.RecordVerification("request", "retry_exceeded")
		return nil, ErrRetryExceeded
	}

	if link.AccountNumber == accountNumber {
		link.RetryCount++
		link.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to update account link: %w", err)
		}
		monitoring.RecordVerification("request", "pending")
		return &Result{Outcome: OutcomeStillPending, Link: link, Message: "Verification is still pending. Please confirm the micro deposit."}, nil
	}

	if err := s.sendChallenge(ctx, accountNumber); err != nil {
		return nil, err
	}
	link.AccountNumber = accountNumber
	link.Status = StatusWaiting
	link.RetryCount++
	link.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, link); err != nil {
		s.logger.ErrorContext(ctx, "Failed to relink account", "userID", claimant.UserID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to update account link: %w", err)
	}
	monitoring.RecordVerification("request", "sent")
	s.logger.InfoContext(ctx, "Successfully requested verification for new account", "userID", claimant.UserID, "linkID", link.ID)
	return &Result{Outcome: OutcomeMicroDepositSent, Link: link, Message: "Micro deposit sent. Please confirm the amount."}, nil
}

func (s *serviceImpl) ConfirmVerification(ctx context.Context, claimant identity.Identity, accountNumber string, amount decimal.Decimal) (*Result, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "amount must be greater than zero")
	}
	unlock := s.lock(claimant.UserID, accountNumber)
	defer unlock()

	s.logger.InfoContext(ctx, "Attempting to confirm micro deposit", "userID", claimant.UserID, "accountNumber", accountNumber)

	link, err := s.findLink(ctx, claimant.UserID)
	if err != nil {
		return nil, err
	}
	if link == nil || link.AccountNumber != accountNumber {
		monitoring.RecordVerification("confirm", "no_challenge")
		return nil, ErrNoChallengeFound
	}
	if link.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	outcome, err := s.bank.ConfirmChallenge(ctx, accountNumber, amount)
	if err != nil {
		s.logger.ErrorContext(ctx, "Bank confirmation call failed", "accountNumber", accountNumber, slog.Any("error", err))
		return nil, fmt.Errorf("failed to confirm micro deposit: %w", err)
	}
	if !outcome.Success {
		s.logger.WarnContext(ctx, "Micro deposit confirmation refused", "accountNumber", accountNumber, "reason", outcome.Reason)
		monitoring.RecordVerification("confirm", strings.ToLower(outcome.Reason))
		return nil, bankError(outcome)
	}

	var score *creditscore.Score
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link.Status = StatusVerified
		link.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, link); err != nil {
			return fmt.Errorf("failed to mark link verified: %w", err)
		}
		purged, err := s.repo.DeleteOthersByAccountNumber(ctx, accountNumber, claimant.UserID)
		if err != nil {
			return fmt.Errorf("failed to purge competing links: %w", err)
		}
		if purged > 0 {
			s.logger.InfoContext(ctx, "Removed competing account links", "accountNumber", accountNumber, "count", purged)
		}
		score, err = s.scores.Adjust(ctx, claimant.UserID, creditscore.DeltaVerified)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record verification", "userID", claimant.UserID, slog.Any("error", err))
		return nil, err
	}
	monitoring.RecordVerification("confirm", "verified")

	subject, body := notification.AccountVerified(displayName(link), accountNumber)
	notification.Notify(ctx, s.notifier, s.logger, link.UserEmail, subject, body)

	s.logger.InfoContext(ctx, "Successfully verified bank account", "userID", claimant.UserID, "accountNumber", accountNumber)
	return &Result{Outcome: OutcomeVerified, Link: link, Message: "Bank account verified successfully.", CreditScore: score.Score}, nil
}

func (s *serviceImpl) GetLink(ctx context.Context, userID string) (*Link, error) {
	link, err := s.findLink(ctx, userID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

func (s *serviceImpl) IsVerified(ctx context.Context, userID, accountNumber string) (bool, error) {
	link, err := s.findLink(ctx, userID)
	if err != nil {
		return false, err
	}
	return link.IsVerified() && link.AccountNumber == accountNumber, nil
}

func (s *serviceImpl) findLink(ctx context.Context, userID string) (*Link, error) {
	link, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Failed to load account link", "userID", userID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to load account link: %w", err)
	}
	return link, nil
}

func (s *serviceImpl) sendChallenge(ctx context.Context, accountNumber string) error {
	outcome, err := s.bank.SendChallenge(ctx, accountNumber)
	if err != nil {
		s.logger.ErrorContext(ctx, "Bank micro deposit call failed", "accountNumber", accountNumber, slog.Any("error", err))
		return fmt.Errorf("failed to send micro deposit: %w", err)
	}
	if !outcome.Success {
		s.logger.WarnContext(ctx, "Micro deposit refused by bank", "accountNumber", accountNumber, "reason", outcome.Reason)
		monitoring.RecordVerification("request", strings.ToLower(outcome.Reason))
		return bankError(outcome)
	}
	return nil
}

func bankError(outcome *bank.Outcome) error {
	switch outcome.Reason {
	case bank.ReasonAmountMismatch:
		return ErrAmountMismatch
	case bank.ReasonNoChallengeFound:
		return ErrNoChallengeFound
	default:
		return outcome.Err()
	}
}

func displayName(link *Link) string {
	if link.UserName != "" {
		return link.UserName
	}
	return link.UserEmail
}

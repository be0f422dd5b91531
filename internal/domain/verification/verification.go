// Package verification links users to bank accounts proven through a micro
// deposit round trip.
package verification

import "time"

// MaxRetries caps the number of verification requests per link.
const MaxRetries = 2

type Status string

const (
	StatusWaiting  Status = "WAITING_VERIFICATION"
	StatusVerified Status = "VERIFIED"
)

// Link is a user's claim on a bank account number. A user holds at most one.
type Link struct {
	ID            int64
	UserID        string
	UserEmail     string
	UserName      string
	AccountNumber string
	Status        Status
	RetryCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (l *Link) IsVerified() bool {
	return l != nil && l.Status == StatusVerified
}

type Outcome string

const (
	OutcomeMicroDepositSent Outcome = "MICRO_DEPOSIT_SENT"
	OutcomeStillPending     Outcome = "STILL_PENDING"
	OutcomeVerified         Outcome = "VERIFIED"
)

type Result struct {
	Outcome Outcome
	Link    *Link
	Message string
	// CreditScore is set after a successful confirmation.
	CreditScore int
}

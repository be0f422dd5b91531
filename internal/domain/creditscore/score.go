package creditscore

import "time"

const (
	DefaultScore = 600
	MinScore     = 300
	MaxScore     = 900
)

// Score deltas applied by the lending flows.
const (
	DeltaVerified    = 20
	DeltaApplied     = -10
	DeltaApproved    = 30
	DeltaRejected    = -10
	DeltaFullyRepaid = 50
	DeltaPaidAtLeast = 2
	DeltaUnderpaid   = -5
	DeltaLatePayment = -20
)

type Score struct {
	UserID      string
	Score       int
	LastUpdated time.Time
}

func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Package amortization computes fixed-EMI repayment schedules.
package amortization

import (
	"lending-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	// RateScale is the number of decimal places kept on the monthly rate.
	RateScale int32 = 10
	// MoneyScale is the number of decimal places kept on every money value.
	MoneyScale int32 = 2
)

var ErrInvalidInput = apperrors.New("INVALID_AMORTIZATION_INPUT", "principal, rate and term must all be positive", apperrors.ErrInvalidArgument)

var (
	one           = decimal.NewFromInt(1)
	monthsPercent = decimal.NewFromInt(12 * 100)
)

type Installment struct {
	Number    int
	EMI       decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Remaining decimal.Decimal
}

type Schedule struct {
	Principal    decimal.Decimal
	MonthlyRate  decimal.Decimal
	TermMonths   int
	EMI          decimal.Decimal
	TotalPayable decimal.Decimal
	Installments []Installment
}

// MonthlyRate converts an annual percentage (10 for 10%) into a monthly
// fraction rounded half-up to RateScale places.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsPercent, RateScale)
}

// EMI returns P*r*(1+r)^n / ((1+r)^n - 1) rounded half-up to cents.
func EMI(principal, monthlyRate decimal.Decimal, termMonths int) decimal.Decimal {
	factor := compound(monthlyRate, termMonths)
	return principal.Mul(monthlyRate).Mul(factor).DivRound(factor.Sub(one), MoneyScale)
}

// Amortize builds the full schedule. The final installment absorbs rounding
// drift so principal components sum to exactly principal.
func Amortize(principal, annualRatePercent decimal.Decimal, termMonths int) (*Schedule, error) {
	if termMonths <= 0 || !principal.IsPositive() || !annualRatePercent.IsPositive() {
		return nil, ErrInvalidInput
	}

	r := MonthlyRate(annualRatePercent)
	if !r.IsPositive() {
		return nil, ErrInvalidInput
	}
	emi := EMI(principal, r, termMonths)

	installments := make([]Installment, 0, termMonths)
	remaining := principal
	for i := 1; i <= termMonths; i++ {
		interest := remaining.Mul(r).Round(MoneyScale)
		principalPart := emi.Sub(interest).Round(MoneyScale)
		installmentEMI := emi

		if i == termMonths {
			principalPart = remaining
			installmentEMI = principalPart.Add(interest)
			remaining = decimal.Zero
		} else {
			remaining = remaining.Sub(principalPart)
		}

		installments = append(installments, Installment{
			Number:    i,
			EMI:       installmentEMI,
			Interest:  interest,
			Principal: principalPart,
			Remaining: remaining,
		})
	}

	return &Schedule{
		Principal:    principal,
		MonthlyRate:  r,
		TermMonths:   termMonths,
		EMI:          emi,
		TotalPayable: emi.Mul(decimal.NewFromInt(int64(termMonths))).Round(MoneyScale),
		Installments: installments,
	}, nil
}

func compound(rate decimal.Decimal, n int) decimal.Decimal {
	base := one.Add(rate)
	factor := one
	for i := 0; i < n; i++ {
		factor = factor.Mul(base)
	}
	return factor
}

package amortization

import (
	"errors"
	"fmt"
	"lending-engine/internal/pkg/apperrors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAmortize_ReferenceExample(t *testing.T) {
	schedule, err := Amortize(d("1200"), d("10"), 12)
	require.NoError(t, err)

	assert.True(t, d("0.0083333333").Equal(schedule.MonthlyRate), "monthly rate %s", schedule.MonthlyRate)
	assert.True(t, d("105.50").Equal(schedule.EMI), "emi %s", schedule.EMI)
	assert.True(t, d("1266.00").Equal(schedule.TotalPayable), "total %s", schedule.TotalPayable)

	first := schedule.Installments[0]
	assert.Equal(t, 1, first.Number)
	assert.True(t, d("10.00").Equal(first.Interest), "interest %s", first.Interest)
	assert.True(t, d("95.50").Equal(first.Principal), "principal %s", first.Principal)
	assert.True(t, d("1104.50").Equal(first.Remaining), "remaining %s", first.Remaining)
}

func TestAmortize_PrincipalSumsExactly(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		term      int
	}{
		{"1200", "10", 12},
		{"1000", "10", 1},
		{"50000", "10", 36},
		{"999.99", "7.5", 7},
		{"25000", "18", 60},
		{"0.75", "10", 3},
		{"1000000", "12.25", 240},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s_%d", tc.principal, tc.rate, tc.term), func(t *testing.T) {
			schedule, err := Amortize(d(tc.principal), d(tc.rate), tc.term)
			require.NoError(t, err)
			require.Len(t, schedule.Installments, tc.term)

			sum := decimal.Zero
			for i, inst := range schedule.Installments {
				assert.Equal(t, i+1, inst.Number)
				assert.True(t, inst.EMI.Equal(inst.Interest.Add(inst.Principal)), "installment %d emi mismatch", inst.Number)
				sum = sum.Add(inst.Principal)
			}

			assert.True(t, d(tc.principal).Equal(sum), "principal sum %s", sum)
			last := schedule.Installments[tc.term-1]
			assert.True(t, last.Remaining.IsZero(), "last remaining %s", last.Remaining)
		})
	}
}

func TestAmortize_NonFinalInstallmentsUseNominalEMI(t *testing.T) {
	schedule, err := Amortize(d("5000"), d("10"), 6)
	require.NoError(t, err)

	for _, inst := range schedule.Installments[:5] {
		assert.True(t, schedule.EMI.Equal(inst.EMI))
	}
}

func TestAmortize_InvalidInput(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		term      int
	}{
		{"zero term", d("1000"), d("10"), 0},
		{"negative term", d("1000"), d("10"), -3},
		{"zero principal", decimal.Zero, d("10"), 12},
		{"negative principal", d("-5"), d("10"), 12},
		{"zero rate", d("1000"), decimal.Zero, 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule, err := Amortize(tc.principal, tc.rate, tc.term)
			assert.Nil(t, schedule)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
		})
	}
}

func TestEMI_RoundsHalfUp(t *testing.T) {
	emi := EMI(d("100000"), MonthlyRate(d("10")), 12)
	assert.True(t, d("8791.59").Equal(emi), "emi %s", emi)
}

package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEstimate(t *testing.T) {
	q := Estimate(d("80"), 3, d("50"))
	assert.True(t, q.BasePrice.Equal(d("240")))
	assert.True(t, q.Deposit.Equal(d("50")))
	assert.True(t, q.Total.Equal(d("290")))
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name      string
		rate      string
		estimated int
		actual    int
		final     string
		discount  string
		extra     string
		outcome   Outcome
		message   string
	}{
		{"early", "50", 10, 6, "460", "40", "0", OutcomeEarly, "Early return! $40.00 discount applied"},
		{"early short booking", "80", 3, 2, "224", "16", "0", OutcomeEarly, "Early return! $16.00 discount applied"},
		{"returned immediately", "50", 4, 0, "160", "40", "0", OutcomeEarly, "Early return! $40.00 discount applied"},
		{"on time", "50", 5, 5, "250", "0", "0", OutcomeOnTime, "On-time return"},
		{"late", "50", 5, 8, "400", "0", "150", OutcomeLate, "Late return - extra charge: $150.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settle(d(tt.rate), tt.estimated, tt.actual, d("0.20"))
			assert.True(t, s.FinalCost.Equal(d(tt.final)), "final cost %s", s.FinalCost)
			assert.True(t, s.Discount.Equal(d(tt.discount)), "discount %s", s.Discount)
			assert.True(t, s.ExtraCharge.Equal(d(tt.extra)), "extra %s", s.ExtraCharge)
			assert.Equal(t, tt.outcome, s.Outcome)
			assert.Equal(t, tt.message, s.Message)
		})
	}
}

func TestSettleFractionalRate(t *testing.T) {
	s := Settle(d("45.50"), 3, 1, d("0.20"))
	// 45.5 + 91 - 18.2
	assert.True(t, s.FinalCost.Equal(d("118.3")))
	assert.Equal(t, "Early return! $18.20 discount applied", s.Message)
}

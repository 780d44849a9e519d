package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestATMStrike(t *testing.T) {
	cases := []struct {
		ltp       string
		increment int64
		want      int64
	}{
		{"24998", 50, 25000},
		{"24974.9", 50, 24950},
		{"25025", 50, 25050}, // half rounds away from zero
		{"81245.55", 100, 81200},
		{"81250", 100, 81300},
		{"49.4", 50, 50},
		{"12", 50, 0},
	}

	for _, tc := range cases {
		ltp := decimal.RequireFromString(tc.ltp)
		got, err := ATMStrike(ltp, tc.increment)
		if err != nil {
			t.Fatalf("ATMStrike(%s, %d): %v", tc.ltp, tc.increment, err)
		}
		if got != tc.want {
			t.Errorf("ATMStrike(%s, %d) = %d, want %d", tc.ltp, tc.increment, got, tc.want)
		}
	}
}

func TestATMStrikeGridProperty(t *testing.T) {
	increments := []int64{50, 100}
	for _, inc := range increments {
		for ltp := int64(1); ltp < 30000; ltp += 173 {
			price := decimal.NewFromInt(ltp).Add(decimal.NewFromFloat(0.37))
			strike, err := ATMStrike(price, inc)
			if err != nil {
				t.Fatal(err)
			}
			if strike%inc != 0 {
				t.Fatalf("strike %d not on grid %d for ltp %s", strike, inc, price)
			}
			diff := decimal.NewFromInt(strike).Sub(price).Abs()
			if diff.GreaterThan(decimal.NewFromInt(inc).Div(decimal.NewFromInt(2))) {
				t.Fatalf("strike %d further than half a step from %s", strike, price)
			}
		}
	}
}

func TestATMStrikeRejectsBadIncrement(t *testing.T) {
	if _, err := ATMStrike(decimal.NewFromInt(100), 0); err == nil {
		t.Fatal("zero increment should be rejected")
	}
	if _, err := ATMStrike(decimal.NewFromInt(100), -50); err == nil {
		t.Fatal("negative increment should be rejected")
	}
}

package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ATMStrike snaps a last-traded price to the nearest strike on the grid.
// Halves round away from zero (decimal.Round semantics); 25025 on a grid
// of 50 therefore becomes 25050, not 25000.
func ATMStrike(ltp decimal.Decimal, increment int64) (int64, error) {
	if increment <= 0 {
		return 0, fmt.Errorf("strike increment must be positive, got %d", increment)
	}
	step := decimal.NewFromInt(increment)
	steps := ltp.Div(step).Round(0)
	return steps.Mul(step).IntPart(), nil
}

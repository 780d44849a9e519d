package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Quote samples one index against the live provider and prints the result
// as JSON. Useful for checking credentials and symbol construction without
// opening a stream.
func (a *App) Quote(ctx context.Context, indexID string) error {
	specs, err := a.Config.IndexSpecs()
	if err != nil {
		return err
	}

	smp := a.newSampler(a.newProvider())

	for _, spec := range specs {
		if spec.ID != indexID {
			continue
		}
		sample, err := smp.Sample(ctx, spec, time.Now())
		if err != nil {
			return err
		}

		out := map[string]any{
			"index_id":       sample.IndexID,
			"atm_strike":     sample.AtmStrike,
			"call_price":     sample.CallPrice.InexactFloat64(),
			"put_price":      sample.PutPrice.InexactFloat64(),
			"straddle_price": sample.StraddlePrice.InexactFloat64(),
			"ltp":            sample.IndexLTP.InexactFloat64(),
			"timestamp":      sample.At.Format(time.RFC3339),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	return fmt.Errorf("unknown index %q", indexID)
}

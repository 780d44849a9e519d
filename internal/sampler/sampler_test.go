package sampler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"straddle-stream/internal/market"
	"straddle-stream/internal/provider"
)

type quoteFunc func(ctx context.Context, symbols []string) ([]provider.Entry, error)

func (f quoteFunc) Quotes(ctx context.Context, symbols []string) ([]provider.Entry, error) {
	return f(ctx, symbols)
}

func niftySpec() market.IndexSpec {
	return market.IndexSpec{
		ID:              "nifty",
		Exchange:        "NSE",
		BaseSymbol:      "NIFTY",
		QuoteSymbol:     "NSE:NIFTY50-INDEX",
		StrikeIncrement: 50,
		Rule:            market.ExpiryRule{Kind: market.RuleWeekly, Weekday: time.Thursday},
	}
}

func fastSampler(quotes provider.QuoteProvider) *Sampler {
	return New(quotes, Options{MaxAttempts: 3, InitialBackoff: time.Millisecond}, zerolog.Nop())
}

func price(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func happyProvider(t *testing.T, calls *int) quoteFunc {
	return func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		*calls++
		switch len(symbols) {
		case 1:
			if symbols[0] != "NSE:NIFTY50-INDEX" {
				t.Errorf("unexpected index symbol %q", symbols[0])
			}
			return []provider.Entry{{Name: symbols[0], LastPrice: price(24998), HasPrice: true}}, nil
		case 2:
			return []provider.Entry{
				{Name: symbols[0], LastPrice: price(120.5), HasPrice: true},
				{Name: symbols[1], LastPrice: price(98.25), HasPrice: true},
			}, nil
		}
		t.Fatalf("unexpected batch size %d", len(symbols))
		return nil, nil
	}
}

func TestSampleSuccess(t *testing.T) {
	calls := 0
	s := fastSampler(happyProvider(t, &calls))

	monday := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	sample, err := s.Sample(context.Background(), niftySpec(), monday)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if sample.AtmStrike != 25000 {
		t.Errorf("atm strike = %d, want 25000", sample.AtmStrike)
	}
	if got := sample.StraddlePrice.String(); got != "218.75" {
		t.Errorf("straddle = %s, want 218.75", got)
	}
	if !sample.StraddlePrice.Equal(sample.CallPrice.Add(sample.PutPrice)) {
		t.Error("straddle price must equal call+put")
	}
	if calls != 2 {
		t.Errorf("provider called %d times, want 2", calls)
	}
}

func TestSampleRetriesOnceOnRateLimit(t *testing.T) {
	calls := 0
	limited := false
	inner := happyProvider(t, &calls)
	s := fastSampler(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		if !limited {
			limited = true
			calls++
			return nil, provider.ErrRateLimited
		}
		return inner(ctx, symbols)
	}))

	monday := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)
	if _, err := s.Sample(context.Background(), niftySpec(), monday); err != nil {
		t.Fatalf("Sample after single 429: %v", err)
	}
	if calls != 3 {
		t.Errorf("provider called %d times, want 3 (one retry)", calls)
	}
}

func TestSampleRateLimitExhausted(t *testing.T) {
	calls := 0
	s := fastSampler(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		calls++
		return nil, provider.ErrRateLimited
	}))

	_, err := s.Sample(context.Background(), niftySpec(), time.Now())
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("expected rate-limit exhaustion, got %v", err)
	}
	if calls != 3 {
		t.Errorf("provider called %d times, want MaxAttempts=3", calls)
	}
}

func TestSampleMissingLTPNoSecondCall(t *testing.T) {
	calls := 0
	s := fastSampler(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		calls++
		return []provider.Entry{{Name: symbols[0]}}, nil
	}))

	_, err := s.Sample(context.Background(), niftySpec(), time.Now())
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestSampleMalformedResponseNoRetry(t *testing.T) {
	calls := 0
	s := fastSampler(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		calls++
		return nil, &provider.MalformedError{Reason: "empty quote array"}
	}))

	_, err := s.Sample(context.Background(), niftySpec(), time.Now())
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestSampleMissingLegPrice(t *testing.T) {
	s := fastSampler(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		if len(symbols) == 1 {
			return []provider.Entry{{Name: symbols[0], LastPrice: price(24998), HasPrice: true}}, nil
		}
		return []provider.Entry{
			{Name: symbols[0], LastPrice: price(120.5), HasPrice: true},
			{Name: symbols[1]}, // put leg without a price
		}, nil
	}))

	_, err := s.Sample(context.Background(), niftySpec(), time.Now())
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestSampleBackoffCancellable(t *testing.T) {
	s := New(quoteFunc(func(ctx context.Context, symbols []string) ([]provider.Entry, error) {
		return nil, provider.ErrRateLimited
	}), Options{MaxAttempts: 3, InitialBackoff: time.Minute}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := s.Sample(ctx, niftySpec(), time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancel took %s, backoff not abandoned", elapsed)
	}
}

// Package sampler computes ATM straddle samples for tracked indices.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"straddle-stream/internal/market"
	"straddle-stream/internal/provider"
)

// Sample is one straddle observation. StraddlePrice is always recomputed
// from the two legs, never carried independently.
type Sample struct {
	IndexID       string
	AtmStrike     int64
	CallPrice     decimal.Decimal
	PutPrice      decimal.Decimal
	StraddlePrice decimal.Decimal
	IndexLTP      decimal.Decimal
	At            time.Time
}

// DataError indicates the provider answered but the payload was unusable
// for one index. It aborts the index for the current tick only and is
// never retried.
type DataError struct {
	IndexID string
	Reason  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("sample %s: %s", e.IndexID, e.Reason)
}

// Options tune the rate-limit retry policy.
type Options struct {
	// MaxAttempts bounds provider calls per step, first try included.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry; it doubles on
	// each subsequent one.
	InitialBackoff time.Duration
}

// Sampler derives straddle samples from live quotes. It performs no
// persistence; callers own storage and history updates.
type Sampler struct {
	quotes provider.QuoteProvider
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Sampler.
func New(quotes provider.QuoteProvider, opts Options, logger zerolog.Logger) *Sampler {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 10 * time.Second
	}
	return &Sampler{
		quotes: quotes,
		opts:   opts,
		logger: logger.With().Str("component", "sampler").Logger(),
		now:    time.Now,
	}
}

// Sample resolves the ATM straddle for one index as of today. A rate
// limited provider is retried with bounded exponential backoff; malformed
// data fails immediately with *DataError.
func (s *Sampler) Sample(ctx context.Context, spec market.IndexSpec, today time.Time) (Sample, error) {
	entries, err := s.quoteWithRetry(ctx, spec.ID, []string{spec.QuoteSymbol})
	if err != nil {
		return Sample{}, err
	}
	if len(entries) == 0 || !entries[0].HasPrice {
		return Sample{}, &DataError{IndexID: spec.ID, Reason: "index last-traded price missing"}
	}
	ltp := entries[0].LastPrice

	strike, err := market.ATMStrike(ltp, spec.StrikeIncrement)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %s: %w", spec.ID, err)
	}

	expiryCode := market.ResolveExpiry(spec.Rule, today)
	callSym, putSym := spec.OptionSymbolsFor(expiryCode, strike)

	entries, err = s.quoteWithRetry(ctx, spec.ID, []string{callSym, putSym})
	if err != nil {
		return Sample{}, err
	}

	callPrice, putPrice, err := matchLegs(spec.ID, entries)
	if err != nil {
		return Sample{}, err
	}

	s.logger.Debug().
		Str("index", spec.ID).
		Int64("atm_strike", strike).
		Str("expiry", expiryCode).
		Msg("straddle sampled")

	return Sample{
		IndexID:       spec.ID,
		AtmStrike:     strike,
		CallPrice:     callPrice,
		PutPrice:      putPrice,
		StraddlePrice: callPrice.Add(putPrice),
		IndexLTP:      ltp,
		At:            s.now().UTC(),
	}, nil
}

// matchLegs picks the call and put premium out of a quote batch by the
// CE/PE marker embedded in the contract name.
func matchLegs(indexID string, entries []provider.Entry) (call, put decimal.Decimal, err error) {
	var haveCall, havePut bool
	for _, entry := range entries {
		if !entry.HasPrice {
			continue
		}
		switch {
		case strings.Contains(entry.Name, "CE"):
			call, haveCall = entry.LastPrice, true
		case strings.Contains(entry.Name, "PE"):
			put, havePut = entry.LastPrice, true
		}
	}
	if !haveCall || !havePut {
		return decimal.Decimal{}, decimal.Decimal{}, &DataError{IndexID: indexID, Reason: "option leg prices missing"}
	}
	return call, put, nil
}

// quoteWithRetry issues one provider call, retrying only on rate limiting.
// The backoff wait aborts as soon as ctx is cancelled so a disconnecting
// session never parks a goroutine.
func (s *Sampler) quoteWithRetry(ctx context.Context, indexID string, symbols []string) ([]provider.Entry, error) {
	backoff := s.opts.InitialBackoff
	for attempt := 1; ; attempt++ {
		entries, err := s.quotes.Quotes(ctx, symbols)
		if err == nil {
			return entries, nil
		}

		var malformed *provider.MalformedError
		if errors.As(err, &malformed) {
			return nil, &DataError{IndexID: indexID, Reason: malformed.Reason}
		}
		if !errors.Is(err, provider.ErrRateLimited) {
			return nil, fmt.Errorf("sample %s: %w", indexID, err)
		}
		if attempt >= s.opts.MaxAttempts {
			return nil, fmt.Errorf("sample %s: gave up after %d attempts: %w", indexID, attempt, provider.ErrRateLimited)
		}

		s.logger.Warn().
			Str("index", indexID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("provider rate limited, backing off")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

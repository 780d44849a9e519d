// Package provider wraps the upstream quote API behind a typed interface.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrRateLimited signals the provider rejected a call with a 429. The caller
// decides whether and when to retry; the client never sleeps on its own.
var ErrRateLimited = errors.New("provider: rate limited")

// MalformedError marks a response the provider returned successfully but
// that cannot be interpreted as quotes.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("provider: malformed response: %s", e.Reason)
}

// Entry is one quoted symbol. HasPrice is false when the provider omitted
// the last-traded price for the symbol.
type Entry struct {
	Name      string
	LastPrice decimal.Decimal
	HasPrice  bool
}

// QuoteProvider fetches live quotes for a batch of symbols. Implementations
// must be safe for concurrent use; rate limiting is reported per call via
// ErrRateLimited, never enforced globally.
type QuoteProvider interface {
	Quotes(ctx context.Context, symbols []string) ([]Entry, error)
}

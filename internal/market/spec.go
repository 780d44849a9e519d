// Package market holds the calendar and symbol arithmetic for index
// option straddles: expiry resolution, ATM strike selection, and the
// provider's contract identifier grammar. Everything here is pure.
package market

import (
	"fmt"
	"strings"
	"time"
)

// RuleKind discriminates expiry calendar policies.
type RuleKind string

const (
	// RuleWeekly expires on the next occurrence of a weekday, today included.
	RuleWeekly RuleKind = "weekly"
	// RuleMonthlyLast expires on the final occurrence of a weekday in the
	// current calendar month.
	RuleMonthlyLast RuleKind = "monthly_last"
)

// ExpiryRule pairs a calendar policy with its anchor weekday.
type ExpiryRule struct {
	Kind    RuleKind
	Weekday time.Weekday
}

// ParseRule builds an ExpiryRule from configuration strings.
func ParseRule(kind, weekday string) (ExpiryRule, error) {
	var rule ExpiryRule

	switch RuleKind(strings.ToLower(strings.TrimSpace(kind))) {
	case RuleWeekly:
		rule.Kind = RuleWeekly
	case RuleMonthlyLast:
		rule.Kind = RuleMonthlyLast
	default:
		return ExpiryRule{}, fmt.Errorf("unknown expiry rule kind %q", kind)
	}

	day, err := parseWeekday(weekday)
	if err != nil {
		return ExpiryRule{}, err
	}
	rule.Weekday = day

	return rule, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// IndexSpec describes one tracked index. Specs are built from configuration
// at startup and never mutated afterwards.
type IndexSpec struct {
	// ID keys the index in snapshots and persisted samples, e.g. "nifty".
	ID string
	// Exchange prefixes contract identifiers, e.g. "NSE".
	Exchange string
	// BaseSymbol is the option root, e.g. "NIFTY".
	BaseSymbol string
	// QuoteSymbol is the provider identifier for the index itself,
	// e.g. "NSE:NIFTY50-INDEX".
	QuoteSymbol string
	// StrikeIncrement is the strike grid spacing in index points.
	StrikeIncrement int64
	// Rule selects the active expiry cycle.
	Rule ExpiryRule
}

// Validate rejects specs that cannot produce contract identifiers.
func (s IndexSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("index spec: id is required")
	}
	if s.Exchange == "" || s.BaseSymbol == "" || s.QuoteSymbol == "" {
		return fmt.Errorf("index spec %q: exchange, base_symbol and quote_symbol are required", s.ID)
	}
	if s.StrikeIncrement <= 0 {
		return fmt.Errorf("index spec %q: strike_increment must be positive", s.ID)
	}
	switch s.Rule.Kind {
	case RuleWeekly, RuleMonthlyLast:
	default:
		return fmt.Errorf("index spec %q: unknown expiry rule kind %q", s.ID, s.Rule.Kind)
	}
	return nil
}

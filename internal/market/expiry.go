package market

import (
	"fmt"
	"strings"
	"time"
)

// monthCodes is the provider's compact month encoding for weekly expiry
// identifiers: 1-9 as a digit, then O/N/D for October through December.
var monthCodes = [13]string{"", "1", "2", "3", "4", "5", "6", "7", "8", "9", "O", "N", "D"}

// ResolveExpiry returns the exchange-formatted expiry code for the cycle
// active on today under the given rule. Weekly rules yield the compact
// YY+month-code+DD form; monthly rules yield YY plus the upper-case
// three-letter month. Both encodings are part of the upstream identifier
// grammar and must not be normalised.
func ResolveExpiry(rule ExpiryRule, today time.Time) string {
	switch rule.Kind {
	case RuleMonthlyLast:
		return formatMonthly(lastWeekdayOfMonth(today, rule.Weekday))
	default:
		return formatWeekly(nextWeekday(today, rule.Weekday))
	}
}

// ResolveExpiryDate exposes the underlying calendar date for a rule.
func ResolveExpiryDate(rule ExpiryRule, today time.Time) time.Time {
	if rule.Kind == RuleMonthlyLast {
		return lastWeekdayOfMonth(today, rule.Weekday)
	}
	return nextWeekday(today, rule.Weekday)
}

// nextWeekday returns the first occurrence of w on or after today.
func nextWeekday(today time.Time, w time.Weekday) time.Time {
	delta := (int(w) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, delta)
}

// lastWeekdayOfMonth walks back from the final calendar day of today's
// month until the weekday matches.
func lastWeekdayOfMonth(today time.Time, w time.Weekday) time.Time {
	d := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).
		AddDate(0, 1, -1)
	for d.Weekday() != w {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func formatWeekly(d time.Time) string {
	return fmt.Sprintf("%02d%s%02d", d.Year()%100, monthCodes[d.Month()], d.Day())
}

func formatMonthly(d time.Time) string {
	return fmt.Sprintf("%02d%s", d.Year()%100, strings.ToUpper(d.Month().String()[:3]))
}

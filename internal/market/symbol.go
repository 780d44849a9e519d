package market

import "fmt"

// OptionSymbols formats the call and put contract identifiers for a strike
// and expiry code, following the provider grammar
// {exchange}:{base}{expiry}{strike}{CE|PE}.
func OptionSymbols(exchange, base, expiryCode string, strike int64) (call, put string) {
	prefix := fmt.Sprintf("%s:%s%s%d", exchange, base, expiryCode, strike)
	return prefix + "CE", prefix + "PE"
}

// OptionSymbolsFor is a convenience over OptionSymbols using a spec's
// exchange and base symbol.
func (s IndexSpec) OptionSymbolsFor(expiryCode string, strike int64) (call, put string) {
	return OptionSymbols(s.Exchange, s.BaseSymbol, expiryCode, strike)
}

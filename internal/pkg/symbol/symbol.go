package symbol

import "strings"

// Symbol is a base/quote crypto pair. The agent-facing form is "BTC/USD";
// the exchange form collapses the slash and maps USD onto the USDT quote
// Binance actually trades.
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	quote := s.Quote
	if quote == "USD" {
		quote = "USDT"
	}
	return s.Base + quote
}

var knownQuotes = []string{"USDT", "USDC", "USD", "BTC", "ETH", "BNB"}

// Parse accepts "BTC/USD", "btc/usdt" or a joined exchange symbol like
// "BTCUSDT". An unparseable input yields the zero Symbol.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
	}
	for _, quote := range knownQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Normalize returns the canonical internal form, or "" when unparseable.
func Normalize(s string) string {
	return Parse(s).Internal()
}

// Package currency holds the fixed table of ISO 4217 codes the bot can
// convert daily-deal prices into, together with their display symbols.
package currency

// symbols maps supported ISO 4217 codes to display symbols.
var symbols = map[string]string{
	"AUD": "A$",
	"BRL": "R$",
	"CAD": "CA$",
	"CNY": "CNY",
	"CZK": "Kč",
	"DKK": "kr",
	"EUR": "€",
	"HKD": "HK$",
	"HUF": "Ft",
	"ILS": "₪",
	"JPY": "¥",
	"MYR": "RM",
	"MXN": "MX$",
	"TWD": "NT$",
	"NZD": "NZ$",
	"NOK": "kr",
	"PHP": "₱",
	"PLN": "zł",
	"GBP": "£",
	"RUB": "₽",
	"SGD": "S$",
	"SEK": "kr",
	"CHF": "CHF",
	"THB": "฿",
	"USD": "$",
}

// IsSupported reports whether code is a known conversion currency.
// Codes are expected uppercase.
func IsSupported(code string) bool {
	_, ok := symbols[code]
	return ok
}

// Symbol returns the display symbol for a supported code, or the code
// itself when unknown.
func Symbol(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// DefaultList is the currency list assigned to a chat on first subscribe.
func DefaultList() []string {
	return []string{"USD", "EUR"}
}

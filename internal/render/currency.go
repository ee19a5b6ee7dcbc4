package render

import "strings"

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// CurrencySymbol maps an ISO 4217 code to the symbol printed after amounts.
// Unknown codes are printed as the code prefixed with a space, and the
// second return value is false.
func CurrencySymbol(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := currencySymbols[code]; ok {
		return s, true
	}
	return " " + code, false
}

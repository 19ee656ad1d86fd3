package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are carried as int64 minor units everywhere. Zero-decimal
// currencies have an exponent of 0 so their minor units equal whole units.
var currencyExponents = map[string]int32{
	"bif": 0, "clp": 0, "djf": 0, "gnf": 0, "jpy": 0, "kmf": 0, "krw": 0,
	"mga": 0, "pyg": 0, "rwf": 0, "ugx": 0, "vnd": 0, "vuv": 0, "xaf": 0,
	"xof": 0, "xpf": 0,
	"bhd": 3, "jod": 3, "kwd": 3, "omr": 3, "tnd": 3,
}

func CurrencyExponent(code string) int32 {
	if exp, ok := currencyExponents[strings.ToLower(code)]; ok {
		return exp
	}
	return 2
}

// ParseAmount converts a decimal string like "100.00" to minor units.
func ParseAmount(value string, currency string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount [%s]: %w", value, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount [%s] must not be negative", value)
	}
	minor := d.Shift(CurrencyExponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount [%s] has more precision than %s allows", value, strings.ToLower(currency))
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units back to the decimal string a gateway
// API expects, e.g. 10000 usd -> "100.00", 100 jpy -> "100".
func FormatAmount(minor int64, currency string) string {
	exp := CurrencyExponent(currency)
	return decimal.NewFromInt(minor).Shift(-exp).StringFixed(exp)
}

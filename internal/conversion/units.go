package conversion

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ten = big.NewInt(10)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// FormatUnits renders a fixed-point integer with the given number of decimals.
// Trailing zeros of the fraction are dropped but at least one fractional digit is
// kept, so 1e18 with 18 decimals is "1.0".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0.0"
	}
	if decimals < 0 {
		decimals = 0
	}
	sign := ""
	abs := new(big.Int).Set(value)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	integer, fraction := new(big.Int).QuoRem(abs, pow10(decimals), new(big.Int))

	frac := ""
	if decimals > 0 {
		frac = fraction.String()
		frac = strings.Repeat("0", decimals-len(frac)) + frac
		frac = strings.TrimRight(frac, "0")
	}
	if frac == "" {
		frac = "0"
	}
	return sign + integer.String() + "." + frac
}

// BigIntToString renders value with at most precision fractional digits. Excess digits
// are truncated, never rounded. A fraction that truncates to nothing is omitted.
func BigIntToString(value *big.Int, decimals int, precision int) string {
	if value == nil {
		return "0"
	}
	integer, fraction := splitUnits(value, decimals)
	fraction = truncateFraction(fraction, precision)
	if fraction == "" {
		return integer
	}
	return integer + "." + fraction
}

// BigIntToCommaString is BigIntToString with the integer part grouped by thousands.
func BigIntToCommaString(value *big.Int, precision int, decimals int) string {
	if value == nil {
		return "0"
	}
	integer, fraction := splitUnits(value, decimals)
	integer = IntStringToCommaString(integer)
	fraction = truncateFraction(fraction, precision)
	if fraction == "" {
		return integer
	}
	return integer + "." + fraction
}

func splitUnits(value *big.Int, decimals int) (string, string) {
	formatted := FormatUnits(value, decimals)
	parts := strings.SplitN(formatted, ".", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func truncateFraction(fraction string, precision int) string {
	if precision < 0 {
		precision = 0
	}
	if len(fraction) > precision {
		fraction = fraction[:precision]
	}
	return strings.TrimRight(fraction, "0")
}

// IntStringToCommaString groups the leading integer digits of s by thousands:
// "1234567" becomes "1,234,567".
func IntStringToCommaString(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	digits, rest := s[:end], s[end:]
	if len(digits) <= 3 {
		return sign + digits + rest
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String() + rest
}

// StringToBigInt parses a decimal display string into a fixed-point integer with the
// given decimals. Fractional digits beyond decimals are discarded. Thousands
// separators are accepted and an empty string parses to zero.
func StringToBigInt(s string, decimals int) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q, error: %w", s, err)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// TruncateBigInt drops the digits of value that a display string with the given
// precision cannot represent.
func TruncateBigInt(value *big.Int, decimals int, precision int) *big.Int {
	if value == nil {
		return big.NewInt(0)
	}
	if precision < 0 {
		precision = 0
	}
	if precision >= decimals {
		return new(big.Int).Set(value)
	}
	factor := pow10(decimals - precision)
	q := new(big.Int).Quo(value, factor)
	return q.Mul(q, factor)
}

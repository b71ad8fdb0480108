// Package normalize converts raw lending-protocol events into USD-denominated
// events that the aggregator can sum.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses a stringified number. Empty, non-numeric, NaN and
// infinite inputs yield (zero, false) instead of an error.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseOrDefault parses s as a float64, substituting 0 when it is malformed.
// The boolean reports whether the value was parsed.
func ParseOrDefault(s string) (float64, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Number is a numeric JSON field that upstream sources encode either as a
// string or as a bare number. Null and absent values decode to "".
type Number string

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*n = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number(str)
	default:
		*n = Number(s)
	}
	return nil
}

// Float64 parses the number, returning 0 when it is malformed
func (n Number) Float64() float64 {
	f, _ := ParseOrDefault(string(n))
	return f
}

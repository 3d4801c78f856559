package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a price in the catalog's minor currency unit.
// All cart arithmetic is done on Amount so totals never drift.
type Amount int64

// MaxAmount bounds any single decoded price. Larger values are rejected
// rather than converted, so a price times a cart quantity stays far from
// int64 overflow.
const MaxAmount Amount = 1_000_000_000_000

// ParseAmount converts a numeric string to an Amount.
// The product service stores prices as floats, so "1299.0" is 1299, but a
// fraction of a minor unit ("12.49") is malformed and rejected.
// Examples: "1299" → 1299, "1299.0" → 1299, "" → 0, "abc" → error
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not numeric", s)
	}
	return amountFromFloat(f)
}

func amountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > float64(MaxAmount) {
		return 0, fmt.Errorf("amount %v is out of range", f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("amount %v is not a whole number of minor units", f)
	}
	return Amount(f), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	v, err := amountFromFloat(f)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Times returns the amount multiplied by a non-negative quantity,
// saturating instead of wrapping on overflow.
func (a Amount) Times(quantity int) Amount {
	if a == 0 || quantity <= 0 {
		return 0
	}
	q := Amount(quantity)
	if a > math.MaxInt64/q {
		return math.MaxInt64
	}
	if a < math.MinInt64/q {
		return math.MinInt64
	}
	return a * q
}

// Plus adds b, saturating instead of wrapping on overflow.
func (a Amount) Plus(b Amount) Amount {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt64
	}
	if b < 0 && sum > a {
		return math.MinInt64
	}
	return sum
}

// FormatAmount renders an amount with a currency symbol and thousands separators.
// Examples: (1299, "₹") → "₹1,299", (-500, "$") → "-$500"
func FormatAmount(a Amount, symbol string) string {
	sign := ""
	n := int64(a)
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + symbol + b.String()
}

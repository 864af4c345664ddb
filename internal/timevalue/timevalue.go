// Package timevalue provides an exact rational representation of time in
// seconds and the parsers for user-supplied delay and duration expressions.
package timevalue

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidTimeFormat indicates a delay or duration string that does not
// match the accepted grammar. The wrapped message names the offending token.
var ErrInvalidTimeFormat = errors.New("invalid time format")

var (
	ratThousand = big.NewRat(1000, 1)
	ratSixty    = big.NewRat(60, 1)
)

// TimeValue is an exact number of seconds. The zero value is zero seconds.
// Values are immutable; all arithmetic returns new values.
type TimeValue struct {
	rat *big.Rat
}

// FromRat returns a TimeValue holding a copy of r seconds.
func FromRat(r *big.Rat) TimeValue {
	return TimeValue{rat: new(big.Rat).Set(r)}
}

// FromUnits returns the exact duration of units periods of 1/rate seconds.
func FromUnits(units int64, rate int64) TimeValue {
	return TimeValue{rat: big.NewRat(units, rate)}
}

// Zero returns a zero-second TimeValue.
func Zero() TimeValue {
	return TimeValue{}
}

// Rat returns a copy of the value as a big.Rat in seconds.
func (v TimeValue) Rat() *big.Rat {
	if v.rat == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(v.rat)
}

// Sign reports -1, 0, or 1 depending on the sign of the value.
func (v TimeValue) Sign() int {
	if v.rat == nil {
		return 0
	}
	return v.rat.Sign()
}

// IsZero reports whether the value is exactly zero seconds.
func (v TimeValue) IsZero() bool {
	return v.Sign() == 0
}

// Neg returns the negated value.
func (v TimeValue) Neg() TimeValue {
	return TimeValue{rat: new(big.Rat).Neg(v.Rat())}
}

// Abs returns the absolute value.
func (v TimeValue) Abs() TimeValue {
	return TimeValue{rat: new(big.Rat).Abs(v.Rat())}
}

// Cmp compares v against o, returning -1, 0, or 1.
func (v TimeValue) Cmp(o TimeValue) int {
	return v.Rat().Cmp(o.Rat())
}

// Sub returns v - o.
func (v TimeValue) Sub(o TimeValue) TimeValue {
	r := v.Rat()
	return TimeValue{rat: r.Sub(r, o.Rat())}
}

// Units converts the value to periods of 1/rate seconds, rounding half away
// from zero on the exact rational.
func (v TimeValue) Units(rate int64) int64 {
	r := v.Rat()
	r.Mul(r, new(big.Rat).SetInt64(rate))

	num := new(big.Int).Abs(r.Num())
	den := r.Denom()
	t := new(big.Int).Lsh(num, 1)
	t.Add(t, den)
	t.Quo(t, new(big.Int).Lsh(den, 1))
	if r.Sign() < 0 {
		t.Neg(t)
	}
	return t.Int64()
}

// Seconds returns the value as a float64 for display purposes only. It must
// never feed back into unit arithmetic.
func (v TimeValue) Seconds() float64 {
	f, _ := v.Rat().Float64()
	return f
}

// String formats the value as decimal seconds. The expansion is exact when
// the denominator permits a finite decimal; otherwise it carries nine
// fractional digits, which resolves below one sample period at any
// supported rate.
func (v TimeValue) String() string {
	r := v.Rat()
	if dec, ok := finiteDecimal(r); ok {
		return dec
	}
	return r.FloatString(9)
}

// Clock formats the value as H:MM:SS.mmm, milliseconds truncated.
func (v TimeValue) Clock() string {
	r := v.Rat()
	neg := r.Sign() < 0
	r.Abs(r)

	ms := new(big.Rat).Mul(r, ratThousand)
	totalMS := new(big.Int).Quo(ms.Num(), ms.Denom()).Int64()

	hours := totalMS / 3600000
	minutes := (totalMS % 3600000) / 60000
	seconds := (totalMS % 60000) / 1000
	millis := totalMS % 1000

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d:%02d:%02d.%03d", sign, hours, minutes, seconds, millis)
}

// ParseDelay parses a signed delay expression. The unit suffix (ms or s) is
// mandatory: a bare number is ambiguous and rejected.
func ParseDelay(s string) (TimeValue, error) {
	tok := strings.ToLower(strings.TrimSpace(s))
	if tok == "" {
		return TimeValue{}, fmt.Errorf("%w: empty delay", ErrInvalidTimeFormat)
	}

	body := tok
	neg := false
	switch body[0] {
	case '-':
		neg = true
		body = body[1:]
	case '+':
		body = body[1:]
	}

	var unit *big.Rat
	switch {
	case strings.HasSuffix(body, "ms"):
		unit = big.NewRat(1, 1000)
		body = strings.TrimSuffix(body, "ms")
	case strings.HasSuffix(body, "s"):
		unit = big.NewRat(1, 1)
		body = strings.TrimSuffix(body, "s")
	default:
		return TimeValue{}, fmt.Errorf("%w: delay %q is missing an ms or s unit", ErrInvalidTimeFormat, s)
	}

	mag, err := parseDecimal(body)
	if err != nil {
		return TimeValue{}, fmt.Errorf("%w: delay %q", ErrInvalidTimeFormat, s)
	}

	mag.Mul(mag, unit)
	if neg {
		mag.Neg(mag)
	}
	return TimeValue{rat: mag}, nil
}

// ParseDuration parses an absolute duration: H:MM:SS.fff (hours unlimited,
// minutes and seconds zero-padded to two digits and below 60) or a bare
// decimal number of seconds. No other forms are accepted.
func ParseDuration(s string) (TimeValue, error) {
	tok := strings.TrimSpace(s)
	if tok == "" {
		return TimeValue{}, fmt.Errorf("%w: empty duration", ErrInvalidTimeFormat)
	}

	if !strings.Contains(tok, ":") {
		secs, err := parseDecimal(tok)
		if err != nil {
			return TimeValue{}, fmt.Errorf("%w: duration %q", ErrInvalidTimeFormat, s)
		}
		return TimeValue{rat: secs}, nil
	}

	parts := strings.Split(tok, ":")
	if len(parts) != 3 {
		return TimeValue{}, fmt.Errorf("%w: duration %q", ErrInvalidTimeFormat, s)
	}

	total := new(big.Rat)
	hours, err := parseInteger(parts[0])
	if err != nil {
		return TimeValue{}, fmt.Errorf("%w: duration %q has a bad hour component", ErrInvalidTimeFormat, s)
	}
	total.Add(total, new(big.Rat).Mul(hours, big.NewRat(3600, 1)))

	minutes, err := parsePaddedComponent(parts[1])
	if err != nil {
		return TimeValue{}, fmt.Errorf("%w: duration %q has a bad minute component", ErrInvalidTimeFormat, s)
	}
	total.Add(total, new(big.Rat).Mul(minutes, ratSixty))

	seconds, err := parseDecimal(parts[2])
	if err != nil || len(parts[2]) < 2 || parts[2][0] == '.' ||
		seconds.Cmp(ratSixty) >= 0 || !twoDigitInteger(parts[2]) {
		return TimeValue{}, fmt.Errorf("%w: duration %q has a bad second component", ErrInvalidTimeFormat, s)
	}
	total.Add(total, seconds)

	return TimeValue{rat: total}, nil
}

// parsePaddedComponent parses a two-digit minute field below 60.
func parsePaddedComponent(s string) (*big.Rat, error) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return nil, fmt.Errorf("not a zero-padded component: %q", s)
	}
	v, err := parseInteger(s)
	if err != nil {
		return nil, err
	}
	if v.Cmp(ratSixty) >= 0 {
		return nil, fmt.Errorf("component out of range: %q", s)
	}
	return v, nil
}

// twoDigitInteger reports whether the integer part of a seconds field is
// exactly two digits.
func twoDigitInteger(s string) bool {
	intPart := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
	}
	return len(intPart) == 2
}

// parseInteger parses a non-negative decimal integer of any length.
func parseInteger(s string) (*big.Rat, error) {
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("non-numeric integer: %q", s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad integer: %q", s)
	}
	return new(big.Rat).SetInt(n), nil
}

// parseDecimal parses an unsigned decimal number with arbitrary fractional
// precision and no binary-floating intermediate. A dot requires a non-empty
// fractional part; at least one digit must be present overall.
func parseDecimal(s string) (*big.Rat, error) {
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if fracPart == "" {
			return nil, fmt.Errorf("empty fractional part: %q", s)
		}
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, fmt.Errorf("multiple dots: %q", s)
		}
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("empty number")
	}

	total := new(big.Rat)
	if intPart != "" {
		v, err := parseInteger(intPart)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	if fracPart != "" {
		num, err := parseInteger(fracPart)
		if err != nil {
			return nil, err
		}
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(fracPart))), nil)
		total.Add(total, num.Quo(num, new(big.Rat).SetInt(den)))
	}
	return total, nil
}

// finiteDecimal renders r as an exact decimal when its reduced denominator
// contains only factors of 2 and 5.
func finiteDecimal(r *big.Rat) (string, bool) {
	den := new(big.Int).Set(r.Denom())
	digits := 0
	two, five := big.NewInt(2), big.NewInt(5)
	mod := new(big.Int)
	for _, p := range []*big.Int{two, five} {
		for {
			q, m := new(big.Int).QuoRem(den, p, mod)
			if m.Sign() != 0 {
				break
			}
			den = q
			digits++
		}
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return "", false
	}
	if digits == 0 {
		return r.Num().String(), true
	}
	out := r.FloatString(digits)
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	return out, true
}

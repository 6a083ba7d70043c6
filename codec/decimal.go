package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAdjustedExponent is the smallest adjusted exponent of a normal decimal.
const MinAdjustedExponent = -999999

var (
	// ErrNotNumber is returned when a value cannot be read as a number.
	ErrNotNumber = errors.New("value is not a number")
	// ErrNotNormal is returned for values Fixed cannot quantize.
	ErrNotNormal = errors.New("invalid fixed precision number")
)

// numberLike covers encoding/json and go-json numbers.
type numberLike interface {
	String() string
	Float64() (float64, error)
	Int64() (int64, error)
}

// ToDecimal reads v as an exact decimal. Floats go through their shortest
// round-trip text.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, ErrNotNumber
		}
		return *n, nil
	case string:
		return parseDecimal(n)
	case []byte:
		return parseDecimal(string(n))
	case numberLike:
		return parseDecimal(n.String())
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case bool:
		if n {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	}
	if i, ok := AsInt64(v); ok {
		return decimal.NewFromInt(i), nil
	}
	if u, ok := v.(uint64); ok {
		return decimal.RequireFromString(strconv.FormatUint(u, 10)), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: %T", ErrNotNumber, v)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	return d, nil
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrNotNormal, f)
	}
	return decimal.NewFromFloat(f), nil
}

// IsNormal reports whether d is non-zero with an adjusted exponent inside the
// normal range.
func IsNormal(d decimal.Decimal) bool {
	if d.IsZero() {
		return false
	}
	adjusted := int(d.Exponent()) + d.NumDigits() - 1
	return adjusted >= MinAdjustedExponent
}

// FormatArbitrary renders v as exact decimal text.
func FormatArbitrary(v any) (string, error) {
	d, err := ToDecimal(v)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// FormatFixed quantizes v to places digits with round-half-to-even and
// renders it with exactly that many digits.
func FormatFixed(v any, places int) (string, error) {
	d, err := ToDecimal(v)
	if err != nil {
		return "", err
	}
	if !d.IsZero() && !IsNormal(d) {
		return "", ErrNotNormal
	}
	return d.RoundBank(int32(places)).StringFixed(int32(places)), nil
}

// FormatFloat renders f in its canonical round-trip form: positional notation
// with a ".0" for integral values when the decimal exponent is within
// [-4, 16), scientific notation otherwise, and nan/inf/-inf.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// AsInt64 converts Go integer kinds to int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

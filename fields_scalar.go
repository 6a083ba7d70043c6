package marshal

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reoring/marshal/codec"
)

// String formats values as text.
func String(opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: formatString}
}

// Integer formats values as int64. Its default is 0 unless overridden, and a
// nil value formats to that default.
func Integer(opts ...Option) *Raw {
	r := &Raw{opts: buildOptions(Options{Default: int64(0)}, opts)}
	r.format = func(v any) (any, error) {
		if v == nil {
			if isCallable(r.opts.Default) {
				return int64(0), nil
			}
			return r.opts.Default, nil
		}
		return formatInteger(v)
	}
	return r
}

// Boolean formats values by truthiness.
func Boolean(opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: func(v any) (any, error) { return truthy(v), nil }}
}

// Float formats values as the canonical text of an IEEE-754 double.
func Float(opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: formatFloat}
}

// Arbitrary formats values as exact decimal text.
func Arbitrary(opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: func(v any) (any, error) {
		s, err := codec.FormatArbitrary(v)
		if err != nil {
			return nil, formatFailure(CodeInvalidValue, err)
		}
		return s, nil
	}}
}

// Fixed formats values as decimal text with exactly decimals digits after the
// point, rounding half to even. Non-finite and subnormal values are rejected.
func Fixed(decimals int, opts ...Option) *Raw {
	if decimals < 0 {
		decimals = 0
	}
	return &Raw{opts: buildOptions(Options{}, opts), format: func(v any) (any, error) {
		s, err := codec.FormatFixed(v, decimals)
		switch {
		case errors.Is(err, codec.ErrNotNormal):
			return nil, formatFailure(CodePrecision, err)
		case err != nil:
			return nil, formatFailure(CodeInvalidValue, err)
		}
		return s, nil
	}}
}

// Price is Fixed under the name used for monetary amounts.
var Price = Fixed

// DefaultDecimals is the precision Fixed fields declared without one use.
const DefaultDecimals = 5

// Capitalize upper-cases the first character and lower-cases the rest.
func Capitalize(opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: func(v any) (any, error) {
		s, err := toText(v)
		if err != nil {
			return nil, formatFailure(CodeInvalidValue, err)
		}
		return capitalize(s), nil
	}}
}

func formatString(v any) (any, error) {
	s, err := toText(v)
	if err != nil {
		return nil, formatFailure(CodeInvalidValue, err)
	}
	return s, nil
}

func formatFloat(v any) (any, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, formatFailure(CodeInvalidValue, err)
	}
	return codec.FormatFloat(f), nil
}

func formatInteger(v any) (any, error) {
	if i, ok := codec.AsInt64(v); ok {
		return i, nil
	}
	switch n := v.(type) {
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		return truncate(n)
	case float32:
		return truncate(float64(n))
	case string:
		return parseInteger(n)
	case []byte:
		return parseInteger(string(n))
	case jsonNumber:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, formatFailure(CodeInvalidValue, err)
		}
		return truncate(f)
	case fmt.Stringer:
		return parseInteger(n.String())
	}
	return nil, formatFailure(CodeInvalidValue, fmt.Errorf("%w: %T", codec.ErrNotNumber, v))
}

// jsonNumber matches encoding/json and go-json numbers.
type jsonNumber interface {
	String() string
	Float64() (float64, error)
	Int64() (int64, error)
}

func isCallable(v any) bool {
	switch v.(type) {
	case DefaultFunc, func(Key, any, any) (any, error):
		return true
	}
	return false
}

func parseInteger(s string) (any, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(s, "_", "")), 10, 64)
	if err != nil {
		return nil, formatFailure(CodeInvalidValue, err)
	}
	return i, nil
}

func truncate(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, formatFailure(CodeInvalidValue, fmt.Errorf("cannot convert %v to integer", f))
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseFloat(n)
	case []byte:
		return parseFloat(string(n))
	case fmt.Stringer:
		return parseFloat(n.String())
	}
	if i, ok := codec.AsInt64(v); ok {
		return float64(i), nil
	}
	return 0, fmt.Errorf("%w: %T", codec.ErrNotNumber, v)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "+nan", "-nan":
		return math.NaN(), nil
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// toText converts v to a string. Floats use their canonical form.
func toText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		if !utf8.Valid(t) {
			return "", errors.New("bytes are not valid UTF-8")
		}
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case error:
		return t.Error(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return codec.FormatFloat(t), nil
	case float32:
		return codec.FormatFloat(float64(t)), nil
	}
	if i, ok := codec.AsInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return "", fmt.Errorf("cannot convert %T to text", v)
	}
	return fmt.Sprint(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case jsonNumber:
		f, err := t.Float64()
		return err != nil || f != 0
	}
	if i, ok := codec.AsInt64(v); ok {
		return i != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Uint, reflect.Uint64:
		return !rv.IsZero()
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Package codec holds the value conversions shared by the built-in fields:
// date-times and decimals.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrNotDateTime is returned when a value has no date-time capability.
var ErrNotDateTime = errors.New("value is not a date-time")

// UTCer is the date-time capability: anything that can report itself in UTC.
// time.Time and *time.Time satisfy it.
type UTCer interface {
	UTC() time.Time
}

// FormatUTC renders v as an RFC 3339 (ISO-8601) timestamp in UTC. Trailing
// zero fractions are trimmed.
func FormatUTC(v any) (string, error) {
	t, ok := v.(UTCer)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrNotDateTime, v)
	}
	if p, isPtr := v.(*time.Time); isPtr && p == nil {
		return "", fmt.Errorf("%w: nil *time.Time", ErrNotDateTime)
	}
	return t.UTC().Format(time.RFC3339Nano), nil
}

// ParseUTC parses free-form date-time text and converts it to UTC. Inputs
// without a zone are taken as UTC.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	// Accept RFC3339Nano first (the canonical output form), then anything dateparse knows.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ToUTC accepts either date-time values or text and returns the UTC instant.
func ToUTC(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return ParseUTC(t)
	case []byte:
		return ParseUTC(string(t))
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("%w: nil *time.Time", ErrNotDateTime)
		}
		return t.UTC(), nil
	case UTCer:
		return t.UTC(), nil
	case fmt.Stringer:
		return ParseUTC(t.String())
	}
	return time.Time{}, fmt.Errorf("%w: %T", ErrNotDateTime, v)
}

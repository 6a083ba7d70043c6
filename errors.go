package marshal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/marshal/i18n"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidValue = "invalid_value" // scalar conversion failed
	CodeInvalidType  = "invalid_type"  // value lacks a required capability (date-time, list)
	CodePrecision    = "precision"     // Fixed value not representable
	CodeRequired     = "required"
	CodeTemplate     = "template"
	CodeRoute        = "route"
	CodeCallback     = "callback" // default/validate callable failed
	// CodeContract marks schema-author mistakes (non-callable validate, bad list
	// element) as opposed to bad data.
	CodeContract = "contract"
)

// MarshallingError is the only error kind the engine returns deliberately.
type MarshallingError struct {
	Code    string
	Path    string // JSON Pointer of the failing field (for example: /owner/tags/2).
	Key     string // Key of the field that produced the error.
	Message string
	Cause   error // Optional: underlying error.
}

func (e *MarshallingError) Error() string {
	b := &strings.Builder{}
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *MarshallingError) Unwrap() error { return e.Cause }

// IsContract reports whether the error describes a schema declaration mistake.
func (e *MarshallingError) IsContract() bool { return e.Code == CodeContract }

// AsMarshallingError extracts a *MarshallingError from err using errors.As.
func AsMarshallingError(err error) (*MarshallingError, bool) {
	if err == nil {
		return nil, false
	}
	var me *MarshallingError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// newError builds an error whose message is looked up from the translator.
func newError(code string, key Key, cause error) *MarshallingError {
	ks := key.String()
	shown := ks
	if shown == "" {
		shown = "<value>"
	}
	return &MarshallingError{
		Code:    code,
		Key:     ks,
		Message: i18n.T(code, map[string]string{"key": shown}),
		Cause:   cause,
	}
}

// formatFailure is returned by Format implementations, which do not know the
// field key; finish re-keys it.
func formatFailure(code string, cause error) error { return newError(code, Key{}, cause) }

// rekey attaches key to errors produced without one.
func rekey(err error, key Key) error {
	me, ok := AsMarshallingError(err)
	if !ok || me.Key != "" {
		return err
	}
	return newError(me.Code, key, me.Cause)
}

// wrapError converts an arbitrary error into a *MarshallingError, leaving
// existing ones untouched.
func wrapError(code string, key Key, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsMarshallingError(err); ok {
		return err
	}
	return newError(code, key, err)
}

// withPath prefixes the error path with the given key segment.
func withPath(err error, key Key) error {
	me, ok := AsMarshallingError(err)
	if !ok {
		return err
	}
	seg := "/" + escapePointer(key.String())
	cp := *me
	cp.Path = seg + me.Path
	return &cp
}

func escapePointer(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

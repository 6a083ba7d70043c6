package marshal

import "fmt"

// Field describes how one value is read, defaulted, validated and formatted
// in each direction.
type Field interface {
	// Format converts a single present value into its canonical form.
	Format(v any) (any, error)
	// Output locates the value for key in obj (honoring Attribute) and
	// returns its external representation.
	Output(key Key, obj, full any) (any, error)
	// Input locates the value for key in obj and returns its internal
	// representation, enforcing InputRequired.
	Input(key Key, obj, full any) (any, error)
	// Attribute is the alternate source key used on output, or "".
	Attribute() string
}

// DefaultFunc computes a default for a missing value.
type DefaultFunc func(key Key, obj, full any) (any, error)

// ValidateFunc runs for a present value; its result replaces the value before
// formatting.
type ValidateFunc func(key Key, obj, full any) (any, error)

// FormatFunc converts a present value.
type FormatFunc func(v any) (any, error)

// Options carries the per-field settings. Default is either a static value or
// a callable (DefaultFunc or the equivalent func literal). Validate must be
// callable; anything else is a contract error.
type Options struct {
	Default       any
	Attribute     string
	InputRequired bool
	Validate      any
	AllowNull     bool // Nested only
}

// Option configures a field.
type Option func(*Options)

// Default sets a static default or a default function.
func Default(v any) Option { return func(o *Options) { o.Default = v } }

// Attribute reads the value from name instead of the schema key on output.
func Attribute(name string) Option { return func(o *Options) { o.Attribute = name } }

// InputRequired fails input marshaling when the value is missing.
func InputRequired() Option { return func(o *Options) { o.InputRequired = true } }

// Validate installs a transform/validation function.
func Validate(fn ValidateFunc) Option { return func(o *Options) { o.Validate = fn } }

// AllowNull makes Nested return nil for a missing value instead of a mapping of defaults.
func AllowNull() Option { return func(o *Options) { o.AllowNull = true } }

// WithOptions replaces all settings at once. A nil Default keeps the field's
// built-in default (0 for Integer).
func WithOptions(opts Options) Option {
	return func(o *Options) {
		def := o.Default
		*o = opts
		if o.Default == nil {
			o.Default = def
		}
	}
}

func buildOptions(base Options, opts []Option) Options {
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	return base
}

// Raw is the base field. It applies no formatting unless constructed with a
// FormatFunc, and implements the lookup/default/validate algorithm every
// built-in variant shares.
type Raw struct {
	opts   Options
	format FormatFunc
}

// Passthrough returns a field that copies values unchanged.
func Passthrough(opts ...Option) *Raw { return &Raw{opts: buildOptions(Options{}, opts)} }

// Custom returns a field using format for present values.
//
//	titleCase := marshal.Custom(func(v any) (any, error) {
//	    return strings.ToTitle(fmt.Sprint(v)), nil
//	})
func Custom(format FormatFunc, opts ...Option) *Raw {
	return &Raw{opts: buildOptions(Options{}, opts), format: format}
}

// Options returns a copy of the field settings.
func (r *Raw) Options() Options { return r.opts }

func (r *Raw) Attribute() string { return r.opts.Attribute }

func (r *Raw) Format(v any) (any, error) {
	if r.format == nil {
		return v, nil
	}
	return r.format(v)
}

func (r *Raw) Output(key Key, obj, full any) (any, error) {
	value := Lookup(r.sourceKey(key), obj, nil)
	if value == nil {
		return r.fallback(key, obj, full)
	}
	return r.finish(key, value, obj, full)
}

func (r *Raw) Input(key Key, obj, full any) (any, error) {
	value := Lookup(key, obj, nil)
	if value == nil {
		return r.inputFallback(key, obj, full)
	}
	return r.finish(key, value, obj, full)
}

// inputFallback enforces InputRequired before falling back to the default.
func (r *Raw) inputFallback(key Key, obj, full any) (any, error) {
	if r.opts.InputRequired {
		return nil, newError(CodeRequired, key, nil)
	}
	return r.fallback(key, obj, full)
}

// sourceKey resolves the output-direction lookup key.
func (r *Raw) sourceKey(key Key) Key {
	if r.opts.Attribute != "" {
		return Name(r.opts.Attribute)
	}
	return key
}

// fallback returns the default for a missing value, calling it when callable.
func (r *Raw) fallback(key Key, obj, full any) (any, error) {
	var (
		v   any
		err error
	)
	switch fn := r.opts.Default.(type) {
	case DefaultFunc:
		v, err = fn(key, obj, full)
	case func(Key, any, any) (any, error):
		v, err = fn(key, obj, full)
	default:
		return r.opts.Default, nil
	}
	if err != nil {
		return nil, wrapError(CodeCallback, key, err)
	}
	return v, nil
}

// finish applies validate then Format to a present value.
func (r *Raw) finish(key Key, value, obj, full any) (any, error) {
	value, err := r.validate(key, value, obj, full)
	if err != nil {
		return nil, err
	}
	out, err := r.Format(value)
	if err != nil {
		return nil, rekey(wrapError(CodeInvalidValue, key, err), key)
	}
	return out, nil
}

func (r *Raw) validate(key Key, value, obj, full any) (any, error) {
	if r.opts.Validate == nil {
		return value, nil
	}
	var (
		v   any
		err error
	)
	switch fn := r.opts.Validate.(type) {
	case ValidateFunc:
		if fn == nil {
			return value, nil
		}
		v, err = fn(key, obj, full)
	case func(Key, any, any) (any, error):
		if fn == nil {
			return value, nil
		}
		v, err = fn(key, obj, full)
	default:
		return nil, newError(CodeContract, key, fmt.Errorf("validate for field %s is not a function (%T)", key, fn))
	}
	if err != nil {
		return nil, wrapError(CodeCallback, key, err)
	}
	return v, nil
}

// checkContract reports declaration mistakes before any data is seen.
func (r *Raw) checkContract(key Key) error {
	switch fn := r.opts.Validate.(type) {
	case nil, ValidateFunc, func(Key, any, any) (any, error):
		return nil
	default:
		return newError(CodeContract, key, fmt.Errorf("validate for field %s is not a function (%T)", key, fn))
	}
}

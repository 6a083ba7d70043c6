package marshal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/reoring/marshal/codec"
)

// EndpointResolver builds the URL of a named endpoint from parameters.
type EndpointResolver interface {
	URLFor(endpoint string, params map[string]any) (string, error)
}

// EndpointResolverFunc adapts a function to EndpointResolver.
type EndpointResolverFunc func(endpoint string, params map[string]any) (string, error)

func (f EndpointResolverFunc) URLFor(endpoint string, params map[string]any) (string, error) {
	return f(endpoint, params)
}

// FormattedStringField renders a template from the fields of the object being
// marshaled. On input it behaves like Passthrough.
type FormattedStringField struct {
	*Raw
	source   string
	segments []segment
	err      error
}

type segment struct {
	text        string
	placeholder bool
}

// FormattedString returns a field rendering tpl, where {name} (or a dotted
// {a.b}) is replaced by the object's value and {{ / }} are literal braces.
//
//	marshal.FormattedString("{first} {last}")
func FormattedString(tpl string, opts ...Option) *FormattedStringField {
	segs, err := parseTemplate(tpl)
	return &FormattedStringField{
		Raw:      Passthrough(opts...),
		source:   tpl,
		segments: segs,
		err:      err,
	}
}

// Template returns the template text.
func (f *FormattedStringField) Template() string { return f.source }

func (f *FormattedStringField) Format(v any) (any, error) {
	if f.err != nil {
		return nil, formatFailure(CodeContract, f.err)
	}
	fields, err := FieldMap(v)
	if err != nil {
		return nil, formatFailure(CodeTemplate, err)
	}
	b := &strings.Builder{}
	for _, s := range f.segments {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		val := Lookup(Name(s.text), fields, errMissing)
		if val == errMissing {
			return nil, formatFailure(CodeTemplate, fmt.Errorf("missing placeholder %q", s.text))
		}
		if val == nil {
			continue
		}
		txt, err := toText(val)
		if err != nil {
			return nil, formatFailure(CodeTemplate, fmt.Errorf("placeholder %q: %w", s.text, err))
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func (f *FormattedStringField) Output(key Key, obj, full any) (any, error) {
	out, err := f.Format(obj)
	if err != nil {
		return nil, rekey(err, key)
	}
	return out, nil
}

func (f *FormattedStringField) checkContract(key Key) error {
	if f.err != nil {
		return newError(CodeContract, key, f.err)
	}
	return f.Raw.checkContract(key)
}

var errMissing = errors.New("missing")

func parseTemplate(tpl string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	for i := 0; i < len(tpl); i++ {
		c := tpl[i]
		switch {
		case c == '{' && i+1 < len(tpl) && tpl[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tpl) && tpl[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := strings.TrimSpace(tpl[i+1 : i+1+end])
			if name == "" || strings.ContainsAny(name, "{:!") {
				return nil, fmt.Errorf("unsupported placeholder %q", name)
			}
			if lit.Len() > 0 {
				segs = append(segs, segment{text: lit.String()})
				lit.Reset()
			}
			segs = append(segs, segment{text: name, placeholder: true})
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{text: lit.String()})
	}
	return segs, nil
}

// URLField renders the path of a named endpoint, taking its parameters from
// the fields of the object being marshaled. On input it behaves like
// Passthrough.
type URLField struct {
	*Raw
	endpoint string
	resolver EndpointResolver
}

// URL returns a field resolving endpoint through resolver. Scheme, host and
// query are stripped from the resolved URL.
func URL(endpoint string, resolver EndpointResolver, opts ...Option) *URLField {
	return &URLField{Raw: Passthrough(opts...), endpoint: endpoint, resolver: resolver}
}

// Endpoint returns the endpoint name.
func (f *URLField) Endpoint() string { return f.endpoint }

func (f *URLField) Format(v any) (any, error) {
	if f.resolver == nil {
		return nil, formatFailure(CodeContract, fmt.Errorf("no endpoint resolver for %q", f.endpoint))
	}
	params, err := FieldMap(v)
	if err != nil {
		return nil, formatFailure(CodeRoute, err)
	}
	raw, err := f.resolver.URLFor(f.endpoint, params)
	if err != nil {
		return nil, formatFailure(CodeRoute, err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, formatFailure(CodeRoute, err)
	}
	return u.EscapedPath(), nil
}

func (f *URLField) Output(key Key, obj, full any) (any, error) {
	out, err := f.Format(obj)
	if err != nil {
		return nil, rekey(err, key)
	}
	return out, nil
}

func (f *URLField) checkContract(key Key) error {
	if f.resolver == nil {
		return newError(CodeContract, key, fmt.Errorf("no endpoint resolver for %q", f.endpoint))
	}
	return f.Raw.checkContract(key)
}

// DateTimeField renders date-times as RFC 3339 in UTC and parses free-form
// date-time text on input.
type DateTimeField struct {
	*Raw
}

// DateTime returns a date-time field.
func DateTime(opts ...Option) *DateTimeField {
	d := &DateTimeField{Raw: Passthrough(opts...)}
	d.Raw.format = func(v any) (any, error) {
		s, err := codec.FormatUTC(v)
		if err != nil {
			return nil, formatFailure(CodeInvalidType, err)
		}
		return s, nil
	}
	return d
}

// Input parses text (or accepts a date-time) and returns a UTC time.Time.
// Empty text counts as missing.
func (d *DateTimeField) Input(key Key, obj, full any) (any, error) {
	value := Lookup(key, obj, nil)
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		value = nil
	}
	if value == nil {
		return d.inputFallback(key, obj, full)
	}
	value, err := d.validate(key, value, obj, full)
	if err != nil {
		return nil, err
	}
	t, err := codec.ToUTC(value)
	if err != nil {
		return nil, newError(CodeInvalidValue, key, err)
	}
	return t, nil
}

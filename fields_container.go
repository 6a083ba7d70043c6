package marshal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// schemaWrapper is implemented by fields that marshal a whole nested schema.
type schemaWrapper interface {
	NestedSchema() *Schema
}

// NestedField marshals the located value against a nested schema.
type NestedField struct {
	*Raw
	schema *Schema
}

// Nested returns a field marshaling its value against s in the current
// direction. With AllowNull a missing value stays nil instead of becoming a
// mapping of defaults.
func Nested(s *Schema, opts ...Option) *NestedField {
	return &NestedField{Raw: Passthrough(opts...), schema: s}
}

func (n *NestedField) NestedSchema() *Schema { return n.schema }

func (n *NestedField) Format(v any) (any, error) { return Marshal(v, v, n.schema, Output) }

func (n *NestedField) Output(key Key, obj, full any) (any, error) {
	value := Lookup(n.sourceKey(key), obj, nil)
	if n.opts.AllowNull && value == nil {
		return nil, nil
	}
	return Marshal(value, full, n.schema, Output)
}

func (n *NestedField) Input(key Key, obj, full any) (any, error) {
	value := Lookup(key, obj, nil)
	if value == nil {
		if n.opts.InputRequired {
			return nil, newError(CodeRequired, key, nil)
		}
		if n.opts.AllowNull {
			return nil, nil
		}
	}
	return Marshal(value, full, n.schema, Input)
}

func (n *NestedField) checkContract(key Key) error {
	if n.schema == nil {
		return newError(CodeContract, key, errors.New("nested schema is nil"))
	}
	return n.Raw.checkContract(key)
}

// ListField applies an element field to every position of a list.
type ListField struct {
	*Raw
	elem Field
	err  error
}

// List returns a list field. elem must be a Field or a constructor needing no
// arguments (marshal.Integer, a func() Field); anything else is a contract
// error reported by Schema.Build and on use.
func List(elem any, opts ...Option) *ListField {
	f, err := elementField(elem)
	return &ListField{Raw: Passthrough(opts...), elem: f, err: err}
}

// Element returns the element field.
func (l *ListField) Element() Field { return l.elem }

func elementField(elem any) (Field, error) {
	switch e := elem.(type) {
	case nil:
		return nil, errors.New("list element must be a Field, got nil")
	case Field:
		if isNilPointer(e) {
			return nil, fmt.Errorf("list element must be a Field, got nil %T", e)
		}
		return e, nil
	}
	if f, ok, err := construct(elem); ok {
		if err != nil {
			return nil, fmt.Errorf("list element: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("list element must be a Field or field constructor, got %T", elem)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func (l *ListField) checkContract(key Key) error {
	if l.err != nil {
		return newError(CodeContract, key, l.err)
	}
	if c, ok := l.elem.(contractChecker); ok {
		if err := c.checkContract(key); err != nil {
			return err
		}
	}
	return l.Raw.checkContract(key)
}

func (l *ListField) Format(v any) (any, error) {
	if l.err != nil {
		return nil, formatFailure(CodeContract, l.err)
	}
	if !isListLike(v) {
		out, err := l.elem.Format(v)
		if err != nil {
			return nil, wrapError(CodeInvalidValue, Key{}, err)
		}
		return []any{out}, nil
	}
	items := toSlice(v)
	out := make([]any, len(items))
	for i, item := range items {
		r, err := l.elem.Format(item)
		if err != nil {
			return nil, withPath(rekey(wrapError(CodeInvalidValue, Index(i), err), Index(i)), Index(i))
		}
		out[i] = r
	}
	return out, nil
}

func (l *ListField) Output(key Key, obj, full any) (any, error) {
	if l.err != nil {
		return nil, newError(CodeContract, key, l.err)
	}
	value := Lookup(l.sourceKey(key), obj, nil)
	if value == nil {
		return l.fallback(key, obj, full)
	}
	return l.each(key, value, full, Output)
}

func (l *ListField) Input(key Key, obj, full any) (any, error) {
	if l.err != nil {
		return nil, newError(CodeContract, key, l.err)
	}
	value := Lookup(key, obj, nil)
	if value == nil {
		return l.inputFallback(key, obj, full)
	}
	return l.each(key, value, full, Input)
}

// each maps the element accessor over a list-like value. Other values become
// a single element: marshaled against the element's schema when it wraps one,
// otherwise formatted by the element.
func (l *ListField) each(key Key, value, full any, dir Direction) ([]any, error) {
	if isListLike(value) {
		n := len(toSlice(value))
		out := make([]any, n)
		for i := 0; i < n; i++ {
			var (
				r   any
				err error
			)
			if dir == Input {
				r, err = l.elem.Input(Index(i), value, full)
			} else {
				r, err = l.elem.Output(Index(i), value, full)
			}
			if err != nil {
				return nil, withPath(wrapError(CodeInvalidValue, Index(i), err), Index(i))
			}
			out[i] = r
		}
		return out, nil
	}
	if sw, ok := l.elem.(schemaWrapper); ok {
		r, err := Marshal(value, full, sw.NestedSchema(), dir)
		if err != nil {
			return nil, err
		}
		return []any{r}, nil
	}
	r, err := l.elem.Format(value)
	if err != nil {
		return nil, rekey(wrapError(CodeInvalidValue, key, err), key)
	}
	return []any{r}, nil
}

// CommaSeparatedListField exchanges lists for comma separated text: lists are
// joined on output, text is split on input.
type CommaSeparatedListField struct {
	*ListField
}

// CommaSeparatedList returns a comma separated list field with the given
// element, accepted like List's.
func CommaSeparatedList(elem any, opts ...Option) *CommaSeparatedListField {
	return &CommaSeparatedListField{ListField: List(elem, opts...)}
}

func (c *CommaSeparatedListField) Format(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	items, err := c.ListField.Format(v)
	if err != nil {
		return nil, err
	}
	return joinText(items.([]any))
}

func (c *CommaSeparatedListField) Output(key Key, obj, full any) (any, error) {
	if c.err != nil {
		return nil, newError(CodeContract, key, c.err)
	}
	value := Lookup(c.sourceKey(key), obj, nil)
	if value == nil {
		return c.fallback(key, obj, full)
	}
	if isListLike(value) {
		items, err := c.each(key, value, full, Output)
		if err != nil {
			return nil, err
		}
		return c.join(key, items)
	}
	value, err := c.validate(key, value, obj, full)
	if err != nil {
		return nil, err
	}
	if sw, ok := c.elem.(schemaWrapper); ok {
		r, err := Marshal(value, full, sw.NestedSchema(), Output)
		if err != nil {
			return nil, err
		}
		return c.join(key, mappingValues(r))
	}
	r, err := c.elem.Format(value)
	if err != nil {
		return nil, rekey(wrapError(CodeInvalidValue, key, err), key)
	}
	return c.join(key, []any{r})
}

func (c *CommaSeparatedListField) Input(key Key, obj, full any) (any, error) {
	if c.err != nil {
		return nil, newError(CodeContract, key, c.err)
	}
	value := Lookup(key, obj, nil)
	if value == nil {
		return c.inputFallback(key, obj, full)
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	if s, ok := value.(string); ok {
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, ",")
		split := make([]any, len(parts))
		for i, p := range parts {
			split[i] = p
		}
		value = split
	}
	if isListLike(value) {
		return c.each(key, value, full, Input)
	}
	value, err := c.validate(key, value, obj, full)
	if err != nil {
		return nil, err
	}
	return c.each(key, value, full, Input)
}

func (c *CommaSeparatedListField) join(key Key, items []any) (any, error) {
	s, err := joinText(items)
	if err != nil {
		return nil, rekey(err, key)
	}
	return s, nil
}

func joinText(items []any) (any, error) {
	parts := make([]string, len(items))
	for i, it := range items {
		if it == nil {
			continue
		}
		s, err := toText(it)
		if err != nil {
			return nil, formatFailure(CodeInvalidValue, err)
		}
		parts[i] = s
	}
	return strings.Join(parts, ","), nil
}

// mappingValues returns the values of a marshaled mapping in key order.
func mappingValues(v any) []any {
	switch t := v.(type) {
	case *OrderedMap:
		out := make([]any, 0, t.Len())
		for _, k := range t.Keys() {
			val, _ := t.Value(k)
			out = append(out, val)
		}
		return out
	case []any:
		return t
	}
	return []any{v}
}

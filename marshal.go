package marshal

import (
	"errors"
)

// Direction selects which accessor the engine invokes.
type Direction bool

const (
	Output Direction = false // internal -> external (serialize)
	Input  Direction = true  // external -> internal (deserialize)
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Marshal transforms data according to s.
//
// List-like data yields a []any with one result per element; the enclosing
// list is the full data for the elements. Otherwise the entries of s are
// walked in declaration order. Output results are *OrderedMap values that
// keep that order; input results are map[string]any, keyed by the field's
// Attribute when it declares one.
//
// full is handed unchanged to default and validate functions. The first
// failing field aborts the call with a *MarshallingError whose Path locates
// it.
func Marshal(data, full any, s *Schema, dir Direction) (any, error) {
	if s == nil {
		return nil, newError(CodeContract, Key{}, errors.New("schema is nil"))
	}
	if isListLike(data) {
		items := toSlice(data)
		out := make([]any, len(items))
		for i, item := range items {
			r, err := Marshal(item, data, s, dir)
			if err != nil {
				return nil, withPath(err, Index(i))
			}
			out[i] = r
		}
		return out, nil
	}
	if dir == Input {
		return marshalInput(data, full, s)
	}
	return marshalOutput(data, full, s)
}

// MarshalOutput serializes data, using it as the full data.
func MarshalOutput(data any, s *Schema) (any, error) { return Marshal(data, data, s, Output) }

// MarshalInput deserializes data, using it as the full data.
func MarshalInput(data any, s *Schema) (any, error) { return Marshal(data, data, s, Input) }

func marshalOutput(data, full any, s *Schema) (*OrderedMap, error) {
	out := NewOrderedMap(len(s.entries))
	for _, e := range s.entries {
		v, err := entryValue(e, data, full, Output)
		if err != nil {
			return nil, withPath(err, Name(e.Key))
		}
		out.Set(e.Key, v)
	}
	return out, nil
}

func marshalInput(data, full any, s *Schema) (map[string]any, error) {
	out := make(map[string]any, len(s.entries))
	for _, e := range s.entries {
		v, err := entryValue(e, data, full, Input)
		if err != nil {
			return nil, withPath(err, Name(e.Key))
		}
		key := e.Key
		if e.Kind != EntrySchema {
			if attr := e.Field.Attribute(); attr != "" {
				key = attr
			}
		}
		out[key] = v
	}
	return out, nil
}

// entryValue marshals one entry. Errors from user-defined fields that are not
// a *MarshallingError are wrapped as invalid_value.
func entryValue(e Entry, data, full any, dir Direction) (any, error) {
	switch e.Kind {
	case EntrySchema:
		return Marshal(data, full, e.Schema, dir)
	case EntryField, EntryList:
		var (
			v   any
			err error
		)
		if dir == Input {
			v, err = e.Field.Input(Name(e.Key), data, full)
		} else {
			v, err = e.Field.Output(Name(e.Key), data, full)
		}
		if err != nil {
			return nil, wrapError(CodeInvalidValue, Name(e.Key), err)
		}
		return v, nil
	}
	return nil, newError(CodeContract, Name(e.Key), errors.New("unknown entry kind "+e.Kind.String()))
}

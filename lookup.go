package marshal

import (
	"reflect"
	"strconv"
	"strings"
)

// Key addresses a value inside a source object: either a (possibly dotted)
// name or a sequence position.
type Key struct {
	name    string
	index   int
	indexed bool
}

// Name returns a name key. Dots separate path segments.
func Name(name string) Key { return Key{name: name} }

// Index returns a sequence position key.
func Index(i int) Key { return Key{index: i, indexed: true} }

// IsIndex reports whether the key is a sequence position.
func (k Key) IsIndex() bool { return k.indexed }

// Int returns the position of an index key.
func (k Key) Int() int { return k.index }

func (k Key) String() string {
	if k.indexed {
		return strconv.Itoa(k.index)
	}
	return k.name
}

// Source abstracts over the objects values are looked up in. Get performs a
// single step, without path splitting.
type Source interface {
	Get(k Key) (any, bool)
}

// SourceOf picks the Source variant for v. Sources pass through unchanged;
// struct field keys are computed once per type and cached. Strings and byte
// slices are never treated as indexable.
func SourceOf(v any) Source {
	switch t := v.(type) {
	case nil:
		return plainSource{}
	case Source:
		return t
	case map[string]any:
		return mapSource(t)
	case []any:
		return seqSource(t)
	case string, []byte:
		return plainSource{}
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return plainSource{}
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return reflectMapSource{rv}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return plainSource{}
		}
		return reflectSeqSource{rv}
	case reflect.Struct:
		return structSource{val: rv, ptr: reflect.ValueOf(v)}
	}
	return plainSource{}
}

// Lookup pulls the value addressed by key out of src. Missing keys, and nil
// values in the middle of a dotted path, yield def; Lookup never fails.
func Lookup(key Key, src any, def any) any {
	if key.indexed {
		if v, ok := SourceOf(src).Get(key); ok {
			return v
		}
		return def
	}
	cur := src
	segs := strings.Split(key.name, ".")
	for i, seg := range segs {
		v, ok := SourceOf(cur).Get(Name(seg))
		if !ok {
			return def
		}
		if v == nil && i < len(segs)-1 {
			return def
		}
		cur = v
	}
	return cur
}

type plainSource struct{}

func (plainSource) Get(Key) (any, bool) { return nil, false }

type mapSource map[string]any

func (m mapSource) Get(k Key) (any, bool) {
	if k.indexed {
		return nil, false
	}
	v, ok := m[k.name]
	return v, ok
}

type seqSource []any

func (s seqSource) Get(k Key) (any, bool) {
	i, ok := position(k)
	if !ok || i < 0 || i >= len(s) {
		return nil, false
	}
	return s[i], true
}

type reflectSeqSource struct{ rv reflect.Value }

func (s reflectSeqSource) Get(k Key) (any, bool) {
	i, ok := position(k)
	if !ok || i < 0 || i >= s.rv.Len() {
		return nil, false
	}
	return s.rv.Index(i).Interface(), true
}

// position accepts index keys and numeric name segments ("items.0.name").
func position(k Key) (int, bool) {
	if k.indexed {
		return k.index, true
	}
	i, err := strconv.Atoi(k.name)
	return i, err == nil
}

type reflectMapSource struct{ rv reflect.Value }

func (s reflectMapSource) Get(k Key) (any, bool) {
	kt := s.rv.Type().Key()
	var mk reflect.Value
	switch {
	case kt.Kind() == reflect.String && !k.indexed:
		mk = reflect.ValueOf(k.name).Convert(kt)
	case k.indexed && kt.Kind() >= reflect.Int && kt.Kind() <= reflect.Int64:
		mk = reflect.ValueOf(k.index).Convert(kt)
	case kt.Kind() == reflect.Interface:
		if k.indexed {
			mk = reflect.ValueOf(k.index)
		} else {
			mk = reflect.ValueOf(k.name)
		}
		if !mk.Type().AssignableTo(kt) {
			return nil, false
		}
	default:
		return nil, false
	}
	v := s.rv.MapIndex(mk)
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

// structSource is the attribute-bearing variant: exported fields first, then
// zero-argument methods.
type structSource struct {
	val reflect.Value
	ptr reflect.Value
}

func (s structSource) Get(k Key) (any, bool) {
	if k.indexed {
		return nil, false
	}
	if f, ok := structField(s.val, k.name); ok {
		return fieldValue(f), true
	}
	if v, ok := methodValue(s.ptr, k.name); ok {
		return v, true
	}
	return nil, false
}

// fieldValue dereferences pointer fields. Nil pointers, maps, slices and
// interfaces read as nil so they count as missing.
func fieldValue(f reflect.Value) any {
	for f.Kind() == reflect.Pointer || f.Kind() == reflect.Interface {
		if f.IsNil() {
			return nil
		}
		f = f.Elem()
	}
	switch f.Kind() {
	case reflect.Map, reflect.Slice:
		if f.IsNil() {
			return nil
		}
	}
	return f.Interface()
}

// isListLike reports whether v is an ordered sequence (not a mapping, not text).
func isListLike(v any) bool {
	switch v.(type) {
	case nil, string, []byte:
		return false
	case []any:
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	k := rv.Kind()
	return (k == reflect.Slice || k == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8
}

// toSlice returns the elements of a list-like value.
func toSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

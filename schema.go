package marshal

import (
	"errors"
	"fmt"
	"reflect"
)

// EntryKind tags how the engine treats a schema entry.
type EntryKind int

const (
	EntryField  EntryKind = iota // a scalar or derived field
	EntrySchema                  // structural nesting: the same data against a nested schema
	EntryList                    // a list container field
)

func (k EntryKind) String() string {
	switch k {
	case EntryField:
		return "field"
	case EntrySchema:
		return "schema"
	case EntryList:
		return "list"
	}
	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// Entry is one normalized schema position.
type Entry struct {
	Key    string
	Kind   EntryKind
	Field  Field   // set for EntryField and EntryList
	Schema *Schema // set for EntrySchema
}

// Schema is an ordered, immutable mapping of keys to entries. It is safe for
// concurrent use.
type Schema struct {
	entries []Entry
	index   map[string]int
}

// Entries returns the entries in declaration order.
func (s *Schema) Entries() []Entry { return append([]Entry(nil), s.entries...) }

// Len returns the number of entries.
func (s *Schema) Len() int { return len(s.entries) }

// Keys returns the schema keys in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entry returns the entry declared for key.
func (s *Schema) Entry(key string) (Entry, bool) {
	i, ok := s.index[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// contractChecker is implemented by fields that can detect declaration
// mistakes before any data is marshaled.
type contractChecker interface {
	checkContract(key Key) error
}

// listContainer identifies list container fields.
type listContainer interface {
	Element() Field
}

// Builder declares a Schema.
type Builder struct {
	keys []string
	raw  map[string]any
}

// NewSchema starts a schema declaration.
//
//	s := marshal.NewSchema().
//	    Field("name", marshal.String()).
//	    Field("age", marshal.Integer()).
//	    Field("tags", marshal.CommaSeparatedList(marshal.String())).
//	    MustBuild()
func NewSchema() *Builder {
	return &Builder{raw: map[string]any{}}
}

// Field registers key. entry is a Field, a constructor needing no arguments
// (marshal.String, marshal.Integer or a func() Field; called once at Build),
// a *Schema or a *Builder for structural nesting. Registering a key
// again replaces its entry and keeps its position.
func (b *Builder) Field(key string, entry any) *Builder {
	if _, ok := b.raw[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.raw[key] = entry
	return b
}

// Nest registers a nested schema under key.
func (b *Builder) Nest(key string, s *Schema) *Builder { return b.Field(key, s) }

// Build normalizes every entry and reports contract errors.
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{
		entries: make([]Entry, 0, len(b.keys)),
		index:   make(map[string]int, len(b.keys)),
	}
	for _, k := range b.keys {
		e, err := normalize(k, b.raw[k])
		if err != nil {
			return nil, withPath(err, Name(k))
		}
		s.index[k] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s, nil
}

// MustBuild is like Build but panics on error. It suits package-level schema
// declarations.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func normalize(key string, entry any) (Entry, error) {
	switch e := entry.(type) {
	case *Schema:
		if e == nil {
			return Entry{}, newError(CodeContract, Name(key), fmt.Errorf("nested schema is nil"))
		}
		return Entry{Key: key, Kind: EntrySchema, Schema: e}, nil
	case *Builder:
		if e == nil {
			return Entry{}, newError(CodeContract, Name(key), fmt.Errorf("nested schema is nil"))
		}
		ns, err := e.Build()
		if err != nil {
			return Entry{}, err
		}
		return Entry{Key: key, Kind: EntrySchema, Schema: ns}, nil
	case Field:
		return fieldEntry(key, e)
	}
	if f, ok, err := construct(entry); ok {
		if err != nil {
			return Entry{}, newError(CodeContract, Name(key), err)
		}
		return fieldEntry(key, f)
	}
	return Entry{}, newError(CodeContract, Name(key), fmt.Errorf("entry is %T, want Field, field constructor or *Schema", entry))
}

var (
	fieldType  = reflect.TypeOf((*Field)(nil)).Elem()
	optionsArg = reflect.TypeOf([]Option(nil))
)

// construct instantiates a field from a constructor that needs no arguments:
// a func() Field, or a built-in such as String or Integer whose only parameter
// is ...Option. ok is false when v is not such a constructor.
func construct(v any) (f Field, ok bool, err error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return nil, false, nil
	}
	t := rv.Type()
	if t.NumOut() != 1 || !t.Out(0).Implements(fieldType) {
		return nil, false, nil
	}
	if t.NumIn() != 0 && !(t.NumIn() == 1 && t.IsVariadic() && t.In(0) == optionsArg) {
		return nil, false, nil
	}
	if rv.IsNil() {
		return nil, true, errors.New("field constructor is nil")
	}
	f, _ = rv.Call(nil)[0].Interface().(Field)
	if f == nil || isNilPointer(f) {
		return nil, true, errors.New("field constructor returned nil")
	}
	return f, true, nil
}

func fieldEntry(key string, f Field) (Entry, error) {
	if f == nil || isNilPointer(f) {
		return Entry{}, newError(CodeContract, Name(key), fmt.Errorf("field is nil"))
	}
	if c, ok := f.(contractChecker); ok {
		if err := c.checkContract(Name(key)); err != nil {
			return Entry{}, err
		}
	}
	kind := EntryField
	if _, ok := f.(listContainer); ok {
		kind = EntryList
	}
	return Entry{Key: key, Kind: kind, Field: f}, nil
}

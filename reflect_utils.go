package marshal

import (
	"reflect"
	"strings"
	"sync"
)

// ResolveStructKey applies the repository-wide rule to resolve a struct field's
// external key used by lookups and field maps.
// Priority: marshal:"name" > json tag name > field name; "-" disables the field.
func ResolveStructKey(sf reflect.StructField) string {
	if mt := sf.Tag.Get("marshal"); mt != "" {
		if i := strings.IndexByte(mt, ','); i >= 0 {
			mt = mt[:i]
		}
		if mt != "" {
			return mt
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			jt = jt[:i]
		}
		if jt != "" {
			return jt
		}
	}
	return sf.Name
}

// structKey is one addressable field of a struct type. index reaches it
// through embedded structs.
type structKey struct {
	key   string
	name  string
	index []int
}

// structKeyCache maps reflect.Type to []structKey.
var structKeyCache sync.Map

// structKeys lists the exported fields of struct type t by resolved key,
// promoting the fields of untagged embedded structs. Shallower fields win; at
// equal depth the first declared wins.
func structKeys(t reflect.Type) []structKey {
	if c, ok := structKeyCache.Load(t); ok {
		return c.([]structKey)
	}
	type level struct {
		t     reflect.Type
		index []int
	}
	var (
		keys    []structKey
		seen    = map[string]bool{}
		visited = map[reflect.Type]bool{}
		current = []level{{t: t}}
	)
	for len(current) > 0 {
		var next []level
		var found []structKey
		for _, lv := range current {
			if visited[lv.t] {
				continue
			}
			visited[lv.t] = true
			for i := 0; i < lv.t.NumField(); i++ {
				sf := lv.t.Field(i)
				index := append(append([]int(nil), lv.index...), i)
				key := ResolveStructKey(sf)
				if key == "-" {
					continue
				}
				if sf.Anonymous && key == sf.Name {
					et := sf.Type
					if et.Kind() == reflect.Pointer {
						et = et.Elem()
					}
					if et.Kind() == reflect.Struct {
						next = append(next, level{t: et, index: index})
						continue
					}
				}
				if !sf.IsExported() {
					continue
				}
				found = append(found, structKey{key: key, name: sf.Name, index: index})
			}
		}
		for _, k := range found {
			if seen[k.key] {
				continue
			}
			seen[k.key] = true
			keys = append(keys, k)
		}
		current = next
	}
	structKeyCache.Store(t, keys)
	return keys
}

// structField finds the field of struct value v addressed by name, first by
// resolved key and then by a case-insensitive match on the Go name. Fields
// promoted through a nil embedded pointer are missing.
func structField(v reflect.Value, name string) (reflect.Value, bool) {
	keys := structKeys(v.Type())
	match := -1
	for i, k := range keys {
		if k.key == name {
			match = i
			break
		}
		if match < 0 && strings.EqualFold(k.name, name) {
			match = i
		}
	}
	if match < 0 {
		return reflect.Value{}, false
	}
	f, err := v.FieldByIndexErr(keys[match].index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

// methodValue calls a zero-argument, single-result method named like name.
func methodValue(v reflect.Value, name string) (any, bool) {
	if name == "" {
		return nil, false
	}
	m := v.MethodByName(strings.ToUpper(name[:1]) + name[1:])
	if !m.IsValid() {
		return nil, false
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 {
		return nil, false
	}
	return m.Call(nil)[0].Interface(), true
}

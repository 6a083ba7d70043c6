package marshal

import (
	"errors"
	"fmt"
	"reflect"
)

// Marshallable lets a type supply the field map used by FormattedString and
// URL instead of having its struct fields read.
type Marshallable interface {
	MarshalFields() map[string]any
}

// FieldMap returns the name -> value mapping of obj. Maps are used as-is.
// Structs contribute one level of fields under the keys Lookup resolves
// (marshal tag, json tag, then name), embedded fields included; field values
// such as time.Time or nested structs are kept as they are.
func FieldMap(obj any) (map[string]any, error) {
	switch t := obj.(type) {
	case nil:
		return nil, errors.New("cannot read fields of nil")
	case map[string]any:
		return t, nil
	case *OrderedMap:
		return t.Map(), nil
	case Marshallable:
		return t.MarshalFields(), nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.New("cannot read fields of nil")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot read fields of %T: keys are not strings", obj)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		keys := structKeys(rv.Type())
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			f, err := rv.FieldByIndexErr(k.index)
			if err != nil {
				continue
			}
			out[k.key] = fieldValue(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot read fields of %T", obj)
}

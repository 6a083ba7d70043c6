package marshal

import (
	"bytes"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// OrderedMap is the output-direction result: a mapping that remembers
// insertion order. JSON and YAML encoding honor that order.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty map sized for capacity keys.
func NewOrderedMap(capacity int) *OrderedMap {
	return &OrderedMap{keys: make([]string, 0, capacity), values: make(map[string]any, capacity)}
}

// Set stores v under k. New keys are appended; existing keys keep their position.
func (m *OrderedMap) Set(k string, v any) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Value returns the value stored under k.
func (m *OrderedMap) Value(k string) (any, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Get implements Source so marshaled results can be marshaled again.
func (m *OrderedMap) Get(k Key) (any, bool) {
	if k.IsIndex() {
		return nil, false
	}
	return m.Value(k.String())
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string { return append([]string(nil), m.keys...) }

// Len returns the number of keys.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Map returns an unordered copy, converting nested ordered maps as well.
func (m *OrderedMap) Map() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = Plain(m.values[k])
	}
	return out
}

// Plain converts ordered maps inside v (recursively, through slices) into
// map[string]any.
func Plain(v any) any {
	switch t := v.(type) {
	case *OrderedMap:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Plain(t[i])
		}
		return out
	}
	return v
}

func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		kn := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		vn := &yaml.Node{}
		if err := vn.Encode(m.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, kn, vn)
	}
	return node, nil
}

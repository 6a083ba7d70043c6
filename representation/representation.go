// Package representation holds the body codecs used at the HTTP boundary and
// picks one per request by content type or Accept header.
package representation

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/munnerz/goautoneg"
	"gopkg.in/yaml.v3"

	"github.com/reoring/marshal"
)

// Representation converts between marshaled values and wire bytes.
type Representation interface {
	// ContentType is the media type without parameters, e.g. "application/json".
	ContentType() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// JSON encodes with goccy/go-json. Debug output is indented by four spaces,
// has sorted keys and ends with a newline. With RejectDuplicateKeys, Decode
// fails on objects that repeat a key instead of keeping the last value.
type JSON struct {
	Debug               bool
	RejectDuplicateKeys bool
}

func (JSON) ContentType() string { return "application/json" }

func (j JSON) Encode(v any) ([]byte, error) {
	if !j.Debug {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("representation: json encode: %w", err)
		}
		return b, nil
	}
	b, err := json.MarshalIndent(marshal.Plain(v), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("representation: json encode: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode keeps numbers as json.Number so integers and decimals survive intact.
func (j JSON) Decode(b []byte) (any, error) {
	if j.RejectDuplicateKeys {
		if err := checkDuplicateKeys(b); err != nil {
			return nil, fmt.Errorf("representation: json decode: %w", err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("representation: json decode: %w", err)
	}
	return v, nil
}

// YAML encodes with gopkg.in/yaml.v3. Decoded mappings are map[string]any.
type YAML struct{}

func (YAML) ContentType() string { return "application/yaml" }

func (YAML) Encode(v any) ([]byte, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("representation: yaml encode: %w", err)
	}
	return b, nil
}

func (YAML) Decode(b []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("representation: yaml decode: %w", err)
	}
	return normalizeYAML(v), nil
}

// normalizeYAML converts map[any]any (non-string keys) into map[string]any
// recursively.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = normalizeYAML(t[i])
		}
		return arr
	default:
		return v
	}
}

// HTML serves marshaled mappings (or lists of mappings) as JSON text so they
// can be viewed from a browser; anything else is written as text. Decode
// returns the body as a string.
type HTML struct{}

func (HTML) ContentType() string { return "text/html" }

func (HTML) Encode(v any) ([]byte, error) {
	if isMapping(v) {
		return JSON{}.Encode(v)
	}
	if l, ok := v.([]any); ok && len(l) > 0 && isMapping(l[0]) {
		return JSON{}.Encode(v)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	}
	return []byte(fmt.Sprint(v)), nil
}

func (HTML) Decode(b []byte) (any, error) { return string(b), nil }

func isMapping(v any) bool {
	switch v.(type) {
	case *marshal.OrderedMap, map[string]any:
		return true
	}
	return false
}

// Set is a registry of representations keyed by content type. The first
// representation added is the default. A Set is safe for concurrent use.
type Set struct {
	mu     sync.RWMutex
	order  []string
	byType map[string]Representation
}

// NewSet returns a set holding reps; reps[0] becomes the default.
func NewSet(reps ...Representation) *Set {
	s := &Set{byType: map[string]Representation{}}
	for _, r := range reps {
		s.Add(r)
	}
	return s
}

// DefaultSet returns JSON (default), YAML and HTML.
func DefaultSet() *Set { return NewSet(JSON{}, YAML{}, HTML{}) }

// Add registers r, replacing any representation with the same content type.
func (s *Set) Add(r Representation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct := r.ContentType()
	if _, ok := s.byType[ct]; !ok {
		s.order = append(s.order, ct)
	}
	s.byType[ct] = r
}

// Default returns the first registered representation, or JSON{} for an
// empty set.
func (s *Set) Default() Representation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return JSON{}
	}
	return s.byType[s.order[0]]
}

// ForContentType looks up the representation for a Content-Type header value.
// Parameters such as charset are ignored; an empty value selects the default.
func (s *Set) ForContentType(contentType string) (Representation, bool) {
	if strings.TrimSpace(contentType) == "" {
		return s.Default(), true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byType[mt]
	return r, ok
}

// Negotiate picks the representation best matching an Accept header. An
// empty header or no acceptable match yields the default.
func (s *Set) Negotiate(accept string) Representation {
	if strings.TrimSpace(accept) == "" {
		return s.Default()
	}
	s.mu.RLock()
	alternatives := append([]string(nil), s.order...)
	s.mu.RUnlock()
	ct := goautoneg.Negotiate(accept, alternatives)
	if ct == "" {
		return s.Default()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byType[ct]
}

// Write encodes data with rep and writes it with the status code. Extra
// headers are added before Content-Type is set. Nothing is written when
// encoding fails.
func Write(w http.ResponseWriter, rep Representation, data any, code int, header http.Header) error {
	b, err := rep.Encode(data)
	if err != nil {
		return err
	}
	h := w.Header()
	for k, vs := range header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Content-Type", rep.ContentType())
	w.WriteHeader(code)
	_, err = w.Write(b)
	return err
}

package representation_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/marshal"
	"github.com/reoring/marshal/representation"
)

func ordered(kv ...any) *marshal.OrderedMap {
	m := marshal.NewOrderedMap(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func TestJSON_EncodeKeepsOrder(t *testing.T) {
	b, err := representation.JSON{}.Encode(ordered("b", 1, "a", ordered("z", true, "y", nil)))
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"z":true,"y":null}}`, string(b))
}

func TestJSON_DebugSortsAndIndents(t *testing.T) {
	b, err := representation.JSON{Debug: true}.Encode(ordered("b", 1, "a", 2))
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 2,\n    \"b\": 1\n}\n", string(b))
}

func TestJSON_DecodeKeepsNumbers(t *testing.T) {
	v, err := representation.JSON{}.Decode([]byte(`{"price":"1.10","qty":12345678901234567890,"ok":true}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), m["qty"])
	assert.Equal(t, "1.10", m["price"])
	assert.Equal(t, true, m["ok"])

	_, err = representation.JSON{}.Decode([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestJSON_RejectDuplicateKeys(t *testing.T) {
	doc := []byte(`{"a": 1, "list": [{"k": 1}, {"k": 2, "x/y": 0, "x/y": 1}]}`)

	v, err := representation.JSON{}.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), v.(map[string]any)["a"])

	_, err = representation.JSON{RejectDuplicateKeys: true}.Decode(doc)
	require.ErrorIs(t, err, representation.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "at /list/1/x~1y")

	v, err = representation.JSON{RejectDuplicateKeys: true}.Decode([]byte(`{"a": {"k": 1}, "b": {"k": 2}, "c": [1, [2, 3]]}`))
	require.NoError(t, err)
	assert.Len(t, v, 3)

	_, err = representation.JSON{RejectDuplicateKeys: true}.Decode([]byte(`{"a": [{"k": 1}], "a": 2}`))
	require.ErrorIs(t, err, representation.ErrDuplicateKey)
	assert.Contains(t, err.Error(), `"a" at /a`)

	_, err = representation.JSON{RejectDuplicateKeys: true}.Decode([]byte(`{"a":`))
	require.Error(t, err)
}

func TestYAML_RoundTrip(t *testing.T) {
	b, err := representation.YAML{}.Encode(ordered("name", "ann", "tags", []any{"x", "y"}))
	require.NoError(t, err)
	assert.Equal(t, "name: ann\ntags:\n    - x\n    - y\n", string(b))

	v, err := representation.YAML{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ann", "tags": []any{"x", "y"}}, v)
}

func TestYAML_DecodeNormalizesKeys(t *testing.T) {
	v, err := representation.YAML{}.Decode([]byte("outer:\n  1: one\n  true: yes\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"outer": map[string]any{"1": "one", "true": "yes"}}, v)
}

func TestHTML_Encode(t *testing.T) {
	b, err := representation.HTML{}.Encode(ordered("a", 1))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	b, err = representation.HTML{}.Encode([]any{map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, string(b))

	b, err = representation.HTML{}.Encode("<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(b))

	b, err = representation.HTML{}.Encode([]any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "[1 2]", string(b))

	v, err := representation.HTML{}.Decode([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", v)
}

func TestSet_Negotiate(t *testing.T) {
	s := representation.DefaultSet()
	cases := map[string]string{
		"":                                "application/json",
		"*/*":                             "application/json",
		"application/yaml":                "application/yaml",
		"text/html,application/xhtml+xml": "text/html",
		"application/json;q=0.5, application/yaml;q=0.9": "application/yaml",
		"image/png": "application/json",
	}
	for accept, want := range cases {
		assert.Equal(t, want, s.Negotiate(accept).ContentType(), "Accept: %q", accept)
	}
}

func TestSet_ForContentType(t *testing.T) {
	s := representation.DefaultSet()

	r, ok := s.ForContentType("application/json; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, "application/json", r.ContentType())

	r, ok = s.ForContentType("")
	require.True(t, ok)
	assert.Equal(t, "application/json", r.ContentType())

	_, ok = s.ForContentType("application/xml")
	assert.False(t, ok)
	_, ok = s.ForContentType(";;")
	assert.False(t, ok)

	s.Add(representation.JSON{Debug: true})
	r, _ = s.ForContentType("application/json")
	assert.Equal(t, representation.JSON{Debug: true}, r)
	assert.Equal(t, representation.JSON{Debug: true}, s.Default())
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	header := http.Header{"X-Trace": []string{"abc"}, "Content-Type": []string{"text/plain"}}

	err := representation.Write(rec, representation.JSON{}, ordered("ok", true), http.StatusCreated, header)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "abc", rec.Header().Get("X-Trace"))
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}

func TestWrite_EncodeFailureWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := representation.Write(rec, representation.JSON{}, make(chan int), http.StatusOK, nil)
	require.Error(t, err)
	assert.Empty(t, rec.Body.String())
	assert.False(t, rec.Flushed)
}

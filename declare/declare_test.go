package declare_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/marshal"
	"github.com/reoring/marshal/declare"
)

const orderDoc = `
id: integer
customer:
  type: capitalize
  attribute: customer_name
  required: true
total:
  type: price
  decimals: 2
status:
  type: string
  default: pending
tags:
  type: csv
  of: string
lines:
  type: list
  of:
    sku: string
    qty:
      type: integer
      default: 1
shipping:
  type: nested
  allow_null: true
  fields:
    city: capitalize
summary:
  label:
    type: formatted_string
    template: "#{id} for {customer_name}"
  href:
    type: url
    endpoint: order
`

func orderResolver() marshal.EndpointResolver {
	return marshal.EndpointResolverFunc(func(endpoint string, params map[string]any) (string, error) {
		return "https://shop.example.com/" + endpoint + "s/" + spew.Sprint(params["id"]), nil
	})
}

func TestParse_Output(t *testing.T) {
	s, err := declare.Parse([]byte(orderDoc), declare.WithResolver(orderResolver()))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer", "total", "status", "tags", "lines", "shipping", "summary"}, s.Keys())

	data := map[string]any{
		"id":            12,
		"customer_name": "aDA",
		"total":         "10.005",
		"tags":          []any{"gift", "rush"},
		"lines":         []any{map[string]any{"sku": "A-1"}, map[string]any{"sku": "B-2", "qty": 3}},
	}
	out, err := marshal.MarshalOutput(data, s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":       int64(12),
		"customer": "Ada",
		"total":    "10.00",
		"status":   "pending",
		"tags":     "gift,rush",
		"lines": []any{
			map[string]any{"sku": "A-1", "qty": 1},
			map[string]any{"sku": "B-2", "qty": int64(3)},
		},
		"shipping": nil,
		"summary":  map[string]any{"label": "#12 for aDA", "href": "/orders/12"},
	}, out.(*marshal.OrderedMap).Map(), spew.Sdump(out))
}

func TestParse_Input(t *testing.T) {
	s, err := declare.Parse([]byte(orderDoc), declare.WithResolver(orderResolver()))
	require.NoError(t, err)

	in, err := marshal.MarshalInput(map[string]any{"customer": "bob", "tags": "a,b", "id": "3"}, s)
	require.NoError(t, err)
	m := in.(map[string]any)
	assert.Equal(t, "Bob", m["customer_name"])
	assert.Equal(t, int64(3), m["id"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])

	_, err = marshal.MarshalInput(map[string]any{}, s)
	me, ok := marshal.AsMarshallingError(err)
	require.True(t, ok)
	assert.Equal(t, marshal.CodeRequired, me.Code)
	assert.Equal(t, "/customer", me.Path)
}

func TestParse_Validators(t *testing.T) {
	positive := func(key marshal.Key, obj, full any) (any, error) {
		v := marshal.Lookup(key, obj, nil)
		if n, ok := v.(int); ok && n <= 0 {
			return nil, errors.New("must be positive")
		}
		return v, nil
	}
	s, err := declare.Parse([]byte("n:\n  type: integer\n  validate: positive\n"), declare.WithValidator("positive", positive))
	require.NoError(t, err)

	_, err = marshal.MarshalOutput(map[string]any{"n": -1}, s)
	me, ok := marshal.AsMarshallingError(err)
	require.True(t, ok)
	assert.Equal(t, marshal.CodeCallback, me.Code)
}

func TestParse_ContractErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		path string
	}{
		"unknown type":           {"a: nope\n", "/a"},
		"unknown option":         {"a:\n  type: string\n  colour: red\n", "/a"},
		"unknown validator":      {"a:\n  type: string\n  validate: missing\n", "/a"},
		"missing template":       {"a:\n  type: formatted_string\n", "/a"},
		"bad template":           {"m:\n  a:\n    type: formatted_string\n    template: \"{x\"\n", "/m/a"},
		"url without resolver":   {"a:\n  type: url\n  endpoint: x\n", "/a"},
		"list without element":   {"a:\n  type: list\n", "/a"},
		"bad list element":       {"a:\n  type: list\n  of: nope\n", "/a/of"},
		"nested without fields":  {"a:\n  type: nested\n", "/a"},
		"sequence entry":         {"a: [1, 2]\n", "/a"},
		"root is not a mapping":  {"- a\n", ""},
		"empty entry":            {"a:\n", "/a"},
		"nested field bad type":  {"a:\n  type: nested\n  fields:\n    b: nope\n", "/a/fields/b"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := declare.Parse([]byte(tc.doc), declare.WithValidator("unused", nil))
			me, ok := marshal.AsMarshallingError(err)
			require.True(t, ok, "want *MarshallingError, got %v", err)
			assert.Equal(t, marshal.CodeContract, me.Code)
			assert.Equal(t, tc.path, me.Path)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := declare.Parse([]byte("a: [\n"))
	require.Error(t, err)
	_, ok := marshal.AsMarshallingError(err)
	assert.False(t, ok)

	_, err = declare.Parse(nil)
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: string\nwhen: date_time\n"), 0o600))

	s, err := declare.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "when"}, s.Keys())

	_, err = declare.ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	types := declare.Types()
	assert.Contains(t, types, "comma_separated_list")
	assert.Contains(t, types, "integer")
	assert.IsIncreasing(t, types)
}

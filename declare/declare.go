// Package declare builds schemas from YAML declaration files.
//
// Every key of a mapping becomes a schema key, in document order. A scalar
// value names a field type; a mapping with a "type" key is a field
// declaration; any other mapping nests a schema structurally.
//
//	name: capitalize
//	age:
//	  type: integer
//	  required: true
//	price:
//	  type: fixed
//	  decimals: 2
//	tags:
//	  type: comma_separated_list
//	  of: string
//	owner:
//	  type: nested
//	  allow_null: true
//	  fields:
//	    login: string
//	meta:
//	  label:
//	    type: formatted_string
//	    template: "{name} ({age})"
package declare

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/marshal"
	"github.com/reoring/marshal/i18n"
)

// Option configures Parse.
type Option func(*parser)

// WithResolver supplies the endpoint resolver url fields are built with.
func WithResolver(r marshal.EndpointResolver) Option {
	return func(p *parser) { p.resolver = r }
}

// WithValidator registers fn under name for use in "validate:" entries.
func WithValidator(name string, fn marshal.ValidateFunc) Option {
	return func(p *parser) { p.validators[name] = fn }
}

type parser struct {
	resolver   marshal.EndpointResolver
	validators map[string]marshal.ValidateFunc
}

// Parse builds a schema from a YAML document. Declaration mistakes are
// returned as *marshal.MarshallingError with CodeContract and the JSON
// Pointer of the offending key.
func Parse(doc []byte, opts ...Option) (*marshal.Schema, error) {
	p := &parser{validators: map[string]marshal.ValidateFunc{}}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("declare: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, contractError("", "empty schema document")
	}
	return p.schema(root.Content[0], "")
}

// ParseFile reads and parses the declaration at path.
func ParseFile(path string, opts ...Option) (*marshal.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("declare: %w", err)
	}
	return Parse(b, opts...)
}

// Types returns the field type names a declaration may use.
func Types() []string {
	names := make([]string, 0, len(scalarTypes)+len(structuredTypes))
	for n := range scalarTypes {
		names = append(names, n)
	}
	names = append(names, structuredTypes...)
	sort.Strings(names)
	return names
}

var scalarTypes = map[string]func(...marshal.Option) marshal.Field{
	"raw":         func(o ...marshal.Option) marshal.Field { return marshal.Passthrough(o...) },
	"passthrough": func(o ...marshal.Option) marshal.Field { return marshal.Passthrough(o...) },
	"string":      func(o ...marshal.Option) marshal.Field { return marshal.String(o...) },
	"integer":     func(o ...marshal.Option) marshal.Field { return marshal.Integer(o...) },
	"boolean":     func(o ...marshal.Option) marshal.Field { return marshal.Boolean(o...) },
	"float":       func(o ...marshal.Option) marshal.Field { return marshal.Float(o...) },
	"arbitrary":   func(o ...marshal.Option) marshal.Field { return marshal.Arbitrary(o...) },
	"capitalize":  func(o ...marshal.Option) marshal.Field { return marshal.Capitalize(o...) },
	"datetime":    func(o ...marshal.Option) marshal.Field { return marshal.DateTime(o...) },
}

var structuredTypes = []string{"fixed", "price", "formatted_string", "url", "nested", "list", "comma_separated_list"}

type fieldSpec struct {
	Type      string    `yaml:"type"`
	Default   yaml.Node `yaml:"default"`
	Attribute string    `yaml:"attribute"`
	Required  bool      `yaml:"required"`
	Decimals  *int      `yaml:"decimals"`
	Template  string    `yaml:"template"`
	Endpoint  string    `yaml:"endpoint"`
	AllowNull bool      `yaml:"allow_null"`
	Fields    yaml.Node `yaml:"fields"`
	Of        yaml.Node `yaml:"of"`
	Validate  string    `yaml:"validate"`
}

var specKeys = map[string]bool{
	"type": true, "default": true, "attribute": true, "required": true, "decimals": true,
	"template": true, "endpoint": true, "allow_null": true, "fields": true, "of": true, "validate": true,
}

func (p *parser) schema(n *yaml.Node, path string) (*marshal.Schema, error) {
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		return nil, contractError(path, "schema must be a mapping, got %s", kindName(n))
	}
	b := marshal.NewSchema()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		entry, err := p.entry(n.Content[i+1], path+"/"+escape(key))
		if err != nil {
			return nil, err
		}
		b.Field(key, entry)
	}
	s, err := b.Build()
	if err != nil {
		return nil, prefixPath(err, path)
	}
	return s, nil
}

func (p *parser) entry(n *yaml.Node, path string) (any, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return p.field(&fieldSpec{Type: n.Value}, path)
	case yaml.MappingNode:
		if !hasKey(n, "type") {
			return p.schema(n, path)
		}
		spec, err := decodeSpec(n, path)
		if err != nil {
			return nil, err
		}
		return p.field(spec, path)
	}
	return nil, contractError(path, "entry must be a type name or a mapping, got %s", kindName(n))
}

func decodeSpec(n *yaml.Node, path string) (*fieldSpec, error) {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; !specKeys[k] {
			return nil, contractError(path, "unknown field option %q", k)
		}
	}
	spec := &fieldSpec{}
	if err := n.Decode(spec); err != nil {
		return nil, contractError(path, "%v", err)
	}
	return spec, nil
}

func (p *parser) field(spec *fieldSpec, path string) (marshal.Field, error) {
	opts, err := p.options(spec, path)
	if err != nil {
		return nil, err
	}
	typ := strings.ToLower(strings.TrimSpace(spec.Type))
	if typ == "csv" {
		typ = "comma_separated_list"
	}
	if typ == "date_time" {
		typ = "datetime"
	}
	if ctor, ok := scalarTypes[typ]; ok {
		return ctor(opts...), nil
	}
	switch typ {
	case "fixed", "price":
		decimals := marshal.DefaultDecimals
		if spec.Decimals != nil {
			decimals = *spec.Decimals
		}
		return marshal.Fixed(decimals, opts...), nil
	case "formatted_string":
		if spec.Template == "" {
			return nil, contractError(path, "formatted_string needs a template")
		}
		return marshal.FormattedString(spec.Template, opts...), nil
	case "url":
		if spec.Endpoint == "" {
			return nil, contractError(path, "url needs an endpoint")
		}
		if p.resolver == nil {
			return nil, contractError(path, "url field declared without an endpoint resolver")
		}
		return marshal.URL(spec.Endpoint, p.resolver, opts...), nil
	case "nested":
		if spec.Fields.Kind == 0 {
			return nil, contractError(path, "nested needs fields")
		}
		s, err := p.schema(&spec.Fields, path+"/fields")
		if err != nil {
			return nil, err
		}
		return marshal.Nested(s, opts...), nil
	case "list", "comma_separated_list":
		if spec.Of.Kind == 0 {
			return nil, contractError(path, "%s needs an element type (of)", typ)
		}
		elem, err := p.element(&spec.Of, path+"/of")
		if err != nil {
			return nil, err
		}
		if typ == "list" {
			return marshal.List(elem, opts...), nil
		}
		return marshal.CommaSeparatedList(elem, opts...), nil
	}
	return nil, contractError(path, "unknown field type %q", spec.Type)
}

// element parses a list element: a type name, a field declaration, or a bare mapping
// taken as the fields of a nested schema.
func (p *parser) element(n *yaml.Node, path string) (marshal.Field, error) {
	n = resolveAlias(n)
	if n.Kind == yaml.MappingNode && !hasKey(n, "type") {
		s, err := p.schema(n, path)
		if err != nil {
			return nil, err
		}
		return marshal.Nested(s), nil
	}
	e, err := p.entry(n, path)
	if err != nil {
		return nil, err
	}
	return e.(marshal.Field), nil
}

func (p *parser) options(spec *fieldSpec, path string) ([]marshal.Option, error) {
	var opts []marshal.Option
	if spec.Default.Kind != 0 {
		var def any
		if err := spec.Default.Decode(&def); err != nil {
			return nil, contractError(path, "default: %v", err)
		}
		opts = append(opts, marshal.Default(def))
	}
	if spec.Attribute != "" {
		opts = append(opts, marshal.Attribute(spec.Attribute))
	}
	if spec.Required {
		opts = append(opts, marshal.InputRequired())
	}
	if spec.AllowNull {
		opts = append(opts, marshal.AllowNull())
	}
	if spec.Validate != "" {
		fn, ok := p.validators[spec.Validate]
		if !ok || fn == nil {
			return nil, contractError(path, "unknown validator %q", spec.Validate)
		}
		opts = append(opts, marshal.Validate(fn))
	}
	return opts, nil
}

func contractError(path, format string, args ...any) error {
	key := path[strings.LastIndexByte(path, '/')+1:]
	shown := key
	if shown == "" {
		shown = "<schema>"
	}
	return &marshal.MarshallingError{
		Code:    marshal.CodeContract,
		Path:    path,
		Key:     key,
		Message: i18n.T(marshal.CodeContract, map[string]string{"key": shown}),
		Cause:   fmt.Errorf(format, args...),
	}
}

func prefixPath(err error, path string) error {
	var me *marshal.MarshallingError
	if path == "" || !errors.As(err, &me) {
		return err
	}
	cp := *me
	cp.Path = path + me.Path
	return &cp
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	}
	return "empty value"
}

func escape(key string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(key)
}

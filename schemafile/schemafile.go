package schemafile

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/ran1979/bitschema"
)

// ErrInvalidDocument is returned when a schema source document is
// malformed: not valid YAML/JSON, missing a required top-level key, or a
// "fields" entry that is not itself a mapping.
var ErrInvalidDocument = errors.New("invalid schema document")

// document carries the two order-insensitive top-level scalars; "fields"
// is decoded separately via the AST walk to preserve declaration order.
type document struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
}

// fieldAttrs is the order-insensitive attribute set of a single field
// entry, matching spec.md §3's per-variant keys. A field's own attributes
// (unlike "fields" itself) carry no ordering requirement, so this is
// decoded with a normal typed unmarshal rather than another AST walk; a
// bitmask's "flags" land in a map, since each flag carries its own
// explicit bit position.
type fieldAttrs struct {
	Type       string         `yaml:"type"`
	Nullable   bool           `yaml:"nullable"`
	Min        *int64         `yaml:"min"`
	Max        *int64         `yaml:"max"`
	Values     []string       `yaml:"values"`
	Resolution string         `yaml:"resolution"`
	MinDate    string         `yaml:"min_date"`
	MaxDate    string         `yaml:"max_date"`
	Flags      map[string]int `yaml:"flags"`
}

// Load parses data into a [*bitschema.RawSchema]. data may be YAML or
// JSON; goccy/go-yaml parses JSON as a YAML subset, so no separate JSON
// path is needed (SPEC_FULL.md Domain Stack). The returned RawSchema is
// unvalidated — pass it to [bitschema.Validate].
func Load(data []byte) (*bitschema.RawSchema, error) {
	var doc document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	fields, err := loadFields(data)
	if err != nil {
		return nil, err
	}

	return &bitschema.RawSchema{Name: doc.Name, Version: doc.Version, Fields: fields}, nil
}

// loadFields walks data's AST to find the top-level "fields" key and
// returns its entries in declaration order.
func loadFields(data []byte) ([]bitschema.RawField, error) {
	file, err := parser.ParseBytes(data, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if len(file.Docs) == 0 || file.Docs[0].Body == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	root := mappingValues(file.Docs[0].Body)
	if root == nil {
		return nil, fmt.Errorf("%w: root is not a mapping", ErrInvalidDocument)
	}

	fieldsEntry := findKey(root, "fields")
	if fieldsEntry == nil {
		return nil, fmt.Errorf("%w: missing top-level %q key", ErrInvalidDocument, "fields")
	}

	fieldsMapping := mappingValues(fieldsEntry.Value)
	if fieldsMapping == nil {
		return nil, fmt.Errorf("%w: %q is not a mapping", ErrInvalidDocument, "fields")
	}

	fields := make([]bitschema.RawField, 0, len(fieldsMapping))

	for _, entry := range fieldsMapping {
		field, err := decodeField(entry)
		if err != nil {
			return nil, err
		}

		fields = append(fields, field)
	}

	return fields, nil
}

// decodeField decodes one "fields" entry, re-serializing its value subtree
// back to YAML text and unmarshaling that into [fieldAttrs]. Re-serializing
// an already-parsed node is cheaper to reason about than hand-walking
// every scalar/sequence/mapping shape a field's attributes can take.
func decodeField(entry *ast.MappingValueNode) (bitschema.RawField, error) {
	name := entry.Key.String()

	var attrs fieldAttrs

	if err := yaml.Unmarshal([]byte(entry.Value.String()), &attrs); err != nil {
		return bitschema.RawField{}, fmt.Errorf("%w: field %q: %w", ErrInvalidDocument, name, err)
	}

	return bitschema.RawField{
		Name:       name,
		Type:       attrs.Type,
		IsNullable: attrs.Nullable,
		Min:        attrs.Min,
		Max:        attrs.Max,
		Values:     attrs.Values,
		Resolution: attrs.Resolution,
		MinDate:    attrs.MinDate,
		MaxDate:    attrs.MaxDate,
		Flags:      attrs.Flags,
	}, nil
}

// mappingValues returns node's key-value pairs in source order, or nil if
// node is not mapping-shaped. A lone top-level key (e.g. a one-line
// document) parses as a bare *ast.MappingValueNode rather than a
// *ast.MappingNode, so both are handled.
func mappingValues(node ast.Node) []*ast.MappingValueNode {
	switch n := node.(type) {
	case *ast.MappingNode:
		return n.Values
	case *ast.MappingValueNode:
		return []*ast.MappingValueNode{n}
	default:
		return nil
	}
}

// findKey returns the entry in values whose key equals name, or nil.
func findKey(values []*ast.MappingValueNode, name string) *ast.MappingValueNode {
	for _, v := range values {
		if v.Key.String() == name {
			return v
		}
	}

	return nil
}

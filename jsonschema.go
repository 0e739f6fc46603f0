package bitschema

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// JSON Schema type-name constants (ported from the structural-inference
// constant block the teacher's magicschema/infer.go carried; the
// inference logic itself has no analogue here, since BitSchema fields are
// always explicitly typed, never inferred — see DESIGN.md).
const (
	typeBoolean = "boolean"
	typeInteger = "integer"
	typeString  = "string"
	typeObject  = "object"
)

// jsonSchemaDraft is the JSON Schema dialect BitSchema targets (spec.md
// §4.5.1: "Produces a JSON object conforming to JSON Schema Draft
// 2020-12").
const jsonSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// JSONSchemaEmitter produces a JSON Schema describing a [Schema]'s record
// shape (spec.md §4.5.1). Construct one with [NewJSONSchemaEmitter].
//
// JSONSchemaEmitter follows the teacher's Generator/Option shape
// (magicschema.Generator): an unexported struct built from functional
// [Option] values, with a single emitting entry point ([Emit]).
type JSONSchemaEmitter struct {
	title       string
	description string
	id          string
}

// Option configures a [JSONSchemaEmitter].
type Option func(*JSONSchemaEmitter)

// NewJSONSchemaEmitter creates a [JSONSchemaEmitter] with the given
// options.
func NewJSONSchemaEmitter(opts ...Option) *JSONSchemaEmitter {
	e := &JSONSchemaEmitter{}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// WithTitle overrides the schema's title; defaults to the schema's own
// name.
func WithTitle(title string) Option {
	return func(e *JSONSchemaEmitter) { e.title = title }
}

// WithDescription sets the schema's description.
func WithDescription(desc string) Option {
	return func(e *JSONSchemaEmitter) { e.description = desc }
}

// WithID sets the schema's $id.
func WithID(id string) Option {
	return func(e *JSONSchemaEmitter) { e.id = id }
}

// Emit produces a [*jsonschema.Schema] describing schema's record shape,
// given its planned layout (for vendor-extension bit offsets). It
// implements spec.md §4.5.1.
func (e *JSONSchemaEmitter) Emit(schema *Schema, layouts []FieldLayout) *jsonschema.Schema {
	root := &jsonschema.Schema{
		Schema:               jsonSchemaDraft,
		Type:                 typeObject,
		Title:                firstNonEmpty(e.title, schema.Name()),
		Properties:           make(map[string]*jsonschema.Schema, schema.Len()),
		AdditionalProperties: FalseSchema(),
	}

	if e.description != "" {
		root.Description = e.description
	}

	if e.id != "" {
		root.ID = e.id
	}

	totalBits := 0

	var order []string

	var required []string

	for _, l := range layouts {
		root.Properties[l.Name] = fieldSchema(l)
		order = append(order, l.Name)

		if !l.Nullable {
			required = append(required, l.Name)
		}

		totalBits += int(l.Bits)
	}

	root.PropertyOrder = order
	root.Required = required

	root.Extra = map[string]any{
		"x-bitschema-total-bits": totalBits,
		"x-bitschema-version":    schema.Version(),
	}

	return root
}

// fieldSchema builds the property schema for a single field, dispatching
// on its variant (spec.md §4.5.1). Nullable fields get a two-element
// Types array ending in "null" rather than a single Type string.
func fieldSchema(l FieldLayout) *jsonschema.Schema {
	var s *jsonschema.Schema

	switch f := l.Field.(type) {
	case BooleanField:
		s = &jsonschema.Schema{Type: typeBoolean}

	case IntegerField:
		s = &jsonschema.Schema{
			Type:    typeInteger,
			Minimum: jsonschema.Ptr(float64(f.Min)),
			Maximum: jsonschema.Ptr(float64(f.Max)),
		}

	case EnumField:
		s = enumFieldSchema(f)

	case DateField:
		s = dateFieldSchema(f)

	case BitmaskField:
		s = bitmaskFieldSchema(f)

	default:
		panic("bitschema: unhandled Field variant in fieldSchema")
	}

	mergeExtra(s, map[string]any{
		"x-bitschema-offset":       l.Offset,
		"x-bitschema-bits":         l.Bits,
		"x-bitschema-value-offset": l.ValueOffset(),
	})

	if l.Nullable {
		makeNullable(s)
	}

	return s
}

// mergeExtra adds extra's entries into s.Extra, creating the map if s had
// none yet. Used so every field carries its layout's bit offset/width
// alongside any variant-specific extensions already set (spec.md: "a
// round-trip back to a schema is possible in principle").
func mergeExtra(s *jsonschema.Schema, extra map[string]any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any, len(extra))
	}

	for k, v := range extra {
		s.Extra[k] = v
	}
}

// enumFieldSchema represents a single-value enum as a `const` (spec.md's
// Open Question #1 resolution, SPEC_FULL.md), and a multi-value enum as
// `enum`.
func enumFieldSchema(f EnumField) *jsonschema.Schema {
	if len(f.Values) == 1 {
		return &jsonschema.Schema{Type: typeString, Const: ConstValue(f.Values[0])}
	}

	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		values[i] = v
	}

	return &jsonschema.Schema{Type: typeString, Enum: values}
}

func dateFieldSchema(f DateField) *jsonschema.Schema {
	format := "date-time"
	if f.Resolution == ResolutionDay {
		format = "date"
	}

	s := &jsonschema.Schema{Type: typeString, Format: format}
	s.Extra = map[string]any{
		"x-bitschema-resolution": string(f.Resolution),
		"x-bitschema-min-date":   formatDate(f),
		"x-bitschema-max-date":   f.MaxDate.Format(layoutFor(f.Resolution)),
	}

	return s
}

// formatDate renders f.MinDate using the layout matching f's resolution.
func formatDate(f DateField) string {
	return f.MinDate.Format(layoutFor(f.Resolution))
}

// layoutFor returns the time.Format layout matching r's granularity.
func layoutFor(r DateResolution) string {
	if r == ResolutionDay {
		return "2006-01-02"
	}

	return "2006-01-02T15:04:05Z"
}

func bitmaskFieldSchema(f BitmaskField) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(f.Flags))
	positions := make(map[string]any, len(f.Flags))

	for _, name := range f.OrderedNames() {
		props[name] = &jsonschema.Schema{Type: typeBoolean}
		positions[name] = f.Flags[name]
	}

	s := &jsonschema.Schema{
		Type:                 typeObject,
		Properties:           props,
		AdditionalProperties: FalseSchema(),
	}
	s.Extra = map[string]any{"x-bitschema-flag-positions": positions}

	return s
}

// makeNullable converts s's single Type into a two-element Types array
// ending in "null", per spec.md §4.5.1.
func makeNullable(s *jsonschema.Schema) {
	if s.Type != "" {
		s.Types = []string{s.Type, "null"}
		s.Type = ""

		return
	}

	s.Types = append(s.Types, "null")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// helpers.go port (TrueSchema/FalseSchema/ConstValue) lives below,
// grounded on the teacher's magicschema/helpers.go.

// TrueSchema returns a schema that validates everything (marshals to JSON
// true).
func TrueSchema() *jsonschema.Schema {
	return &jsonschema.Schema{}
}

// FalseSchema returns a schema that validates nothing (marshals to JSON
// false).
func FalseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// ConstValue converts a Go value to a pointer-to-any suitable for use as a
// JSON Schema const value.
func ConstValue(v any) *any {
	return jsonschema.Ptr(v)
}

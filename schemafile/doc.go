// Package schemafile loads a schema source document — YAML or JSON — into
// a [bitschema.RawSchema], preserving field declaration order (spec.md
// §6: "fields is an ordered mapping preserving declaration order").
//
// Go's map type has no iteration order, so [Load] walks the parsed YAML
// AST directly to recover the order the fields key's entries appear in
// the source text, then decodes each field's own attributes (order-
// insensitive) with a normal typed unmarshal.
//
// Load uses [github.com/goccy/go-yaml]'s default decode path, which never
// instantiates arbitrary Go types from document content — the "safe"
// loader spec.md §6 requires.
package schemafile

// Package bitschema compiles a declarative field schema into a
// deterministic bit layout inside a single unsigned 64-bit word, and
// provides the codec, derived-artifact emitters, and validation needed to
// work with that layout.
//
// A schema is a fixed, ordered set of named fields drawn from five closed
// variants: boolean, integer (bounded range), enum (fixed value set),
// date (bounded range on a fixed resolution grid), and bitmask (named
// flag bits). Compiling a schema assigns each field a contiguous, LSB-
// first bit range with no padding; the result never depends on anything
// but the schema itself, so the same schema always produces the same
// layout on any platform.
//
// # Design Principles
//
// Three principles guide every design decision in this package:
//
//  1. Determinism over flexibility: given a validated [Schema], [Plan]
//     always produces the same [FieldLayout] sequence. There is no
//     alignment, padding, or platform-dependent layout choice anywhere in
//     the pipeline.
//
//  2. Closed variants, exhaustive switches: [Field] is implemented by
//     exactly five types in this package. Every switch that must handle
//     each variant (the codec, planner, renderer, and emitters) lists all
//     five and panics on an unreached default case rather than silently
//     doing nothing, so a sixth variant missed at any such call site fails
//     loudly at run time.
//
//  3. Fail closed at compile time, total at runtime: [Validate] and [Plan]
//     reject anything ambiguous or oversized before a layout exists.
//     Once a [FieldLayout] slice exists, [Encode] and [Decode] are total
//     over their respective domains — Decode in particular can never fail,
//     since every uint64 bit pattern denotes some record.
//
// # Compilation Pipeline
//
// Turning a schema source document into a usable layout is a four-phase
// pipeline:
//
//  1. Load: the schemafile package parses a YAML or JSON document into a
//     [RawSchema], preserving field declaration order.
//
//  2. Validate: [Validate] checks identifiers, per-variant attribute
//     rules (integer range ordering, enum value uniqueness, date range
//     ordering and parseability, bitmask position range and uniqueness),
//     and each field's standalone bit width, producing an immutable
//     [Schema].
//
//  3. Plan: [Plan] walks the schema's fields in declaration order,
//     computing each field's value bit width via [math/bits.Len64] and
//     assigning LSB-first, no-padding offsets. A nullable field gains one
//     extra presence bit at its offset. Plan fails if the cumulative
//     width exceeds 64 bits.
//
//  4. Use: the resulting []FieldLayout feeds every downstream consumer —
//     [Encode]/[Decode] for runtime packing, [JSONSchemaEmitter] for a
//     JSON Schema description, [Render] for a human-readable table, and
//     the codegen package for a generated Go record type.
//
// # Errors
//
// The package defines two sentinel errors for use with [errors.Is]:
//
//   - [ErrSchema]: a schema source document fails validation or planning.
//     Every concrete error is a [*SchemaError]; its Kind field identifies
//     which rule it violates.
//   - [ErrEncoding]: a record fails to encode against a layout. Every
//     concrete error is a [*EncodingError].
//
// [Decode] never returns an error: every bit pattern denotes a record,
// even one with field values a real-world record would never have
// produced, since there is no self-describing validity tag in the word
// itself.
//
// # Basic Usage
//
//	raw, err := schemafile.Load(data)
//	schema, err := bitschema.Validate(raw)
//	layouts, err := bitschema.Plan(schema)
//
//	word, err := bitschema.Encode(bitschema.Record{"age": int64(30)}, layouts)
//	record := bitschema.Decode(word, layouts)
//
// # Derived Artifacts
//
//	schemaDoc := bitschema.NewJSONSchemaEmitter().Emit(schema, layouts)
//	table := bitschema.Render(layouts, bitschema.RenderMarkdown)
//	src, err := codegen.NewEmitter().Emit(schema, layouts)
package bitschema

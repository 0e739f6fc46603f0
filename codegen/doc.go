// Package codegen emits a standalone Go source file implementing a
// [bitschema.Schema]'s bit layout as a plain struct with an Encode method
// and a package-level Decode function, needing no import of the bitschema
// module at runtime.
//
// Use [NewEmitter] and [Emitter.Emit]:
//
//	src, err := codegen.NewEmitter(codegen.WithPackageName("orders")).
//		Emit(schema, layouts)
//
// Emit validates the generated source with [go/parser] and formats it with
// [go/format] before returning it; a generation bug that produces invalid
// Go is reported as an error rather than handed to the caller.
package codegen

package codegen

import (
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/ran1979/bitschema"
)

// Emitter generates a Go source file from a compiled [bitschema.Schema],
// following the teacher's Generator/Option shape (see [bitschema.JSONSchemaEmitter]).
type Emitter struct {
	packageName string
}

// Option configures an [Emitter].
type Option func(*Emitter)

// NewEmitter creates an [Emitter] with the given options. The package name
// defaults to "bitschemagen".
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{packageName: "bitschemagen"}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// WithPackageName sets the `package` clause of the emitted file.
func WithPackageName(name string) Option {
	return func(e *Emitter) { e.packageName = name }
}

// Emit generates Go source implementing schema's record type, Encode
// method, and Decode constructor, resolving spec.md's code-emitter Open
// Question in favor of a fixed Go target (SPEC_FULL.md). The emitted
// record type is named <SchemaName>Record, with a Decode<SchemaName>
// constructor function.
//
// Emit parses and gofmt's the generated source before returning it; a
// malformed result is returned as an error rather than silently handed
// back.
func (e *Emitter) Emit(schema *bitschema.Schema, layouts []bitschema.FieldLayout) ([]byte, error) {
	typeName := exportedIdent(schema.Name())

	if dup, ok := firstCollision(layouts); ok {
		return nil, fmt.Errorf("bitschema: fields %q collide on exported Go identifier %q", dup, exportedIdent(dup))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "// Code generated from schema %q; DO NOT EDIT.\n\n", schema.Name())
	fmt.Fprintf(&b, "package %s\n\n", e.packageName)

	imports := collectImports(layouts)
	if len(imports) > 0 {
		b.WriteString("import (\n")

		for _, imp := range imports {
			fmt.Fprintf(&b, "\t%q\n", imp)
		}

		b.WriteString(")\n\n")
	}

	writeSupportDecls(&b, typeName, layouts)
	writeStruct(&b, typeName, layouts)
	writeEncode(&b, typeName, layouts)
	writeDecode(&b, typeName, layouts)

	return gofmt(b.String())
}

// firstCollision reports the first field name whose exported Go identifier
// collides with an earlier field's, if any. Schema field names need only
// be distinct as written (schema.go's Validate), not distinct after
// capitalizing their first rune, so two fields like "id" and "Id" would
// otherwise silently overwrite each other's struct field.
func firstCollision(layouts []bitschema.FieldLayout) (string, bool) {
	seen := make(map[string]bool, len(layouts))

	for _, l := range layouts {
		ident := exportedIdent(l.Name)
		if seen[ident] {
			return l.Name, true
		}

		seen[ident] = true
	}

	return "", false
}

// gofmt parses src to catch generation bugs early, then formats it.
func gofmt(src string) ([]byte, error) {
	fset := token.NewFileSet()

	if _, err := parser.ParseFile(fset, "", src, parser.AllErrors); err != nil {
		return nil, fmt.Errorf("bitschema: generated source does not parse: %w", err)
	}

	out, err := format.Source([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("bitschema: generated source does not gofmt: %w", err)
	}

	return out, nil
}

// collectImports returns the sorted, deduplicated set of stdlib packages
// the generated record type needs.
func collectImports(layouts []bitschema.FieldLayout) []string {
	need := make(map[string]bool)

	for _, l := range layouts {
		if l.Kind == bitschema.KindDate {
			need["time"] = true
		}
	}

	imports := make([]string, 0, len(need))
	for imp := range need {
		imports = append(imports, imp)
	}

	// Only "time" is ever produced today; sort for determinism once a
	// second import source exists.
	for i := 1; i < len(imports); i++ {
		for j := i; j > 0 && imports[j-1] > imports[j]; j-- {
			imports[j-1], imports[j] = imports[j], imports[j-1]
		}
	}

	return imports
}

// fieldGoType returns the Go type of a record struct field for l,
// unwrapped (non-pointer) form.
func fieldGoType(l bitschema.FieldLayout) string {
	switch l.Field.(type) {
	case bitschema.BooleanField:
		return "bool"
	case bitschema.IntegerField:
		return "int64"
	case bitschema.EnumField:
		return "string"
	case bitschema.DateField:
		return "time.Time"
	case bitschema.BitmaskField:
		return "map[string]bool"
	default:
		panic("bitschema: unhandled Field variant in fieldGoType")
	}
}

// structFieldType returns the declared struct field type, wrapping in a
// pointer when l is nullable. Bitmask fields are the exception: their Go
// type (map[string]bool) is already nil-able, so nullability is expressed
// with a nil map rather than a second pointer indirection.
func structFieldType(l bitschema.FieldLayout) string {
	t := fieldGoType(l)
	if l.Nullable && l.Kind != bitschema.KindBitmask {
		return "*" + t
	}

	return t
}

func writeStruct(b *strings.Builder, typeName string, layouts []bitschema.FieldLayout) {
	fmt.Fprintf(b, "// %sRecord is the generated record type for the %q schema.\n", typeName, typeName)
	fmt.Fprintf(b, "type %sRecord struct {\n", typeName)

	for _, l := range layouts {
		fmt.Fprintf(b, "\t%s %s\n", exportedIdent(l.Name), structFieldType(l))
	}

	b.WriteString("}\n\n")
}

// writeSupportDecls emits the package-level vars and functions a field's
// Encode/Decode logic needs: enum value tables and lookup functions, and
// date range anchors.
func writeSupportDecls(b *strings.Builder, typeName string, layouts []bitschema.FieldLayout) {
	for _, l := range layouts {
		switch f := l.Field.(type) {
		case bitschema.EnumField:
			writeEnumSupport(b, typeName, l.Name, f)
		case bitschema.DateField:
			writeDateSupport(b, typeName, l.Name, f)
		}
	}
}

func supportPrefix(typeName, fieldName string) string {
	return typeName + exportedIdent(fieldName)
}

func writeEnumSupport(b *strings.Builder, typeName, fieldName string, f bitschema.EnumField) {
	prefix := supportPrefix(typeName, fieldName)

	fmt.Fprintf(b, "var %sValues = []string{\n", prefix)

	for _, v := range f.Values {
		fmt.Fprintf(b, "\t%s,\n", strconv.Quote(v))
	}

	b.WriteString("}\n\n")

	fmt.Fprintf(b, "func %sIndex(v string) int {\n", prefix)
	fmt.Fprintf(b, "\tfor i, candidate := range %sValues {\n", prefix)
	b.WriteString("\t\tif candidate == v {\n")
	b.WriteString("\t\t\treturn i\n")
	b.WriteString("\t\t}\n")
	b.WriteString("\t}\n\n")
	b.WriteString("\treturn -1\n")
	b.WriteString("}\n\n")

	// The field's bit width can represent indices beyond the last declared
	// value (e.g. 3 values need 2 bits, representing up to 3); Decode must
	// still return a value for every word, so an out-of-domain index
	// clamps to the last one, matching the runtime codec.
	fmt.Fprintf(b, "func %sClampIndex(i int) int {\n", prefix)
	fmt.Fprintf(b, "\tif i >= len(%sValues) {\n", prefix)
	fmt.Fprintf(b, "\t\treturn len(%sValues) - 1\n", prefix)
	b.WriteString("\t}\n\n")
	b.WriteString("\treturn i\n")
	b.WriteString("}\n\n")
}

func writeDateSupport(b *strings.Builder, typeName, fieldName string, f bitschema.DateField) {
	prefix := supportPrefix(typeName, fieldName)

	fmt.Fprintf(b, "var %sMinDate = time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)\n\n",
		prefix,
		f.MinDate.Year(), int(f.MinDate.Month()), f.MinDate.Day(),
		f.MinDate.Hour(), f.MinDate.Minute(), f.MinDate.Second())

	fmt.Fprintf(b, "const %sStep = time.%s\n\n", prefix, dateStepIdent(f.Resolution))
}

func dateStepIdent(r bitschema.DateResolution) string {
	switch r {
	case bitschema.ResolutionDay:
		return "Hour * 24"
	case bitschema.ResolutionHour:
		return "Hour"
	case bitschema.ResolutionMinute:
		return "Minute"
	case bitschema.ResolutionSecond:
		return "Second"
	default:
		panic("bitschema: unhandled DateResolution in dateStepIdent")
	}
}

// writeEncode emits the (r <TypeName>Record) Encode() uint64 method.
func writeEncode(b *strings.Builder, typeName string, layouts []bitschema.FieldLayout) {
	fmt.Fprintf(b, "// Encode packs r into a single unsigned 64-bit word.\n")
	fmt.Fprintf(b, "func (r %sRecord) Encode() uint64 {\n", typeName)
	b.WriteString("\tvar word uint64\n\n")

	for _, l := range layouts {
		writeEncodeField(b, typeName, l)
	}

	b.WriteString("\treturn word\n")
	b.WriteString("}\n\n")
}

func writeEncodeField(b *strings.Builder, typeName string, l bitschema.FieldLayout) {
	name := exportedIdent(l.Name)
	prefix := supportPrefix(typeName, l.Name)

	switch f := l.Field.(type) {
	case bitschema.BooleanField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif r.%s != nil {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			fmt.Fprintf(b, "\t\tif *r.%s {\n", name)
			fmt.Fprintf(b, "\t\t\tword |= 1 << %d\n", l.ValueOffset())
			b.WriteString("\t\t}\n")
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tif r.%s {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			b.WriteString("\t}\n\n")
		}

	case bitschema.IntegerField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif r.%s != nil {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			fmt.Fprintf(b, "\t\tword |= uint64(*r.%s-(%d)) << %d\n", name, f.Min, l.ValueOffset())
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tword |= uint64(r.%s-(%d)) << %d\n\n", name, f.Min, l.ValueOffset())
		}

	case bitschema.EnumField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif r.%s != nil {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			fmt.Fprintf(b, "\t\tword |= uint64(%sIndex(*r.%s)) << %d\n", prefix, name, l.ValueOffset())
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tword |= uint64(%sIndex(r.%s)) << %d\n\n", prefix, name, l.ValueOffset())
		}

	case bitschema.DateField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif r.%s != nil {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			fmt.Fprintf(b, "\t\tword |= uint64(r.%s.Sub(%sMinDate)/%sStep) << %d\n", name, prefix, prefix, l.ValueOffset())
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tword |= uint64(r.%s.Sub(%sMinDate)/%sStep) << %d\n\n", name, prefix, prefix, l.ValueOffset())
		}

	case bitschema.BitmaskField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif r.%s != nil {\n", name)
			fmt.Fprintf(b, "\t\tword |= 1 << %d\n", l.Offset)
			writeBitmaskFlags(b, name, f, "\t\t")
			b.WriteString("\t}\n\n")
		} else {
			writeBitmaskFlags(b, name, f, "\t")
			b.WriteString("\n")
		}

	default:
		panic("bitschema: unhandled Field variant in writeEncodeField")
	}
}

func writeBitmaskFlags(b *strings.Builder, name string, f bitschema.BitmaskField, indent string) {
	for _, flagName := range f.OrderedNames() {
		pos := f.Flags[flagName]
		fmt.Fprintf(b, "%sif r.%s[%s] {\n", indent, name, strconv.Quote(flagName))
		fmt.Fprintf(b, "%s\tword |= 1 << %d\n", indent, pos)
		fmt.Fprintf(b, "%s}\n", indent)
	}
}

// writeDecode emits the Decode<TypeName>(word uint64) <TypeName>Record
// constructor function.
func writeDecode(b *strings.Builder, typeName string, layouts []bitschema.FieldLayout) {
	fmt.Fprintf(b, "// Decode%s unpacks word into a %sRecord.\n", typeName, typeName)
	fmt.Fprintf(b, "func Decode%s(word uint64) %sRecord {\n", typeName, typeName)
	fmt.Fprintf(b, "\tvar r %sRecord\n\n", typeName)

	for _, l := range layouts {
		writeDecodeField(b, typeName, l)
	}

	b.WriteString("\treturn r\n")
	b.WriteString("}\n")
}

func writeDecodeField(b *strings.Builder, typeName string, l bitschema.FieldLayout) {
	name := exportedIdent(l.Name)
	prefix := supportPrefix(typeName, l.Name)
	mask := maskExpr(l.ValueBits())

	switch f := l.Field.(type) {
	case bitschema.BooleanField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif (word>>%d)&1 == 1 {\n", l.Offset)
			fmt.Fprintf(b, "\t\tv := (word>>%d)&1 == 1\n", l.ValueOffset())
			fmt.Fprintf(b, "\t\tr.%s = &v\n", name)
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tr.%s = (word>>%d)&1 == 1\n\n", name, l.Offset)
		}

	case bitschema.IntegerField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif (word>>%d)&1 == 1 {\n", l.Offset)
			fmt.Fprintf(b, "\t\tv := int64((word>>%d)&%s) + (%d)\n", l.ValueOffset(), mask, f.Min)
			fmt.Fprintf(b, "\t\tr.%s = &v\n", name)
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tr.%s = int64((word>>%d)&%s) + (%d)\n\n", name, l.ValueOffset(), mask, f.Min)
		}

	case bitschema.EnumField:
		idxExpr := fmt.Sprintf("%sClampIndex(int((word>>%d)&%s))", prefix, l.ValueOffset(), mask)

		if l.Nullable {
			fmt.Fprintf(b, "\tif (word>>%d)&1 == 1 {\n", l.Offset)
			fmt.Fprintf(b, "\t\tv := %sValues[%s]\n", prefix, idxExpr)
			fmt.Fprintf(b, "\t\tr.%s = &v\n", name)
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tr.%s = %sValues[%s]\n\n", name, prefix, idxExpr)
		}

	case bitschema.DateField:
		decodeExpr := fmt.Sprintf("%sMinDate.Add(time.Duration((word>>%d)&%s) * %sStep)", prefix, l.ValueOffset(), mask, prefix)
		if l.Nullable {
			fmt.Fprintf(b, "\tif (word>>%d)&1 == 1 {\n", l.Offset)
			fmt.Fprintf(b, "\t\tv := %s\n", decodeExpr)
			fmt.Fprintf(b, "\t\tr.%s = &v\n", name)
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tr.%s = %s\n\n", name, decodeExpr)
		}

	case bitschema.BitmaskField:
		if l.Nullable {
			fmt.Fprintf(b, "\tif (word>>%d)&1 == 1 {\n", l.Offset)
			fmt.Fprintf(b, "\t\tr.%s = map[string]bool{\n", name)

			for _, flagName := range f.OrderedNames() {
				pos := f.Flags[flagName]
				fmt.Fprintf(b, "\t\t\t%s: (word>>%d)&1 == 1,\n", strconv.Quote(flagName), pos)
			}

			b.WriteString("\t\t}\n")
			b.WriteString("\t}\n\n")
		} else {
			fmt.Fprintf(b, "\tr.%s = map[string]bool{\n", name)

			for _, flagName := range f.OrderedNames() {
				pos := f.Flags[flagName]
				fmt.Fprintf(b, "\t\t%s: (word>>%d)&1 == 1,\n", strconv.Quote(flagName), pos)
			}

			b.WriteString("\t}\n\n")
		}

	default:
		panic("bitschema: unhandled Field variant in writeDecodeField")
	}
}

// maskExpr returns a Go expression for the all-ones mask of the given
// width. Emitting "uint64(1)<<64 - 1" literally would be a compile-time
// constant expression overflowing uint64 (2^64 does not fit); the
// all-ones width is special-cased to avoid that, matching the runtime
// shift-by-width-is-zero behavior the non-generated codec relies on.
func maskExpr(bits uint8) string {
	if bits >= 64 {
		return "^uint64(0)"
	}

	return fmt.Sprintf("(uint64(1)<<%d - 1)", bits)
}

// exportedIdent capitalizes name's first rune so it is a valid exported Go
// identifier. A name that starts with an underscore (a valid field name
// per spec.md §3 invariant 1, but not a valid exported Go identifier even
// uppercased) is given an "X" prefix instead.
func exportedIdent(name string) string {
	if name == "" {
		return name
	}

	if name[0] == '_' {
		return "X" + name
	}

	return strings.ToUpper(name[:1]) + name[1:]
}

package bitschema

import (
	"fmt"
	"time"
)

// RawField is the unvalidated, loosely-typed representation of a single
// field as it appears in a schema source document (see the schemafile
// package). [Validate] is the sole chokepoint that turns a RawField into a
// member of the closed [Field] union; nothing downstream ever inspects a
// RawField again.
type RawField struct {
	Name string
	// Type selects the variant; must be one of the [Kind] string values.
	Type string
	IsNullable bool

	// Integer
	Min, Max *int64

	// Enum
	Values []string

	// Date
	Resolution       string
	MinDate, MaxDate string

	// Bitmask
	Flags map[string]int
}

// RawSchema is the unvalidated, order-preserving representation of a schema
// source document.
type RawSchema struct {
	Name    string
	Version string
	Fields  []RawField
}

// Schema is a validated, immutable schema: a name, a version, and an
// ordered, duplicate-free mapping from field name to [Field]. Insertion
// order is part of a Schema's identity (spec.md §3): it governs bit
// offsets during planning.
//
// Construct a Schema with [Validate]. There is no exported constructor
// that bypasses validation.
type Schema struct {
	name    string
	version string
	fields  []schemaField
	index   map[string]int
}

type schemaField struct {
	name  string
	field Field
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// Version returns the schema's version string.
func (s *Schema) Version() string { return s.version }

// Len returns the number of fields in the schema.
func (s *Schema) Len() int { return len(s.fields) }

// FieldAt returns the name and [Field] at position i in declaration order.
// Panics if i is out of range; callers iterate with [Schema.Len].
func (s *Schema) FieldAt(i int) (name string, field Field) {
	sf := s.fields[i]

	return sf.name, sf.field
}

// Field returns the named field and true, or the zero value and false if
// the schema has no field with that name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}

	return s.fields[i].field, true
}

// Validate rejects a malformed or internally inconsistent [RawSchema] and
// returns a closed, immutable [Schema]. It implements spec.md §4.1.
//
// Validate checks, in field declaration order: unknown variant tag, missing
// required attribute, duplicate field name, invalid identifier, an
// Integer's inverted range, an Enum's empty/duplicate/oversized value list,
// a Date's unparseable bound or inverted range, a Bitmask's empty, out of
// range, or duplicate flag positions, and — after the per-field width is
// known — whether that field alone (plus its presence bit) already exceeds
// 64 bits. [Plan] performs the final cross-field 64-bit budget check, since
// that requires summing every field's width.
func Validate(raw *RawSchema) (*Schema, error) {
	if !isValidIdentifier(raw.Name) {
		return nil, newSchemaError(KindInvalidIdentifier, "name", raw.Name)
	}

	seen := make(map[string]bool, len(raw.Fields))
	fields := make([]schemaField, 0, len(raw.Fields))
	index := make(map[string]int, len(raw.Fields))

	for _, rf := range raw.Fields {
		path := "fields." + rf.Name

		if !isValidIdentifier(rf.Name) {
			return nil, newSchemaError(KindInvalidIdentifier, path, rf.Name)
		}

		if seen[rf.Name] {
			return nil, newSchemaError(KindDuplicateFieldName, path, rf.Name)
		}

		seen[rf.Name] = true

		field, err := validateField(rf, path)
		if err != nil {
			return nil, err
		}

		if err := checkStandaloneWidth(field, path); err != nil {
			return nil, err
		}

		index[rf.Name] = len(fields)
		fields = append(fields, schemaField{name: rf.Name, field: field})
	}

	return &Schema{name: raw.Name, version: raw.Version, fields: fields, index: index}, nil
}

// validateField dispatches on rf.Type and validates the variant-specific
// attributes, returning the corresponding [Field] on success.
func validateField(rf RawField, path string) (Field, error) {
	switch Kind(rf.Type) {
	case KindBoolean:
		return BooleanField{IsNullable: rf.IsNullable}, nil

	case KindInteger:
		return validateIntegerField(rf, path)

	case KindEnum:
		return validateEnumField(rf, path)

	case KindDate:
		return validateDateField(rf, path)

	case KindBitmask:
		return validateBitmaskField(rf, path)

	default:
		return nil, newSchemaError(KindUnknownVariant, path+".type", rf.Type)
	}
}

func validateIntegerField(rf RawField, path string) (Field, error) {
	if rf.Min == nil {
		return nil, newSchemaError(KindMissingAttribute, path+".min", nil)
	}

	if rf.Max == nil {
		return nil, newSchemaError(KindMissingAttribute, path+".max", nil)
	}

	if *rf.Min > *rf.Max {
		return nil, newSchemaError(KindIntegerRangeInverted, path, fmt.Sprintf("min=%d max=%d", *rf.Min, *rf.Max))
	}

	return IntegerField{Min: *rf.Min, Max: *rf.Max, IsNullable: rf.IsNullable}, nil
}

func validateEnumField(rf RawField, path string) (Field, error) {
	if len(rf.Values) == 0 {
		return nil, newSchemaError(KindEnumEmpty, path+".values", nil)
	}

	if len(rf.Values) > 255 {
		return nil, newSchemaError(KindEnumTooLarge, path+".values", len(rf.Values))
	}

	seen := make(map[string]bool, len(rf.Values))

	for _, v := range rf.Values {
		if v == "" {
			return nil, newSchemaError(KindEnumEmpty, path+".values", "empty value")
		}

		if seen[v] {
			return nil, newSchemaError(KindEnumDuplicate, path+".values", v)
		}

		seen[v] = true
	}

	return EnumField{Values: rf.Values, IsNullable: rf.IsNullable}, nil
}

func validateDateField(rf RawField, path string) (Field, error) {
	res := DateResolution(rf.Resolution)
	if res.step() == 0 {
		return nil, newSchemaError(KindUnknownVariant, path+".resolution", rf.Resolution)
	}

	minDate, err := parseISO8601(rf.MinDate)
	if err != nil {
		return nil, newSchemaError(KindDateParseError, path+".min_date", rf.MinDate)
	}

	maxDate, err := parseISO8601(rf.MaxDate)
	if err != nil {
		return nil, newSchemaError(KindDateParseError, path+".max_date", rf.MaxDate)
	}

	if !minDate.Before(maxDate) {
		return nil, newSchemaError(KindDateRangeInverted, path, fmt.Sprintf("min=%s max=%s", rf.MinDate, rf.MaxDate))
	}

	return DateField{MinDate: minDate, MaxDate: maxDate, Resolution: res, IsNullable: rf.IsNullable}, nil
}

func validateBitmaskField(rf RawField, path string) (Field, error) {
	if len(rf.Flags) == 0 {
		return nil, newSchemaError(KindBitmaskEmpty, path+".flags", nil)
	}

	seenPos := make(map[int]string, len(rf.Flags))

	for name, pos := range rf.Flags {
		if !isValidIdentifier(name) {
			return nil, newSchemaError(KindInvalidIdentifier, path+".flags."+name, name)
		}

		if pos < 0 || pos > 63 {
			return nil, newSchemaError(KindBitmaskPositionOutOfRange, path+".flags."+name, pos)
		}

		if other, dup := seenPos[pos]; dup {
			return nil, newSchemaError(KindBitmaskPositionDuplicate, path+".flags."+name,
				fmt.Sprintf("position %d already used by %q", pos, other))
		}

		seenPos[pos] = name
	}

	flags := make(map[string]int, len(rf.Flags))
	for k, v := range rf.Flags {
		flags[k] = v
	}

	return BitmaskField{Flags: flags, IsNullable: rf.IsNullable}, nil
}

// checkStandaloneWidth fast-fails when a single field's width, including
// its presence bit, already exceeds 64 bits — before the planner ever
// sums across fields. This also rejects an Integer range that cannot fit
// any bit width (spec.md §4.1: "Integer where the range does not fit its
// computed bit width").
func checkStandaloneWidth(f Field, path string) error {
	width := fieldValueBits(f)
	if f.Nullable() {
		width++
	}

	if width > 64 {
		return newSchemaError(KindIntegerRangeOverflow, path, width)
	}

	return nil
}

// parseISO8601 parses a date-only or full timestamp ISO 8601 string into a
// UTC [time.Time].
func parseISO8601(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrSchema, s)
}

// isValidIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*, the
// conservative identifier rule spec.md §3 invariant 1 imposes so that every
// field and schema name is safe to emit as a Go identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

package bitschema

import (
	"errors"
	"fmt"
)

// SchemaErrorKind identifies the specific rule a [SchemaError] violates.
// Kinds are a closed set; new kinds require a corresponding case at every
// switch over SchemaErrorKind in this package.
type SchemaErrorKind string

// Schema-validation error kinds, reported by [Validate].
const (
	KindUnknownVariant            SchemaErrorKind = "unknown_variant"
	KindMissingAttribute          SchemaErrorKind = "missing_attribute"
	KindInvalidIdentifier         SchemaErrorKind = "invalid_identifier"
	KindDuplicateFieldName        SchemaErrorKind = "duplicate_field_name"
	KindIntegerRangeInverted      SchemaErrorKind = "integer_range_inverted"
	KindIntegerRangeOverflow      SchemaErrorKind = "integer_range_overflow"
	KindEnumEmpty                 SchemaErrorKind = "enum_empty"
	KindEnumTooLarge              SchemaErrorKind = "enum_too_large"
	KindEnumDuplicate             SchemaErrorKind = "enum_duplicate"
	KindDateRangeInverted         SchemaErrorKind = "date_range_inverted"
	KindDateParseError            SchemaErrorKind = "date_parse_error"
	KindBitmaskPositionOutOfRange SchemaErrorKind = "bitmask_position_out_of_range"
	KindBitmaskPositionDuplicate  SchemaErrorKind = "bitmask_position_duplicate"
	KindBitmaskEmpty              SchemaErrorKind = "bitmask_empty"
	KindSchemaTooLarge            SchemaErrorKind = "schema_too_large"
)

// EncodingErrorKind identifies the specific rule an [EncodingError]
// violates, reported by [Encode].
type EncodingErrorKind string

// Encode-time error kinds.
const (
	KindMissingField     EncodingErrorKind = "missing_field"
	KindTypeMismatch     EncodingErrorKind = "type_mismatch"
	KindOutOfRange       EncodingErrorKind = "out_of_range"
	KindUnknownEnumValue EncodingErrorKind = "unknown_enum_value"
	KindUnknownFlag      EncodingErrorKind = "unknown_flag"
	KindNullNotAllowed   EncodingErrorKind = "null_not_allowed"
)

// ErrSchema is the sentinel all [SchemaError] values wrap, for use with
// [errors.Is].
var ErrSchema = errors.New("invalid schema")

// ErrEncoding is the sentinel all [EncodingError] values wrap, for use with
// [errors.Is].
var ErrEncoding = errors.New("encoding error")

// errNotATime is an internal sentinel used by asTime; it is always
// translated into a [KindTypeMismatch] [EncodingError] before reaching a
// caller.
var errNotATime = errors.New("bitschema: not a time value")

// maxEchoLen bounds the length of an offending value echoed back in an
// error message, per spec: "the offending value (clipped to a safe
// length)".
const maxEchoLen = 120

// SchemaError reports a schema that [Validate] rejects. Path is a
// dot-separated location such as "fields.age.max"; empty when the error is
// not scoped to a single field (e.g. [KindSchemaTooLarge]).
type SchemaError struct {
	Kind  SchemaErrorKind
	Path  string
	Value string
	// Widths carries the per-field bit width breakdown for
	// [KindSchemaTooLarge], empty otherwise.
	Widths map[string]int
	// Total carries the cumulative bit count for [KindSchemaTooLarge].
	Total int
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.Kind == KindSchemaTooLarge:
		return fmt.Sprintf("invalid schema: %s: total bits %d exceeds 64 (%v)",
			e.Kind, e.Total, e.Widths)
	case e.Path != "" && e.Value != "":
		return fmt.Sprintf("invalid schema: %s at %s: %s", e.Kind, e.Path, clip(e.Value))
	case e.Path != "":
		return fmt.Sprintf("invalid schema: %s at %s", e.Kind, e.Path)
	default:
		return fmt.Sprintf("invalid schema: %s", e.Kind)
	}
}

// Unwrap allows errors.Is(err, ErrSchema) to succeed for any [SchemaError].
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// newSchemaError builds a [SchemaError] for a field-scoped violation.
func newSchemaError(kind SchemaErrorKind, path string, value any) *SchemaError {
	return &SchemaError{Kind: kind, Path: path, Value: clipValue(value)}
}

// newSchemaTooLargeError builds the [KindSchemaTooLarge] variant, which
// carries the full per-field width breakdown instead of a single value.
func newSchemaTooLargeError(widths map[string]int, total int) *SchemaError {
	return &SchemaError{Kind: KindSchemaTooLarge, Widths: widths, Total: total}
}

// EncodingError reports a record that [Encode] rejects.
type EncodingError struct {
	Kind  EncodingErrorKind
	Field string
	Value string
	// Missing carries all absent required field names for
	// [KindMissingField]; empty otherwise.
	Missing []string
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	if e.Kind == KindMissingField {
		return fmt.Sprintf("encoding error: %s: %v", e.Kind, e.Missing)
	}

	if e.Value != "" {
		return fmt.Sprintf("encoding error: %s: field %q: %s", e.Kind, e.Field, clip(e.Value))
	}

	return fmt.Sprintf("encoding error: %s: field %q", e.Kind, e.Field)
}

// Unwrap allows errors.Is(err, ErrEncoding) to succeed for any
// [EncodingError].
func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// newEncodingError builds an [EncodingError] for a single field.
func newEncodingError(kind EncodingErrorKind, field string, value any) *EncodingError {
	return &EncodingError{Kind: kind, Field: field, Value: clipValue(value)}
}

// newMissingFieldError builds the [KindMissingField] variant, which lists
// every absent non-nullable field at once rather than failing on the
// first.
func newMissingFieldError(missing []string) *EncodingError {
	return &EncodingError{Kind: KindMissingField, Missing: missing}
}

// clipValue renders v as a string safe to echo in an error message.
func clipValue(v any) string {
	return clip(fmt.Sprintf("%v", v))
}

// clip truncates s to maxEchoLen runes, appending an ellipsis marker.
func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxEchoLen {
		return s
	}

	return string(r[:maxEchoLen]) + "...(truncated)"
}

package bitschema_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ran1979/bitschema"
)

func planOrFatal(t *testing.T, raw *bitschema.RawSchema) []bitschema.FieldLayout {
	t.Helper()

	schema, err := bitschema.Validate(raw)
	require.NoError(t, err)

	layouts, err := bitschema.Plan(schema)
	require.NoError(t, err)

	return layouts
}

// S1: boolean-only schema.
func TestCodecS1BooleanOnly(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "a", Type: "bool"},
		{Name: "b", Type: "bool"},
	}})

	word, err := bitschema.Encode(bitschema.Record{"a": true, "b": false}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), word)

	assert.Equal(t, bitschema.Record{"a": true, "b": false}, bitschema.Decode(1, layouts))
	assert.Equal(t, bitschema.Record{"a": true, "b": true}, bitschema.Decode(0b11, layouts))
}

// S2: bounded integer.
func TestCodecS2BoundedInteger(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "x", Type: "int", Min: int64Ptr(-8), Max: int64Ptr(7)},
	}})
	require.Equal(t, uint8(4), layouts[0].Bits)

	word, err := bitschema.Encode(bitschema.Record{"x": int64(-8)}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), word)

	word, err = bitschema.Encode(bitschema.Record{"x": int64(7)}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), word)

	_, err = bitschema.Encode(bitschema.Record{"x": int64(8)}, layouts)
	require.Error(t, err)

	var encErr *bitschema.EncodingError

	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, bitschema.KindOutOfRange, encErr.Kind)
}

// S3: single-value enum, zero bits.
func TestCodecS3SingleValueEnum(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "k", Type: "enum", Values: []string{"only"}},
	}})
	require.Equal(t, uint8(0), layouts[0].Bits)

	word, err := bitschema.Encode(bitschema.Record{"k": "only"}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), word)

	assert.Equal(t, bitschema.Record{"k": "only"}, bitschema.Decode(0, layouts))
}

// S4: nullable enum, 3 bits total (2 value + 1 presence).
func TestCodecS4NullableEnum(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "k", Type: "enum", Values: []string{"a", "b", "c", "d"}, IsNullable: true},
	}})
	require.Equal(t, uint8(3), layouts[0].Bits)

	word, err := bitschema.Encode(bitschema.Record{"k": nil}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b000), word)

	word, err = bitschema.Encode(bitschema.Record{"k": "a"}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b001), word)

	word, err = bitschema.Encode(bitschema.Record{"k": "d"}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b111), word)
}

// S5: bitmask with sparse positions.
func TestCodecS5SparseBitmask(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "p", Type: "bitmask", Flags: map[string]int{"read": 0, "admin": 3}},
	}})
	require.Equal(t, uint8(4), layouts[0].Bits)

	word, err := bitschema.Encode(bitschema.Record{"p": map[string]bool{"read": true, "admin": true}}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1001), word)

	word, err = bitschema.Encode(bitschema.Record{"p": map[string]bool{"read": false}}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b0000), word)

	_, err = bitschema.Encode(bitschema.Record{"p": map[string]bool{"write": true}}, layouts)
	require.Error(t, err)

	var encErr *bitschema.EncodingError

	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, bitschema.KindUnknownFlag, encErr.Kind)
}

// S6: date with day resolution.
func TestCodecS6DayResolutionDate(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "d", Type: "date", Resolution: "day", MinDate: "2020-01-01", MaxDate: "2020-01-04"},
	}})
	require.Equal(t, uint8(2), layouts[0].Bits)

	word, err := bitschema.Encode(bitschema.Record{"d": "2020-01-01"}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), word)

	word, err = bitschema.Encode(bitschema.Record{"d": "2020-01-03"}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), word)

	_, err = bitschema.Encode(bitschema.Record{"d": "2019-12-31"}, layouts)
	require.Error(t, err)

	var encErr *bitschema.EncodingError

	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, bitschema.KindOutOfRange, encErr.Kind)
}

// S7: overflow schema, 9 bounded integers (63 bits) plus one boolean (64
// bits total, legal); a further boolean exceeds the word.
func TestCodecS7OverflowSchema(t *testing.T) {
	t.Parallel()

	fields := make([]bitschema.RawField, 0, 10)
	names := "abcdefghi"

	for _, c := range names {
		fields = append(fields, bitschema.RawField{
			Name: string(c), Type: "int", Min: int64Ptr(0), Max: int64Ptr(127),
		})
	}

	fields = append(fields, bitschema.RawField{Name: "j", Type: "bool"})

	schema, err := bitschema.Validate(&bitschema.RawSchema{Name: "S", Fields: fields})
	require.NoError(t, err)

	layouts, err := bitschema.Plan(schema)
	require.NoError(t, err)

	var total int
	for _, l := range layouts {
		total += int(l.Bits)
	}

	assert.Equal(t, 64, total)

	fields = append(fields, bitschema.RawField{Name: "k", Type: "bool"})

	schema, err = bitschema.Validate(&bitschema.RawSchema{Name: "S", Fields: fields})
	require.NoError(t, err)

	_, err = bitschema.Plan(schema)
	require.Error(t, err)

	var schemaErr *bitschema.SchemaError

	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, bitschema.KindSchemaTooLarge, schemaErr.Kind)
	assert.Equal(t, 65, schemaErr.Total)
	assert.Len(t, schemaErr.Widths, 11)
}

func TestEncodeMissingRequiredField(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "a", Type: "bool"},
		{Name: "b", Type: "bool"},
	}})

	_, err := bitschema.Encode(bitschema.Record{"a": true}, layouts)
	require.Error(t, err)

	var encErr *bitschema.EncodingError

	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, bitschema.KindMissingField, encErr.Kind)
	assert.Equal(t, []string{"b"}, encErr.Missing)
}

// A present-but-nil value on a non-nullable field is a distinct violation
// from an absent key: the key is present, so it never shows up in
// KindMissingField's Missing list, but nil is not a legal value for any
// variant either.
func TestEncodeNullNotAllowedOnRequiredField(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "a", Type: "bool"},
	}})

	_, err := bitschema.Encode(bitschema.Record{"a": nil}, layouts)
	require.Error(t, err)

	var encErr *bitschema.EncodingError

	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, bitschema.KindNullNotAllowed, encErr.Kind)
	assert.Equal(t, "a", encErr.Field)
}

// Decode totality: every word in a sampled spread of [0, 2^64) decodes
// without panicking, for every field kind, including unused high bits of a
// narrow schema.
func TestDecodeIsTotal(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "flag", Type: "bool"},
		{Name: "age", Type: "int", Min: int64Ptr(0), Max: int64Ptr(130)},
		{Name: "tier", Type: "enum", Values: []string{"free", "pro", "enterprise"}},
		{Name: "joined", Type: "date", Resolution: "day", MinDate: "2000-01-01", MaxDate: "2040-01-01"},
		{Name: "perms", Type: "bitmask", Flags: map[string]int{"read": 0, "write": 1, "admin": 2}},
	}})

	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		word := rng.Uint64()

		assert.NotPanics(t, func() {
			record := bitschema.Decode(word, layouts)
			assert.Len(t, record, len(layouts))
		})
	}

	assert.NotPanics(t, func() { bitschema.Decode(0, layouts) })
	assert.NotPanics(t, func() { bitschema.Decode(^uint64(0), layouts) })
}

// Round-trip property: decode(encode(r)) == r, sampled across every field
// kind in one compound schema.
func TestRoundTripAllVariants(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "flag", Type: "bool"},
		{Name: "age", Type: "int", Min: int64Ptr(-50), Max: int64Ptr(200)},
		{Name: "tier", Type: "enum", Values: []string{"free", "pro", "enterprise", "trial"}},
		{Name: "joined", Type: "date", Resolution: "hour", MinDate: "2020-01-01", MaxDate: "2020-06-01"},
		{Name: "perms", Type: "bitmask", Flags: map[string]int{"read": 0, "write": 2, "admin": 5}},
		{Name: "nickname", Type: "enum", Values: []string{"x", "y"}, IsNullable: true},
	}})

	rng := rand.New(rand.NewSource(42))

	minDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	hours := int(maxDate.Sub(minDate).Hours())

	for i := 0; i < 500; i++ {
		record := bitschema.Record{
			"flag":     rng.Intn(2) == 1,
			"age":      int64(-50 + rng.Intn(251)),
			"tier":     []string{"free", "pro", "enterprise", "trial"}[rng.Intn(4)],
			"joined":   minDate.Add(time.Duration(rng.Intn(hours+1)) * time.Hour),
			"perms":    map[string]bool{"read": rng.Intn(2) == 1, "write": rng.Intn(2) == 1, "admin": rng.Intn(2) == 1},
			"nickname": nil,
		}

		if rng.Intn(2) == 1 {
			record["nickname"] = []string{"x", "y"}[rng.Intn(2)]
		}

		word, err := bitschema.Encode(record, layouts)
		require.NoError(t, err)

		got := bitschema.Decode(word, layouts)

		assert.Equal(t, record["flag"], got["flag"])
		assert.Equal(t, record["age"], got["age"])
		assert.Equal(t, record["tier"], got["tier"])
		assert.True(t, record["joined"].(time.Time).Equal(got["joined"].(time.Time)))
		assert.Equal(t, record["perms"], got["perms"])
		assert.Equal(t, record["nickname"], got["nickname"])
	}
}

// An enum's bit width can represent indices past its last declared value
// (3 values need 2 bits, representing up to 3); Decode must not panic, and
// clamps the index to the last value instead.
func TestDecodeClampsOutOfDomainEnumIndex(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "tier", Type: "enum", Values: []string{"free", "pro", "enterprise"}},
	}})
	require.Equal(t, uint8(2), layouts[0].Bits)

	assert.NotPanics(t, func() {
		record := bitschema.Decode(3, layouts)
		assert.Equal(t, "enterprise", record["tier"])
	})
}

// Null preservation: on encode, a null nullable field leaves both the
// presence bit and the value bits at 0.
func TestNullPreservationSymmetry(t *testing.T) {
	t.Parallel()

	layouts := planOrFatal(t, &bitschema.RawSchema{Name: "S", Fields: []bitschema.RawField{
		{Name: "x", Type: "int", Min: int64Ptr(0), Max: int64Ptr(100), IsNullable: true},
	}})

	word, err := bitschema.Encode(bitschema.Record{"x": nil}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), word)

	word, err = bitschema.Encode(bitschema.Record{}, layouts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), word)

	word, err = bitschema.Encode(bitschema.Record{"x": int64(0)}, layouts)
	require.NoError(t, err)
	assert.NotEqual(t, uint64(0), word)
	assert.Equal(t, int64(0), bitschema.Decode(word, layouts)["x"])
}

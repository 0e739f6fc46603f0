package bitschema

import "math/bits"

// FieldLayout is the planner's per-field output: a name, its variant tag,
// its bit offset and width within the packed word, whether it is nullable,
// and the original [Field] (carrying variant-specific constraints used by
// the codec and emitters).
//
// FieldLayout values are immutable once produced and safe to share across
// goroutines (spec.md §5).
type FieldLayout struct {
	Name     string
	Kind     Kind
	Field    Field
	Offset   uint8
	Bits     uint8
	Nullable bool
}

// ValueOffset is the bit position of the field's value bits: Offset itself
// for non-nullable fields, or Offset+1 for nullable fields (the presence
// bit occupies Offset).
func (l FieldLayout) ValueOffset() uint8 {
	if l.Nullable {
		return l.Offset + 1
	}

	return l.Offset
}

// ValueBits is the width of the field's value bits, excluding the presence
// bit.
func (l FieldLayout) ValueBits() uint8 {
	if l.Nullable {
		return l.Bits - 1
	}

	return l.Bits
}

// Plan lays out s's fields LSB-first in declaration order and returns the
// resulting [FieldLayout] sequence, implementing spec.md §4.2. Plan is
// pure and deterministic: the same [Schema] value always yields the same
// sequence (spec.md §8 property 1).
//
// Plan fails with [KindSchemaTooLarge] if the cumulative bit width exceeds
// 64; the error carries the per-field width breakdown.
func Plan(s *Schema) ([]FieldLayout, error) {
	layouts := make([]FieldLayout, 0, s.Len())
	widths := make(map[string]int, s.Len())

	var offset uint8

	var total int

	for i := 0; i < s.Len(); i++ {
		name, field := s.FieldAt(i)

		width := fieldValueBits(field)
		if field.Nullable() {
			width++
		}

		widths[name] = int(width)
		total += int(width)

		if total > 64 {
			return nil, newSchemaTooLargeError(widths, total)
		}

		layouts = append(layouts, FieldLayout{
			Name:     name,
			Kind:     field.Kind(),
			Field:    field,
			Offset:   offset,
			Bits:     width,
			Nullable: field.Nullable(),
		})

		offset += width
	}

	return layouts, nil
}

// fieldValueBits computes bits_needed (spec.md §4.2 table): the width of
// f's value domain alone, before any presence bit. This is a single
// exhaustive switch over the closed [Field] union.
func fieldValueBits(f Field) uint8 {
	switch v := f.(type) {
	case BooleanField:
		return 1

	case IntegerField:
		return bitLength(v.rangeSize() - 1)

	case EnumField:
		return bitLength(uint64(len(v.Values)) - 1)

	case DateField:
		return bitLength(v.unitsInRange() - 1)

	case BitmaskField:
		return uint8(v.maxPosition() + 1)

	default:
		panic("bitschema: unhandled Field variant in fieldValueBits")
	}
}

// bitLength returns the position of the highest set bit of n: 0 for n=0,
// floor(log2(n))+1 for n>0. This is the normative bit_length primitive
// from spec.md's Design Notes, implemented with [math/bits.Len64] rather
// than a floating-point logarithm.
func bitLength(n uint64) uint8 {
	return uint8(bits.Len64(n))
}

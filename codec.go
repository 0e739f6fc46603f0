package bitschema

import "time"

// Record is a name-keyed mapping of host-language values, the shape both
// [Encode] consumes and [Decode] produces (spec.md §4.3).
//
// Per-variant value shapes:
//
//	Boolean  -> bool
//	Integer  -> any of int, int8, int16, int32, int64 in [min, max]
//	Enum     -> string, equal to one of the field's values
//	Date     -> time.Time, or a string that parses as ISO 8601
//	Bitmask  -> map[string]bool (missing flags treated as false)
//
// A nullable field's value may additionally be the literal Go value nil,
// or the key may be omitted entirely; both mean "null" to [Encode]. [Decode]
// always sets the key, using nil for a null field.
type Record map[string]any

// Encode packs record into a single unsigned 64-bit word using layouts,
// implementing spec.md §4.3–§4.4.
//
// Encode first verifies every non-nullable field's key is present
// ([KindMissingField] lists every absent name at once). Extra keys in
// record that name no field in layouts are ignored. Each field is then
// validated and normalized independently; the first violation encountered
// (in layout order) is returned as an [EncodingError] and no partial word
// is returned.
func Encode(record Record, layouts []FieldLayout) (uint64, error) {
	if missing := missingRequiredFields(record, layouts); len(missing) > 0 {
		return 0, newMissingFieldError(missing)
	}

	var word uint64

	for _, l := range layouts {
		value, present := record[l.Name]

		if l.Nullable && (!present || value == nil) {
			// Presence bit and value bits both stay 0.
			continue
		}

		if !l.Nullable && present && value == nil {
			return 0, newEncodingError(KindNullNotAllowed, l.Name, value)
		}

		v, err := normalize(l, value)
		if err != nil {
			return 0, err
		}

		if l.Nullable {
			word |= 1 << l.Offset
		}

		word |= v << l.ValueOffset()
	}

	return word, nil
}

// missingRequiredFields returns the names of every non-nullable field in
// layouts absent from record, in layout order.
func missingRequiredFields(record Record, layouts []FieldLayout) []string {
	var missing []string

	for _, l := range layouts {
		if l.Nullable {
			continue
		}

		if _, ok := record[l.Name]; !ok {
			missing = append(missing, l.Name)
		}
	}

	return missing
}

// normalize validates value against l's constraints and returns the
// unsigned integer v in [0, 2^ValueBits) it maps to, implementing the
// per-variant rules of spec.md §4.3–§4.4.
func normalize(l FieldLayout, value any) (uint64, error) {
	switch f := l.Field.(type) {
	case BooleanField:
		return normalizeBoolean(l, value)

	case IntegerField:
		return normalizeInteger(l, f, value)

	case EnumField:
		return normalizeEnum(l, f, value)

	case DateField:
		return normalizeDate(l, f, value)

	case BitmaskField:
		return normalizeBitmask(l, f, value)

	default:
		panic("bitschema: unhandled Field variant in normalize")
	}
}

func normalizeBoolean(l FieldLayout, value any) (uint64, error) {
	b, ok := value.(bool)
	if !ok {
		return 0, newEncodingError(KindTypeMismatch, l.Name, value)
	}

	if b {
		return 1, nil
	}

	return 0, nil
}

// asInt64 converts any fixed-width signed integer type to int64. Returns
// false for bool (which is never accepted as an integer, even though
// Go allows comparing it against 0/1) or any non-integer type.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func normalizeInteger(l FieldLayout, f IntegerField, value any) (uint64, error) {
	n, ok := asInt64(value)
	if !ok {
		return 0, newEncodingError(KindTypeMismatch, l.Name, value)
	}

	if n < f.Min || n > f.Max {
		return 0, newEncodingError(KindOutOfRange, l.Name, value)
	}

	return uint64(n - f.Min), nil
}

func normalizeEnum(l FieldLayout, f EnumField, value any) (uint64, error) {
	s, ok := value.(string)
	if !ok {
		return 0, newEncodingError(KindTypeMismatch, l.Name, value)
	}

	idx := f.indexOf(s)
	if idx < 0 {
		return 0, newEncodingError(KindUnknownEnumValue, l.Name, value)
	}

	return uint64(idx), nil
}

func normalizeDate(l FieldLayout, f DateField, value any) (uint64, error) {
	t, err := asTime(value)
	if err != nil {
		return 0, newEncodingError(KindTypeMismatch, l.Name, value)
	}

	if t.Before(f.MinDate) || t.After(f.MaxDate) {
		return 0, newEncodingError(KindOutOfRange, l.Name, value)
	}

	// Truncate toward zero to the resolution grid; sub-day resolutions
	// silently accept misaligned inputs (spec.md §4.4, Open Question #2).
	units := uint64(t.Sub(f.MinDate) / f.Resolution.step())

	return units, nil
}

// asTime accepts a time.Time directly, or a string parseable as ISO 8601
// (date-only or full timestamp).
func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseISO8601(v)
	default:
		return time.Time{}, errNotATime
	}
}

func normalizeBitmask(l FieldLayout, f BitmaskField, value any) (uint64, error) {
	flags, ok := value.(map[string]bool)
	if !ok {
		return 0, newEncodingError(KindTypeMismatch, l.Name, value)
	}

	var v uint64

	for name, set := range flags {
		pos, declared := f.Flags[name]
		if !declared {
			return 0, newEncodingError(KindUnknownFlag, l.Name, name)
		}

		if set {
			v |= 1 << uint(pos)
		}
	}

	return v, nil
}

// Decode unpacks word into a [Record] using layouts, implementing spec.md
// §4.3. Decode is total: every word in [0, 2^64) produces a record for
// every layout, with no possibility of error (spec.md §7: "No errors are
// raised by decode given a well-formed FieldLayout and any u64").
func Decode(word uint64, layouts []FieldLayout) Record {
	record := make(Record, len(layouts))

	for _, l := range layouts {
		if l.Nullable && (word>>l.Offset)&1 == 0 {
			record[l.Name] = nil

			continue
		}

		mask := uint64(1)<<l.ValueBits() - 1
		v := (word >> l.ValueOffset()) & mask

		record[l.Name] = denormalize(l, v)
	}

	return record
}

// denormalize maps the unsigned field value v back to a host value,
// implementing the per-variant inverse of [normalize].
func denormalize(l FieldLayout, v uint64) any {
	switch f := l.Field.(type) {
	case BooleanField:
		return v != 0

	case IntegerField:
		return f.Min + int64(v)

	case EnumField:
		// v's bit width covers [0, 2^ValueBits), which can exceed the
		// highest valid index (e.g. 3 values need 2 bits, representing up
		// to 3); Decode must still return a value for every word, so an
		// out-of-domain index clamps to the last declared value.
		if int(v) >= len(f.Values) {
			return f.Values[len(f.Values)-1]
		}

		return f.Values[v]

	case DateField:
		return f.MinDate.Add(time.Duration(v) * f.Resolution.step())

	case BitmaskField:
		flags := make(map[string]bool, len(f.Flags))
		for name, pos := range f.Flags {
			flags[name] = (v>>uint(pos))&1 == 1
		}

		return flags

	default:
		panic("bitschema: unhandled Field variant in denormalize")
	}
}

package bitschema

import "time"

// DateResolution is the granularity of a Date field's storage grid.
type DateResolution string

// Supported date resolutions.
const (
	ResolutionDay    DateResolution = "day"
	ResolutionHour   DateResolution = "hour"
	ResolutionMinute DateResolution = "minute"
	ResolutionSecond DateResolution = "second"
)

// step returns the duration of one resolution tick. Day resolution has no
// fixed [time.Duration] (calendar days vary under a proleptic Gregorian
// calendar only in the sense that this package treats every day as exactly
// 24 hours, since dates are UTC and BitSchema takes no position on leap
// seconds), so 24*time.Hour is exact here.
func (r DateResolution) step() time.Duration {
	switch r {
	case ResolutionDay:
		return 24 * time.Hour
	case ResolutionHour:
		return time.Hour
	case ResolutionMinute:
		return time.Minute
	case ResolutionSecond:
		return time.Second
	}

	return 0
}

// Kind identifies which variant of the closed [Field] union a value holds.
// Kind strings double as the `type` discriminator in schema source
// documents (see schemafile package).
type Kind string

// The five closed field variants (spec.md §3).
const (
	KindBoolean Kind = "bool"
	KindInteger Kind = "int"
	KindEnum    Kind = "enum"
	KindDate    Kind = "date"
	KindBitmask Kind = "bitmask"
)

// Field is the closed tagged union of field variants a [Schema] may
// contain. It is implemented by exactly five types in this package
// ([BooleanField], [IntegerField], [EnumField], [DateField],
// [BitmaskField]); the interface is sealed so no other type may implement
// it, which lets every switch over [Field.Kind] in this package be treated
// as exhaustive.
type Field interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Nullable reports whether the field accepts a null value in addition
	// to its variant's normal domain.
	Nullable() bool

	sealed()
}

// BooleanField is a field whose domain is {false, true}.
type BooleanField struct {
	IsNullable bool
}

// Kind implements [Field].
func (BooleanField) Kind() Kind { return KindBoolean }

// Nullable implements [Field].
func (f BooleanField) Nullable() bool { return f.IsNullable }

func (BooleanField) sealed() {}

// IntegerField is a field whose domain is the closed interval [Min, Max] of
// signed integers.
type IntegerField struct {
	Min, Max   int64
	IsNullable bool
}

// Kind implements [Field].
func (IntegerField) Kind() Kind { return KindInteger }

// Nullable implements [Field].
func (f IntegerField) Nullable() bool { return f.IsNullable }

func (IntegerField) sealed() {}

// rangeSize returns max-min+1, the number of distinct integers in [Min,
// Max]. Callers must have already validated Min <= Max.
func (f IntegerField) rangeSize() uint64 {
	// Both operands fit in int64; the difference is always non-negative
	// and at most 2^64-1 when widened to uint64, since Min/Max are
	// themselves bounded by int64's range. For the full int64 range the
	// count is 2^64, which wraps to 0; rangeSize()-1 is still max-min.
	return uint64(f.Max-f.Min) + 1
}

// EnumField is a field whose domain is a fixed, ordered, distinct sequence
// of non-empty strings.
type EnumField struct {
	Values     []string
	IsNullable bool
}

// Kind implements [Field].
func (EnumField) Kind() Kind { return KindEnum }

// Nullable implements [Field].
func (f EnumField) Nullable() bool { return f.IsNullable }

func (EnumField) sealed() {}

// indexOf returns the 0-based position of value in Values, or -1 if absent.
func (f EnumField) indexOf(value string) int {
	for i, v := range f.Values {
		if v == value {
			return i
		}
	}

	return -1
}

// DateField is a field whose domain is every moment on the Resolution grid
// within [MinDate, MaxDate].
type DateField struct {
	MinDate, MaxDate time.Time
	Resolution       DateResolution
	IsNullable       bool
}

// Kind implements [Field].
func (DateField) Kind() Kind { return KindDate }

// Nullable implements [Field].
func (f DateField) Nullable() bool { return f.IsNullable }

func (DateField) sealed() {}

// unitsInRange returns the count of resolution ticks from MinDate up to and
// including MaxDate. Callers must have already validated MinDate < MaxDate.
func (f DateField) unitsInRange() uint64 {
	step := f.Resolution.step()
	span := f.MaxDate.Sub(f.MinDate)

	return uint64(span/step) + 1
}

// BitmaskField is a field whose domain is subsets of a declared set of
// named flags, each pinned to a bit position in [0, 63].
type BitmaskField struct {
	// Flags maps flag name to bit position. Positions are pairwise
	// distinct and in [0, 63] once validated.
	Flags      map[string]int
	IsNullable bool
}

// Kind implements [Field].
func (BitmaskField) Kind() Kind { return KindBitmask }

// Nullable implements [Field].
func (f BitmaskField) Nullable() bool { return f.IsNullable }

func (BitmaskField) sealed() {}

// maxPosition returns the highest declared bit position. Callers must have
// already validated Flags is non-empty.
func (f BitmaskField) maxPosition() int {
	max := 0
	for _, pos := range f.Flags {
		if pos > max {
			max = pos
		}
	}

	return max
}

// OrderedNames returns flag names sorted by ascending bit position, for
// deterministic rendering and code generation.
func (f BitmaskField) OrderedNames() []string {
	names := make([]string, 0, len(f.Flags))
	for name := range f.Flags {
		names = append(names, name)
	}

	// Simple insertion sort by position: flag counts are tiny (<= 64).
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && f.Flags[names[j-1]] > f.Flags[names[j]]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}

	return names
}

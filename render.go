package bitschema

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderFormat selects the bit-layout table's output format.
type RenderFormat string

// Supported render formats (spec.md §4.5.2).
const (
	RenderASCII    RenderFormat = "ascii"
	RenderMarkdown RenderFormat = "markdown"
)

// renderRow is one row of the bit-layout table: Field | Type | Bit Range |
// Bits | Constraints.
type renderRow struct {
	field       string
	kind        string
	bitRange    string
	bits        string
	constraints string
}

// Render produces a human-readable bit-layout table for layouts in the
// requested format, implementing spec.md §4.5.2.
func Render(layouts []FieldLayout, format RenderFormat) string {
	rows := buildRows(layouts)

	switch format {
	case RenderMarkdown:
		return renderMarkdown(rows)
	default:
		return renderASCII(rows)
	}
}

func buildRows(layouts []FieldLayout) []renderRow {
	header := renderRow{field: "Field", kind: "Type", bitRange: "Bit Range", bits: "Bits", constraints: "Constraints"}
	rows := []renderRow{header}

	for _, l := range layouts {
		hi := int(l.Offset) + int(l.Bits) - 1
		rows = append(rows, renderRow{
			field:       l.Name,
			kind:        string(l.Kind),
			bitRange:    fmt.Sprintf("%d:%d", l.Offset, hi),
			bits:        strconv.Itoa(int(l.Bits)),
			constraints: constraintString(l),
		})
	}

	return rows
}

// constraintString renders the Constraints column for a single field,
// implementing spec.md §4.5.2's per-variant formats.
func constraintString(l FieldLayout) string {
	var s string

	switch f := l.Field.(type) {
	case BooleanField:
		s = "-"

	case IntegerField:
		s = fmt.Sprintf("[%d..%d]", f.Min, f.Max)

	case EnumField:
		s = fmt.Sprintf("%d values", len(f.Values))

	case DateField:
		s = fmt.Sprintf("%s..%s (%s)",
			formatDate(f), f.MaxDate.Format(layoutFor(f.Resolution)), f.Resolution)

	case BitmaskField:
		names := f.OrderedNames()
		s = fmt.Sprintf("%d flags: %s", len(names), strings.Join(names, ", "))

	default:
		panic("bitschema: unhandled Field variant in constraintString")
	}

	if l.Nullable {
		s += " (nullable)"
	}

	return s
}

// renderASCII renders rows as a boxed ASCII grid, column widths computed
// from the widest cell in each column (including the header row).
func renderASCII(rows []renderRow) string {
	widths := columnWidths(rows)

	var b strings.Builder

	writeASCIIRule(&b, widths)
	writeASCIIRow(&b, rows[0], widths)
	writeASCIIRule(&b, widths)

	for _, r := range rows[1:] {
		writeASCIIRow(&b, r, widths)
	}

	writeASCIIRule(&b, widths)

	return b.String()
}

func writeASCIIRule(b *strings.Builder, widths [5]int) {
	b.WriteByte('+')

	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}

	b.WriteByte('\n')
}

func writeASCIIRow(b *strings.Builder, r renderRow, widths [5]int) {
	cells := [5]string{r.field, r.kind, r.bitRange, r.bits, r.constraints}

	b.WriteByte('|')

	for i, cell := range cells {
		fmt.Fprintf(b, " %-*s |", widths[i], cell)
	}

	b.WriteByte('\n')
}

// renderMarkdown renders rows as a GitHub-flavored Markdown table.
func renderMarkdown(rows []renderRow) string {
	var b strings.Builder

	writeMarkdownRow(&b, rows[0])

	b.WriteString("| --- | --- | --- | --- | --- |\n")

	for _, r := range rows[1:] {
		writeMarkdownRow(&b, r)
	}

	return b.String()
}

func writeMarkdownRow(b *strings.Builder, r renderRow) {
	fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", r.field, r.kind, r.bitRange, r.bits, r.constraints)
}

func columnWidths(rows []renderRow) [5]int {
	var widths [5]int

	for _, r := range rows {
		cells := [5]string{r.field, r.kind, r.bitRange, r.bits, r.constraints}
		for i, c := range cells {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	return widths
}

// Package table renders aligned text tables for terminal output
package table

import (
	"fmt"
	"io"
	"strings"
)

// FormatFunc is a callback to format or colorize cell values
type FormatFunc func(value string) string

// Column defines a column's properties
type Column struct {
	Header     string
	BlankValue string     // Value to show for empty cells (default: "-")
	FormatFunc FormatFunc // Optional formatter/colorizer
	MinWidth   int        // Minimum column width
}

// Table holds rows until Render
type Table struct {
	columns []Column
	rows    [][]string
	widths  []int
}

// New creates a table with the given columns
func New(cols ...Column) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}

	for i := range t.columns {
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
		t.widths[i] = max(t.columns[i].MinWidth, len(t.columns[i].Header))
	}

	return t
}

// AddRow adds a row; missing or empty cells show the column's blank value
func (t *Table) AddRow(data ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(data) && data[i] != "" {
			row[i] = data[i]
		} else {
			row[i] = t.columns[i].BlankValue
		}

		if l := visibleLength(row[i]); l > t.widths[i] {
			t.widths[i] = l
		}
	}

	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a separator and all rows to w
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	sep := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = pad(col.Header, t.widths[i])
		sep[i] = strings.Repeat("-", t.widths[i])
	}
	if err := writeLine(w, headers); err != nil {
		return err
	}
	if err := writeLine(w, sep); err != nil {
		return err
	}

	for _, row := range t.rows {
		formatted := make([]string, len(row))
		for i, val := range row {
			if f := t.columns[i].FormatFunc; f != nil {
				val = f(val)
			}
			formatted[i] = pad(val, t.widths[i])
		}
		if err := writeLine(w, formatted); err != nil {
			return err
		}
	}

	return nil
}

func writeLine(w io.Writer, cells []string) error {
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	return err
}

// pad pads a string to the given visible width
func pad(s string, width int) string {
	l := visibleLength(s)
	if l >= width {
		return s
	}
	return s + strings.Repeat(" ", width-l)
}

// visibleLength counts runes outside ANSI color sequences
func visibleLength(s string) int {
	length := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			length++
		}
	}
	return length
}

// Gray dims a value
func Gray(s string) string {
	return fmt.Sprintf("\033[90m%s\033[0m", s)
}

// Unknown dims placeholder values such as "?" and "<?>"
func Unknown(s string) string {
	if s == "?" || s == "<?>" || s == "-" {
		return Gray(s)
	}
	return s
}

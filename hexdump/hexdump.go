// Package hexdump renders attach listener traffic for debug logs
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// ShowOffset determines whether to show the offset column
	ShowOffset bool

	// StartOffset is the starting offset for the hexdump
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		GroupSize:    1,
		ShowASCII:    true,
		ShowOffset:   true,
		OffsetWidth:  8,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], uint64(offset)+options.StartOffset, options)

		lineCount++
	}
}

// formatLine formats a single line of the hex dump
func formatLine(writer io.Writer, data []byte, offset uint64, options Options) {
	if options.ShowOffset {
		fmt.Fprintf(writer, "%0"+strconv.Itoa(options.OffsetWidth)+"x  ", offset)
	}

	hex := strings.Join(formatHexValues(data, options), " ")
	fmt.Fprint(writer, hex)

	if options.ShowASCII {
		// pad short lines so the ASCII column stays aligned
		full := options.BytesPerLine*2 + (options.BytesPerLine+options.GroupSize-1)/options.GroupSize - 1
		if pad := full - len(hex); pad > 0 {
			fmt.Fprint(writer, strings.Repeat(" ", pad))
		}
		fmt.Fprint(writer, " | ", formatASCII(data))
	}

	fmt.Fprintln(writer)
}

// formatASCII renders printable bytes as-is and everything else as '.'
func formatASCII(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c < 0x80 && unicode.IsPrint(rune(c)) {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// formatHexValues formats the hex values of a line grouped by GroupSize
func formatHexValues(data []byte, options Options) []string {
	var result []string
	var group strings.Builder

	for i, b := range data {
		fmt.Fprintf(&group, "%02x", b)

		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			result = append(result, group.String())
			group.Reset()
		}
	}

	return result
}

// DumpCompact creates a short dump suitable for a single log entry
func DumpCompact(data []byte) string {
	options := DefaultOptions()
	options.OffsetWidth = 4
	options.MaxLines = 8
	return Dump(data, options)
}

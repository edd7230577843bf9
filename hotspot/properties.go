package hotspot

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// ParseProperties decodes text in java.util.Properties store format.
// Parsing stops at the first unreadable line; everything decoded up to that
// point is returned together with the error.
func ParseProperties(data []byte) (map[string]string, error) {
	props := make(map[string]string)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var logical strings.Builder
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), " \t\f")

		if logical.Len() == 0 && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}

		// an odd number of trailing backslashes continues the line
		if continues(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)

		key, value := splitProperty(logical.String())
		props[unescape(key)] = unescape(value)
		logical.Reset()
	}

	if logical.Len() > 0 {
		key, value := splitProperty(logical.String())
		props[unescape(key)] = unescape(value)
	}

	return props, scanner.Err()
}

func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitProperty splits at the first unescaped '=', ':' or whitespace
func splitProperty(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '=', ':':
			return line[:i], strings.TrimLeft(line[i+1:], " \t\f")
		case ' ', '\t', '\f':
			rest := strings.TrimLeft(line[i:], " \t\f")
			if rest != "" && (rest[0] == '=' || rest[0] == ':') {
				rest = strings.TrimLeft(rest[1:], " \t\f")
			}
			return line[:i], rest
		}
	}
	return line, ""
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 < len(s) {
				if r, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(r))
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

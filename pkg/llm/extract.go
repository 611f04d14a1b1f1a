package llm

import (
	"strings"
	"unicode"
)

// Between returns the text strictly between the first occurrence of start
// and the first occurrence of end after it. ok is false when either
// delimiter is missing.
func Between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// Lines splits s into trimmed, non-blank lines.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// NumberedLines keeps only the lines whose first character is a digit.
func NumberedLines(s string) []string {
	var out []string
	for _, line := range Lines(s) {
		if unicode.IsDigit([]rune(line)[0]) {
			out = append(out, line)
		}
	}
	return out
}

// Package refs extracts context references from user input and resolves them
// into labeled prompt blocks. A reference is `@` followed by a quoted or bare
// token naming a sandboxed path or a URL.
package refs

import (
	"regexp"
	"strings"
)

// refPattern matches `@path`, `@"quoted path"`, and `@'quoted path'`,
// with optional whitespace after the marker.
var refPattern = regexp.MustCompile(`@\s*(?:"([^"]+)"|'([^']+)'|(\S+))`)

// Stand-ins used when removing references leaves no message text, so the
// generation backend never receives a zero-length prompt.
const (
	PlaceholderContextOnly = "(Referring to provided context)"
	PlaceholderErrorsOnly  = "(Error processing context, no message provided)"
	PlaceholderEmpty       = "(Empty message)"
)

// Parsed is the outcome of scanning user input for inline references.
type Parsed struct {
	// References holds the extracted reference strings in input order.
	References []string
	// Message is the input with all matched spans removed and trimmed.
	// May be empty; see FinalizeMessage.
	Message string
}

// Parse finds every inline reference in input and returns the references in
// input order plus the message with the matched spans removed. Matches are
// consumed in reverse text order so span removal cannot invalidate earlier
// offsets; a match overlapping an already-consumed span is skipped.
func Parse(input string) Parsed {
	matches := refPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return Parsed{Message: input}
	}

	consumed := make([]bool, len(input))
	references := make([]string, len(matches))
	kept := make([]bool, len(matches))

	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		start, end := m[0], m[1]

		overlaps := false
		for j := start; j < end; j++ {
			if consumed[j] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		ref := submatch(input, m, 1)
		if ref == "" {
			ref = submatch(input, m, 2)
		}
		if ref == "" {
			ref = submatch(input, m, 3)
		}
		if ref == "" {
			continue
		}

		references[i] = ref
		kept[i] = true
		for j := start; j < end; j++ {
			consumed[j] = true
		}
	}

	var ordered []string
	for i, ok := range kept {
		if ok {
			ordered = append(ordered, references[i])
		}
	}

	var sb strings.Builder
	for i := 0; i < len(input); i++ {
		if !consumed[i] {
			sb.WriteByte(input[i])
		}
	}

	return Parsed{
		References: ordered,
		Message:    strings.TrimSpace(sb.String()),
	}
}

// FinalizeMessage substitutes a placeholder when reference removal left the
// message empty, chosen by what the resolution pass actually produced.
func FinalizeMessage(cleaned string, contextAdded, hadErrors bool) string {
	if cleaned != "" {
		return cleaned
	}
	switch {
	case contextAdded:
		return PlaceholderContextOnly
	case hadErrors:
		return PlaceholderErrorsOnly
	default:
		return PlaceholderEmpty
	}
}

func submatch(s string, m []int, group int) string {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return ""
	}
	return s[lo:hi]
}

package format

import "strings"

// Vars holds named template parameters substituted by Render.
type Vars map[string]string

const (
	boldDelim = "**"
	codeDelim = "`"
)

type spanKind int

const (
	spanPlain spanKind = iota
	spanBold
	spanCode
)

// EscapeSpans converts authored markup into MarkdownV2 text.
//
// Authored markup is plain text plus two spans: **bold** and `code`. Outside
// spans every reserved character is escaped. Span delimiters are emitted
// unescaped; bold content is escaped so its own asterisks, underscores and
// backticks render literally, and code content is emitted without any escape
// markers because Telegram renders it verbatim. Spans never cross a line
// break and are matched left to right; unmatched delimiters stay escaped.
//
// The transform is not idempotent: escape authored text exactly once.
func EscapeSpans(raw string) string {
	return Render(raw, nil)
}

// Render escapes authored markup like EscapeSpans and substitutes {name}
// placeholders found in vars. Values are treated as raw text and escaped for
// the span they land in, so callers never pass pre-escaped fragments.
// Placeholders without a matching var are kept as literal escaped text.
func Render(template string, vars Vars) string {
	if template == "" {
		return ""
	}
	src := []rune(template)
	var b strings.Builder
	b.Grow(len(template) + len(template)/4)

	for i := 0; i < len(src); {
		if hasPrefixAt(src, i, boldDelim) {
			if end := closingDelim(src, i+len(boldDelim), boldDelim); end > i+len(boldDelim) {
				b.WriteString(boldDelim)
				writeSpan(&b, src[i+len(boldDelim):end], vars, spanBold)
				b.WriteString(boldDelim)
				i = end + len(boldDelim)
				continue
			}
		}
		if hasPrefixAt(src, i, codeDelim) {
			if end := closingDelim(src, i+len(codeDelim), codeDelim); end > i+len(codeDelim) {
				b.WriteString(codeDelim)
				writeSpan(&b, src[i+len(codeDelim):end], vars, spanCode)
				b.WriteString(codeDelim)
				i = end + len(codeDelim)
				continue
			}
		}
		if name, n, ok := placeholderAt(src, i, vars); ok {
			writeValue(&b, vars[name], spanPlain)
			i += n
			continue
		}
		writeRune(&b, src[i], spanPlain)
		i++
	}
	return b.String()
}

func writeSpan(b *strings.Builder, content []rune, vars Vars, kind spanKind) {
	for i := 0; i < len(content); {
		if name, n, ok := placeholderAt(content, i, vars); ok {
			writeValue(b, vars[name], kind)
			i += n
			continue
		}
		writeRune(b, content[i], kind)
		i++
	}
}

func writeValue(b *strings.Builder, value string, kind spanKind) {
	for _, r := range value {
		if kind == spanCode && r == '`' {
			// a raw backtick would close the span early
			r = '\''
		}
		writeRune(b, r, kind)
	}
}

func writeRune(b *strings.Builder, r rune, kind spanKind) {
	if kind != spanCode && isReserved(r) {
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

func hasPrefixAt(src []rune, i int, prefix string) bool {
	p := []rune(prefix)
	if i+len(p) > len(src) {
		return false
	}
	for j, r := range p {
		if src[i+j] != r {
			return false
		}
	}
	return true
}

// closingDelim returns the index of the next delim on the same line, or -1.
func closingDelim(src []rune, from int, delim string) int {
	for i := from; i < len(src); i++ {
		if src[i] == '\n' {
			return -1
		}
		if hasPrefixAt(src, i, delim) {
			return i
		}
	}
	return -1
}

// placeholderAt matches {name} at i when name is a key of vars.
func placeholderAt(src []rune, i int, vars Vars) (string, int, bool) {
	if len(vars) == 0 || src[i] != '{' {
		return "", 0, false
	}
	for j := i + 1; j < len(src) && j-i <= 32; j++ {
		r := src[j]
		if r == '}' {
			if j == i+1 {
				return "", 0, false
			}
			name := string(src[i+1 : j])
			if _, ok := vars[name]; !ok {
				return "", 0, false
			}
			return name, j - i + 1, true
		}
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", 0, false
		}
	}
	return "", 0, false
}

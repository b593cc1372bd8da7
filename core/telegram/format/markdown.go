package format

import "strings"

// reservedV2 are the characters MarkdownV2 requires to be escaped outside
// entities, backslash included.
const reservedV2 = "\\_*[]()~`>#+-=|{}.!"

// EscapeV2 prefixes every reserved character with a backslash.
func EscapeV2(text string) string {
	if !strings.ContainsAny(text, reservedV2) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if isReserved(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isReserved(r rune) bool {
	return strings.ContainsRune(reservedV2, r)
}

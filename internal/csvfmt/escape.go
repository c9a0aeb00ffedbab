// Package csvfmt implements the single quoting rule spec.md §6 defines for
// both on-disk CSV rows and operator-output lines: a field is quoted (with
// inner quotes doubled) iff it contains the separator or a double quote.
// encoding/csv hard-codes comma as the separator, which does not cover the
// operator surface's space-separated fields, so both writers share this
// small helper instead.
package csvfmt

import "strings"

// Escape quotes s if it contains sep or a double quote, doubling any
// interior quotes. Otherwise s is returned unchanged.
func Escape(sep byte, s string) string {
	if !strings.ContainsRune(s, rune(sep)) && !strings.Contains(s, `"`) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			b.WriteByte('"')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Join escapes each field and joins them with sep.
func Join(sep byte, fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = Escape(sep, f)
	}
	return strings.Join(escaped, string(sep))
}

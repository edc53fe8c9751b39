package compiler

import (
	"strings"
	"unicode/utf16"
)

var specialReplacements = map[rune]string{
	'#':  `\#`,
	'$':  `\$`,
	'%':  `\%`,
	'&':  `\&`,
	'_':  `\_`,
	'{':  `\{`,
	'}':  `\}`,
	'~':  `\textasciitilde{}`,
	'^':  `\textasciicircum{}`,
	'\\': `\textbackslash{}`,
}

// Escape turns LaTeX special characters into their printable forms so the
// source is typeset literally. A special character that is already preceded
// by a backslash is left alone together with that backslash, so "\%" and
// "\\" survive unchanged while a bare "\" becomes \textbackslash{}.
func Escape(source string) string {
	var b strings.Builder
	b.Grow(len(source))

	runes := []rune(source)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			if _, special := specialReplacements[runes[i+1]]; special {
				b.WriteRune(r)
				b.WriteRune(runes[i+1])
				i++
				continue
			}
		}
		if repl, ok := specialReplacements[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Truncate returns the longest prefix of s that fits in n UTF-16 code units,
// the unit the document length limit uses. A character outside the Basic
// Multilingual Plane counts as two and is never split.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	units := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if units+w > n {
			return s[:i]
		}
		units += w
	}
	return s
}

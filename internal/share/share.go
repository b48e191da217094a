// Package share builds website links for searches and puts them on the
// clipboard.
package share

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/muesli/termenv"
)

// EncodeQueryComponent percent-encodes a query value the way the website
// does (JS encodeURIComponent): space becomes %20, & becomes %26, and
// !*'() stay literal. Stdlib url.QueryEscape encodes space as '+' and
// url.PathEscape leaves sub-delims alone, so neither produces matching links.
func EncodeQueryComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~' ||
			c == '!' || c == '*' || c == '\'' || c == '(' || c == ')':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

// FilterOrder fixes the parameter order of share links.
var FilterOrder = []string{"type", "sort", "dateStart", "dateEnd", "tags", "fuzzy"}

// SearchURL constructs the website's search page link for a committed
// query plus optional filter parameters.
func SearchURL(origin, query string, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(origin, "/"))
	b.WriteString("/search?q=")
	b.WriteString(EncodeQueryComponent(query))
	for _, k := range FilterOrder {
		if v, ok := filters[k]; ok && v != "" {
			b.WriteString("&")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(EncodeQueryComponent(v))
		}
	}
	return b.String()
}

// CopyToClipboard puts s on the system clipboard, falling back to an OSC 52
// escape when no native clipboard is reachable (e.g. over SSH).
func CopyToClipboard(s string) error {
	if err := clipboard.WriteAll(s); err != nil {
		// Best effort: emit OSC 52 and let the terminal handle it.
		termenv.Copy(s)
	}
	return nil
}

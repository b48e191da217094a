// Package highlight builds display excerpts for search results.
//
// When the server already highlighted the match, its inline <mark> runs are
// trusted. Otherwise a best-effort case-insensitive window is cut around the
// first occurrence of the query.
package highlight

import (
	"regexp"
	"strings"
)

const (
	// leadingContext is how many runes precede the first match.
	leadingContext = 50
	// maxExcerpt is the total excerpt length in runes.
	maxExcerpt = 200

	ellipsis = "…"
)

// Span marks a highlighted run within Excerpt.Text, in rune offsets.
type Span struct {
	Start int
	End   int
}

// Excerpt is display text plus the runs to emphasize.
type Excerpt struct {
	Text  string
	Spans []Span
}

var (
	markOpenRE = regexp.MustCompile(`(?i)^<mark(\s[^>]*)?>$`)
	tagRE      = regexp.MustCompile(`<[^>]+>`)
)

// HasMarkup reports whether s carries server-side highlight markup.
func HasMarkup(s string) bool {
	return strings.Contains(strings.ToLower(s), "<mark")
}

// FromMarked converts server-highlighted text into an Excerpt: <mark> runs
// become spans, every tag is stripped from the output.
func FromMarked(s string) Excerpt {
	var (
		b       strings.Builder
		spans   []Span
		pos     int // rune offset in output
		open    = -1
		lastEnd int
	)

	for _, loc := range tagRE.FindAllStringIndex(s, -1) {
		text := s[lastEnd:loc[0]]
		b.WriteString(text)
		pos += len([]rune(text))
		lastEnd = loc[1]

		tag := s[loc[0]:loc[1]]
		switch {
		case markOpenRE.MatchString(tag):
			open = pos
		case strings.EqualFold(tag, "</mark>"):
			if open >= 0 && pos > open {
				spans = append(spans, Span{Start: open, End: pos})
			}
			open = -1
		}
	}
	b.WriteString(s[lastEnd:])

	return Excerpt{Text: b.String(), Spans: spans}
}

// Build cuts a window around the first case-insensitive occurrence of query
// in text: up to leadingContext runes before the match, maxExcerpt runes in
// total, with an ellipsis wherever the window truncates.
//
// If the query does not occur, the excerpt is simply the head of the text.
func Build(text, query string) Excerpt {
	runes := []rune(text)
	qRunes := []rune(query)

	idx := indexFold(runes, qRunes)
	if idx < 0 || len(qRunes) == 0 {
		return headExcerpt(runes)
	}

	start := idx - leadingContext
	if start < 0 {
		start = 0
	}
	end := start + maxExcerpt
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	offset := 0
	if start > 0 {
		b.WriteString(ellipsis)
		offset = 1
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}

	matchStart := idx - start + offset
	matchEnd := matchStart + len(qRunes)
	windowLen := end - start + offset
	if matchEnd > windowLen {
		matchEnd = windowLen
	}

	span := []Span{}
	if matchEnd > matchStart {
		span = append(span, Span{Start: matchStart, End: matchEnd})
	}

	return Excerpt{Text: b.String(), Spans: span}
}

// headExcerpt truncates text to maxExcerpt runes with a trailing ellipsis.
func headExcerpt(runes []rune) Excerpt {
	if len(runes) <= maxExcerpt {
		return Excerpt{Text: string(runes)}
	}
	return Excerpt{Text: string(runes[:maxExcerpt]) + ellipsis}
}

// indexFold returns the rune offset of the first case-insensitive
// occurrence of needle in haystack, or -1.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	lowerHay := strings.ToLower(string(haystack))
	lowerNeedle := strings.ToLower(string(needle))
	byteIdx := strings.Index(lowerHay, lowerNeedle)
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(lowerHay[:byteIdx]))
}

package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasMarkup(t *testing.T) {
	assert.True(t, HasMarkup("found <mark>here</mark>"))
	assert.True(t, HasMarkup(`<MARK class="hl">x</MARK>`))
	assert.False(t, HasMarkup("plain text"))
	assert.False(t, HasMarkup("<b>bold</b> only"))
}

func TestFromMarked_SingleRun(t *testing.T) {
	ex := FromMarked("rotating <mark>pasture</mark> early")

	assert.Equal(t, "rotating pasture early", ex.Text)
	require.Len(t, ex.Spans, 1)
	assert.Equal(t, Span{Start: 9, End: 16}, ex.Spans[0])
	assert.Equal(t, "pasture", string([]rune(ex.Text)[ex.Spans[0].Start:ex.Spans[0].End]))
}

func TestFromMarked_MultipleRunsAndAttributes(t *testing.T) {
	ex := FromMarked(`<mark class="hl">soil</mark> and <mark>water</mark>`)

	assert.Equal(t, "soil and water", ex.Text)
	require.Len(t, ex.Spans, 2)
	assert.Equal(t, "soil", string([]rune(ex.Text)[ex.Spans[0].Start:ex.Spans[0].End]))
	assert.Equal(t, "water", string([]rune(ex.Text)[ex.Spans[1].Start:ex.Spans[1].End]))
}

func TestFromMarked_StripsForeignTags(t *testing.T) {
	ex := FromMarked("<p>the <b>best</b> <mark>hay</mark></p>")

	assert.Equal(t, "the best hay", ex.Text)
	require.Len(t, ex.Spans, 1)
	assert.Equal(t, "hay", string([]rune(ex.Text)[ex.Spans[0].Start:ex.Spans[0].End]))
}

func TestFromMarked_UnbalancedMarkup(t *testing.T) {
	// A dangling open tag produces no span but the text still renders.
	ex := FromMarked("broken <mark>highlight")
	assert.Equal(t, "broken highlight", ex.Text)
	assert.Empty(t, ex.Spans)

	// A stray close tag is ignored.
	ex = FromMarked("stray</mark> close")
	assert.Equal(t, "stray close", ex.Text)
	assert.Empty(t, ex.Spans)
}

func TestFromMarked_MultibyteOffsets(t *testing.T) {
	ex := FromMarked("牧草の<mark>管理</mark>方法")

	assert.Equal(t, "牧草の管理方法", ex.Text)
	require.Len(t, ex.Spans, 1)
	// Offsets are rune positions, not byte positions.
	assert.Equal(t, Span{Start: 3, End: 5}, ex.Spans[0])
}

func TestBuild_MatchNearStart(t *testing.T) {
	ex := Build("cattle feed for the winter months", "cattle")

	assert.Equal(t, "cattle feed for the winter months", ex.Text)
	require.Len(t, ex.Spans, 1)
	assert.Equal(t, Span{Start: 0, End: 6}, ex.Spans[0])
}

func TestBuild_CaseInsensitive(t *testing.T) {
	ex := Build("Silage Quality matters", "silage quality")

	require.Len(t, ex.Spans, 1)
	assert.Equal(t, "Silage Quality", string([]rune(ex.Text)[ex.Spans[0].Start:ex.Spans[0].End]))
}

func TestBuild_LeadingContextWindow(t *testing.T) {
	prefix := strings.Repeat("a", 120)
	text := prefix + " barley harvest notes " + strings.Repeat("b", 300)

	ex := Build(text, "barley")

	runes := []rune(ex.Text)
	// Truncated on both sides.
	assert.Equal(t, "…", string(runes[0]))
	assert.Equal(t, "…", string(runes[len(runes)-1]))
	// At most the window plus two ellipses.
	assert.LessOrEqual(t, len(runes), maxExcerpt+2)

	require.Len(t, ex.Spans, 1)
	matched := string(runes[ex.Spans[0].Start:ex.Spans[0].End])
	assert.Equal(t, "barley", matched)
	// The match sits leadingContext runes into the window (plus the ellipsis).
	assert.Equal(t, leadingContext+1, ex.Spans[0].Start)
}

func TestBuild_ShortTextNoEllipsis(t *testing.T) {
	ex := Build("organic soil", "soil")

	assert.Equal(t, "organic soil", ex.Text)
	assert.NotContains(t, ex.Text, "…")
}

func TestBuild_NoMatchFallsBackToHead(t *testing.T) {
	long := strings.Repeat("x", maxExcerpt+50)
	ex := Build(long, "missing")

	runes := []rune(ex.Text)
	assert.Equal(t, maxExcerpt+1, len(runes)) // head + trailing ellipsis
	assert.Empty(t, ex.Spans)

	short := Build("short text", "missing")
	assert.Equal(t, "short text", short.Text)
	assert.Empty(t, short.Spans)
}

func TestBuild_EmptyQuery(t *testing.T) {
	ex := Build("some content", "")
	assert.Equal(t, "some content", ex.Text)
	assert.Empty(t, ex.Spans)
}

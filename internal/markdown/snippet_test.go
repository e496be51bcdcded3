package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippet_ShortDocument(t *testing.T) {
	raw := "# A\nfoo\n## B\nbar baz"

	snippet, anchor := Snippet(raw, "baz", 200)

	assert.Equal(t, "A foo B bar baz", snippet)
	assert.Equal(t, "b", anchor)
}

func TestSnippet_WindowCentersTerm(t *testing.T) {
	raw := strings.Repeat("lorem ipsum dolor ", 30) + "needle" + strings.Repeat(" sit amet", 30)

	snippet, anchor := Snippet(raw, "needle", 60)

	assert.Contains(t, snippet, "needle")
	assert.True(t, strings.HasPrefix(snippet, "..."), "snippet should mark a cut lead: %q", snippet)
	assert.True(t, strings.HasSuffix(snippet, "..."), "snippet should mark a cut tail: %q", snippet)
	// 60 chars of window plus the two ellipsis markers.
	assert.Len(t, snippet, 66)
	assert.Equal(t, "", anchor)
}

func TestSnippet_CaseInsensitive(t *testing.T) {
	snippet, _ := Snippet("Working with Redis Stack", "redis", 100)

	assert.Contains(t, snippet, "Redis")
}

func TestSnippet_TermOnlyInMarkup_FallsBackToLead(t *testing.T) {
	// The term occurs only inside a link target, which stripping removes.
	raw := "# Intro\nplain prose here, see [docs](https://example.com/needle)"

	snippet, _ := Snippet(raw, "needle", 100)

	assert.Equal(t, "Intro plain prose here, see docs", snippet)
}

func TestSnippet_EmptyTerm(t *testing.T) {
	snippet, anchor := Snippet("# Head\nbody text", "", 100)

	assert.Equal(t, "Head body text", snippet)
	assert.Equal(t, "", anchor)
}

func TestLead_Truncates(t *testing.T) {
	raw := strings.Repeat("word ", 100)

	got := Lead(raw, 50)

	assert.Len(t, got, 53)
	assert.True(t, strings.HasSuffix(got, "..."))
}

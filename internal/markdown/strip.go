// Package markdown turns raw markdown bodies into search snippets, heading
// anchors, and embedding input text. It is deliberately not a full markdown
// parser: documents are authored in plain ATX-style markdown and the output
// only needs to read cleanly in a result list.
package markdown

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRE   = regexp.MustCompile("(?s)```.*?```")
	imageRE        = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	headingMarkRE  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkRE         = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	underscoreEmRE = regexp.MustCompile(`_([^_\n]+)_`)
	blankRunRE     = regexp.MustCompile(`\n{3,}`)
	spaceRunRE     = regexp.MustCompile(`\s+`)
)

var inlineMarkReplacer = strings.NewReplacer(
	"**", "",
	"__", "",
	"*", "",
	"`", "",
)

// Strip removes markdown decoration, leaving plain prose. Fenced code blocks
// and images are dropped entirely; headings, emphasis, and inline code keep
// their text; links keep their label. Whitespace collapses to single spaces.
// Idempotent: stripping already-stripped text is a no-op.
func Strip(raw string) string {
	s := fencedCodeRE.ReplaceAllString(raw, "")
	s = imageRE.ReplaceAllString(s, "")
	s = headingMarkRE.ReplaceAllString(s, "")
	s = inlineMarkReplacer.Replace(s)
	s = underscoreEmRE.ReplaceAllString(s, "$1")
	s = linkRE.ReplaceAllString(s, "$1")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	s = spaceRunRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanForEmbedding prepares a body for the embedding input: code blocks and
// images are noise for a sentence-embedding model, prose structure is kept.
func CleanForEmbedding(raw string) string {
	s := fencedCodeRE.ReplaceAllString(raw, "")
	s = imageRE.ReplaceAllString(s, "")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

package markdown

import (
	"regexp"
	"strings"
)

var (
	slugStripRE = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRE = regexp.MustCompile(`\s+`)
	slugDashRE  = regexp.MustCompile(`-{2,}`)

	atxHeadingRE = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
)

// Slugify converts heading text to its rendered heading id: lower-cased,
// punctuation stripped, whitespace runs become single dashes.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = slugStripRE.ReplaceAllString(s, "")
	s = slugSpaceRE.ReplaceAllString(s, "-")
	s = slugDashRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

type heading struct {
	id     string
	offset int // character offset of the heading line's start in the raw text
}

// headings scans the raw text line by line and records every ATX heading with
// the offset of its line start.
func headings(raw string) []heading {
	var hs []heading
	offset := 0
	for _, line := range strings.Split(raw, "\n") {
		if m := atxHeadingRE.FindStringSubmatch(line); m != nil {
			if id := Slugify(m[2]); id != "" {
				hs = append(hs, heading{id: id, offset: offset})
			}
		}
		offset += len(line) + 1
	}
	return hs
}

// anchorFor returns the id of the last heading whose offset is at or before
// matchOffset, or "" when no heading precedes the match.
func anchorFor(raw string, matchOffset int) string {
	anchor := ""
	for _, h := range headings(raw) {
		if h.offset > matchOffset {
			break
		}
		anchor = h.id
	}
	return anchor
}

package markdown

import "strings"

// Snippet builds a display snippet for the first case-insensitive occurrence
// of term, plus the id of the nearest preceding heading so the UI can deep-link
// into the matching section. The anchor is resolved against the original text
// (heading offsets only exist there); the snippet window is cut from the
// stripped text and centered so the term stays visible: a third of the budget
// goes to leading context. When the term cannot be relocated after stripping,
// the snippet falls back to the document lead.
func Snippet(raw, term string, maxLen int) (snippet, anchor string) {
	stripped := Strip(raw)
	if term == "" {
		return lead(stripped, maxLen), ""
	}

	if i := indexFold(raw, term); i >= 0 {
		anchor = anchorFor(raw, i)
	}

	i := indexFold(stripped, term)
	if i < 0 {
		return lead(stripped, maxLen), anchor
	}

	start := i - maxLen/3
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(stripped) {
		end = len(stripped)
	}

	s := stripped[start:end]
	if start > 0 {
		s = "..." + s
	}
	if end < len(stripped) {
		s += "..."
	}
	return s, anchor
}

// Lead returns the opening of the stripped text, for previews without a
// matched term (semantic results).
func Lead(raw string, maxLen int) string {
	return lead(Strip(raw), maxLen)
}

func lead(stripped string, maxLen int) string {
	if len(stripped) <= maxLen {
		return stripped
	}
	return stripped[:maxLen] + "..."
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

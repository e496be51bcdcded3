package domain

// SearchResult is one ranked entry of a search response. Ephemeral: built per
// query, never persisted. Score is a similarity value in semantic mode and
// zero in keyword mode (ordering there is positional).
type SearchResult struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Snippet     string  `json:"snippet"`
	Anchor      string  `json:"anchor,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

package db

// KNNQuery describes a vector similarity search against an FT index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Filter       string // pre-filter query string, e.g. "@published:{1}"; empty means "*"
	ReturnFields []string
}

// SearchEntry is one raw search hit: the hash key plus requested fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is the raw outcome of an FT.SEARCH call.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

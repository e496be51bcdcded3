package domain

// VectorMatch is one hit from the approximate nearest-neighbor index:
// a document id with its similarity score (1.0 = identical direction).
type VectorMatch struct {
	ID    string
	Score float64
}

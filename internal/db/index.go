package db

// IndexFieldType is the FT field type.
type IndexFieldType string

// FT index field types.
const (
	IndexFieldTag    IndexFieldType = "TAG"
	IndexFieldVector IndexFieldType = "VECTOR"
)

// VectorParams holds HNSW vector field parameters.
type VectorParams struct {
	Dimensions  int
	M           int
	EFConstruct int
}

// IndexField describes one schema field of an FT index.
type IndexField struct {
	Name   string
	Type   IndexFieldType
	Vector *VectorParams // required when Type == IndexFieldVector
}

// IndexDefinition describes an FT index over a hash key prefix.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

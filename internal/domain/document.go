package domain

import "fmt"

// Kind discriminates the two document variants.
type Kind string

// Document kinds.
const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// Kinds returns all document kinds in retrieval order (posts before pages).
func Kinds() []Kind { return []Kind{KindPost, KindPage} }

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPost, KindPage:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
	}
}

// Document is one published piece of content. The body is not stored here:
// ContentAddress is an opaque key into the blob gateway. The search core reads
// every field and writes only Embedding; identity and publication state are
// owned by the content sync.
type Document struct {
	ID             string
	Kind           Kind
	Slug           string
	Title          string
	Description    string
	ContentAddress string
	Published      bool
	Unlisted       bool     // posts only: excluded from search/listing, directly addressable
	Tags           []string // posts only
	Embedding      []float32
}

// HasEmbedding reports whether a vector has been persisted for this document.
func (d *Document) HasEmbedding() bool { return len(d.Embedding) > 0 }

// Listed reports whether the document participates in search and listings.
func (d *Document) Listed() bool { return d.Published && !d.Unlisted }

// Validate checks the publication invariant: a published document must carry
// a content address.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return err
	}
	if d.Slug == "" {
		return fmt.Errorf("document %s: slug is required", d.ID)
	}
	if d.Published && d.ContentAddress == "" {
		return fmt.Errorf("published document %s: %w", d.Slug, ErrAddressEmpty)
	}
	return nil
}

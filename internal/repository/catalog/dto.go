package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/quietpage/inkdex/internal/domain"
)

// Hash field names. The FT index schema in index definitions must stay in
// sync with these.
const (
	fieldID          = "id"
	fieldKind        = "kind"
	fieldSlug        = "slug"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldAddress     = "content_address"
	fieldPublished   = "published"
	fieldUnlisted    = "unlisted"
	fieldTags        = "tags"
	fieldEmbedding   = "embedding"
)

func documentToFields(doc *domain.Document) map[string]string {
	fields := map[string]string{
		fieldID:          doc.ID,
		fieldKind:        string(doc.Kind),
		fieldSlug:        doc.Slug,
		fieldTitle:       doc.Title,
		fieldDescription: doc.Description,
		fieldAddress:     doc.ContentAddress,
		fieldPublished:   encodeBool(doc.Published),
		fieldUnlisted:    encodeBool(doc.Unlisted),
	}
	if len(doc.Tags) > 0 {
		fields[fieldTags] = strings.Join(doc.Tags, ",")
	}
	if doc.HasEmbedding() {
		fields[fieldEmbedding] = string(embeddingToBytes(doc.Embedding))
	}
	return fields
}

func documentFromFields(kind domain.Kind, fields map[string]string) (domain.Document, error) {
	doc := domain.Document{
		ID:             fields[fieldID],
		Kind:           kind,
		Slug:           fields[fieldSlug],
		Title:          fields[fieldTitle],
		Description:    fields[fieldDescription],
		ContentAddress: fields[fieldAddress],
		Published:      fields[fieldPublished] == "1",
		Unlisted:       fields[fieldUnlisted] == "1",
	}
	if tags := fields[fieldTags]; tags != "" {
		doc.Tags = strings.Split(tags, ",")
	}
	if raw := fields[fieldEmbedding]; raw != "" {
		vec, err := bytesToEmbedding([]byte(raw))
		if err != nil {
			return domain.Document{}, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		doc.Embedding = vec
	}
	return doc, nil
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func embeddingToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
)

var syncManifest string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load the document catalog from a site manifest",
	Long: `Sync reads the static site generator's manifest (a JSON array of
document metadata) and upserts every entry into the store. Bodies stay on the
content gateway; only metadata and content addresses are stored. Existing
embeddings survive the upsert, so sync is safe to run on every deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncManifest, "manifest", "manifest.json", "path to the site manifest")
}

// manifestDoc is one entry of the site manifest.
type manifestDoc struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	ContentAddress string   `json:"content_address"`
	Published      bool     `json:"published"`
	Unlisted       bool     `json:"unlisted"`
	Tags           []string `json:"tags"`
}

func runSync(ctx context.Context) error {
	data, err := os.ReadFile(filepath.Clean(syncManifest))
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var entries []manifestDoc
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.embedder != nil {
		if err := a.catalog.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure vector indexes: %w", err)
		}
	}

	upserted, failed := 0, 0
	for i := range entries {
		doc, err := documentFromManifest(&entries[i])
		if err != nil {
			failed++
			a.logger.Warn("skipping manifest entry",
				zap.Int("index", i),
				zap.String("slug", entries[i].Slug),
				zap.Error(err),
			)
			continue
		}

		// Upsert keeps any stored embedding; backfill fills the rest.
		if prev, err := a.catalog.DocumentBySlug(ctx, doc.Kind, doc.Slug); err == nil && prev.HasEmbedding() {
			doc.Embedding = prev.Embedding
		}

		if err := a.catalog.UpsertDocument(ctx, &doc); err != nil {
			failed++
			a.logger.Warn("upsert failed",
				zap.String("slug", doc.Slug),
				zap.Error(err),
			)
			continue
		}
		upserted++
	}

	a.logger.Info("sync complete",
		zap.Int("upserted", upserted),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d manifest entries failed", failed, len(entries))
	}
	return nil
}

func documentFromManifest(m *manifestDoc) (domain.Document, error) {
	kind, err := domain.ParseKind(m.Kind)
	if err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:             m.ID,
		Kind:           kind,
		Slug:           m.Slug,
		Title:          m.Title,
		Description:    m.Description,
		ContentAddress: m.ContentAddress,
		Published:      m.Published,
		Unlisted:       m.Unlisted,
		Tags:           m.Tags,
	}
	if doc.ID == "" {
		doc.ID = doc.Slug
	}
	if err := doc.Validate(); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

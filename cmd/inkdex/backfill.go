package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/domain"
)

var (
	backfillKind  string
	backfillLimit int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed documents that are missing a vector",
	Long: `Backfill runs one bounded embedding pass over documents without a
vector. Run it from cron or a scheduler; repeated invocations converge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackfill(cmd.Context())
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillKind, "kind", "", "restrict to one kind (post or page)")
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "max documents per kind (0 = configured batch limit)")
}

func runBackfill(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	kinds := domain.Kinds()
	if backfillKind != "" {
		kind, err := domain.ParseKind(backfillKind)
		if err != nil {
			return err
		}
		kinds = []domain.Kind{kind}
	}

	limit := backfillLimit
	if limit <= 0 {
		limit = a.cfg.Embedding.BatchLimit
	}

	if a.embedder != nil {
		if err := a.catalog.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure vector indexes: %w", err)
		}
	}

	for _, kind := range kinds {
		report, err := a.embedSvc.EnsureEmbeddings(ctx, kind, limit)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", kind, err)
		}
		if report.Skipped {
			a.logger.Info("backfill skipped", zap.String("kind", string(kind)))
			continue
		}
		a.logger.Info("backfill done",
			zap.String("kind", string(kind)),
			zap.Int("embedded", report.Embedded()),
			zap.Int("failed", report.Failed()),
		)
	}
	return nil
}

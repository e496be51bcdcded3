package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reembedCmd = &cobra.Command{
	Use:   "reembed <slug>",
	Short: "Regenerate the embedding for one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReembed(cmd.Context(), args[0])
	},
}

func runReembed(ctx context.Context, slug string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.embedSvc.RegenerateEmbedding(ctx, slug); err != nil {
		return fmt.Errorf("reembed %s: %w", slug, err)
	}

	a.logger.Info("embedding regenerated", zap.String("slug", slug))
	return nil
}

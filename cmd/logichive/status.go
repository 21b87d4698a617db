package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/config"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngineConfig(func(ctx context.Context, cfg *config.Config, e *engine.Engine) error {
			recs, err := e.List(ctx, 10000, true)
			if err != nil {
				return err
			}

			byStatus := make(map[string]int)
			for _, rec := range recs {
				byStatus[rec.Status]++
			}

			fmt.Printf("store:   %s\n", cfg.Store.Path)
			fmt.Printf("total:   %d functions\n", len(recs))
			for _, status := range []string{
				storage.StatusVerified, storage.StatusPendingTests, storage.StatusPending,
				storage.StatusFailed, storage.StatusBroken, storage.StatusErrorInternal,
				storage.StatusArchived,
			} {
				if n := byStatus[status]; n > 0 {
					fmt.Printf("  %-14s %d\n", status, n)
				}
			}

			embeddings, err := e.Vecs().Count(ctx)
			if err == nil {
				fmt.Printf("vectors: %d (%s)\n", embeddings, e.ModelInfo().Name)
			}
			return nil
		})
	},
}

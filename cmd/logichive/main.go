// Command logichive is the function store CLI: save, search, bundle
// and maintain a local catalog of reusable functions, and sync it with
// a remote hub.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/config"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "logichive",
		Short:   "LogicHive - local-first store of verified, reusable functions",
		Version: Version,
	}

	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reapCmd)
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEngine loads configuration, builds a fully wired engine, runs fn,
// then drains background maintenance so a one-shot process never
// abandons queued verification work.
func withEngine(fn func(ctx context.Context, e *engine.Engine) error) error {
	return withEngineConfig(func(ctx context.Context, _ *config.Config, e *engine.Engine) error {
		return fn(ctx, e)
	})
}

func withEngineConfig(fn func(ctx context.Context, cfg *config.Config, e *engine.Engine) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	e, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer e.Close()

	if err := fn(ctx, cfg, e); err != nil {
		return err
	}
	return e.Drain(ctx)
}

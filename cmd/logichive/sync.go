package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/config"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/sync"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Exchange functions with the remote hub",
	}
	cmd.AddCommand(syncPullCmd, syncPushCmd, syncPublishCmd)
	return cmd
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge remote functions into the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncer(func(ctx context.Context, s *sync.Syncer) error {
			updated, err := s.Pull(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("pulled %d updated functions\n", updated)
			return nil
		})
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push [name]",
	Short: "Submit one function to the hub for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncer(func(ctx context.Context, s *sync.Syncer) error {
			if err := s.Push(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("pushed %s\n", args[0])
			return nil
		})
	},
}

var syncPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Submit every local function to the hub",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncer(func(ctx context.Context, s *sync.Syncer) error {
			pushed, err := s.PublishAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("published %d functions\n", pushed)
			return nil
		})
	},
}

func withSyncer(fn func(ctx context.Context, s *sync.Syncer) error) error {
	return withEngineConfig(func(ctx context.Context, cfg *config.Config, e *engine.Engine) error {
		if cfg.Hub.URL == "" {
			return fmt.Errorf("no hub configured; set hub.url in %s", config.GlobalConfigPath())
		}
		mediator := sync.NewHubMediator(cfg.Hub.URL, cfg.Hub.APIKey)
		return fn(ctx, sync.NewSyncer(e.Store(), e.Lock(), mediator))
	})
}

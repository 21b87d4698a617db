package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/config"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/retention"
)

var scoreCmd = &cobra.Command{
	Use:   "score [name]",
	Short: "Run the quality gate over a stored function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			report, err := e.ScoreFunction(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("score:       %d (%s)\n", report.FinalScore, report.Reliability)
			fmt.Printf("lint:        %v\n", report.LintPassed)
			for _, lintErr := range report.LintErrors {
				fmt.Printf("  %s\n", lintErr)
			}
			fmt.Printf("formatted:   %v", report.Formatted)
			if report.FormatNote != "" {
				fmt.Printf(" (%s)", report.FormatNote)
			}
			fmt.Println()
			fmt.Printf("audit safe:  %v", report.AuditSafe)
			if report.AuditReason != "" {
				fmt.Printf(" (%s)", report.AuditReason)
			}
			fmt.Println()
			if report.Feedback != "" {
				fmt.Printf("feedback:    %s\n", report.Feedback)
			}
			return nil
		})
	},
}

var reapWatch bool

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Archive stale, low-value functions per the retention policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngineConfig(func(ctx context.Context, cfg *config.Config, e *engine.Engine) error {
			scorer := retention.NewScorer()
			if cfg.Retention.Threshold > 0 {
				scorer.Threshold = cfg.Retention.Threshold
			}
			if cfg.Retention.GraceDays > 0 {
				scorer.GraceDays = cfg.Retention.GraceDays
			}
			reaper := retention.NewReaper(e.Store(), scorer, e)

			if reapWatch {
				if !cfg.Retention.Enabled {
					return fmt.Errorf("retention is disabled; set retention.enabled in %s", config.GlobalConfigPath())
				}
				interval := time.Duration(cfg.Retention.IntervalHours) * time.Hour
				if interval <= 0 {
					interval = 24 * time.Hour
				}
				watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				fmt.Printf("reaping every %s; press Ctrl-C to stop\n", interval)
				reaper.Start(watchCtx, interval)
				return nil
			}

			archived, err := reaper.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("archived %d functions\n", archived)
			return nil
		})
	},
}

func init() {
	reapCmd.Flags().BoolVar(&reapWatch, "watch", false, "keep running and reap on the configured interval")
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
)

var (
	listLimit    int
	listArchived bool
	triageLimit  int
)

var getCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a function's code (records the usage)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			code, err := e.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		})
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details [name]",
	Short: "Show a function's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			rec, err := e.GetDetails(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Name:        %s\n", rec.Name)
			fmt.Printf("Status:      %s\n", rec.Status)
			fmt.Printf("Description: %s\n", rec.Description)
			fmt.Printf("Tags:        %s\n", strings.Join(rec.Tags, ", "))
			fmt.Printf("Quality:     %d\n", rec.QualityScore(50))
			fmt.Printf("Calls:       %d\n", rec.CallCount)
			if deps := rec.InternalDependencies(); len(deps) > 0 {
				fmt.Printf("Uses:        %s\n", strings.Join(deps, ", "))
			}
			if deps := rec.Dependencies(); len(deps) > 0 {
				fmt.Printf("Requires:    %s\n", strings.Join(deps, ", "))
			}
			fmt.Printf("Created:     %s\n", rec.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("Updated:     %s\n", rec.UpdatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("\n%s\n", rec.Code)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			recs, err := e.List(ctx, listLimit, listArchived)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Printf("%-30s %-14s %s\n", rec.Name, rec.Status, rec.Description)
			}
			fmt.Printf("%d functions\n", len(recs))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Permanently remove a function and its embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			if err := e.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive [name]",
	Short: "Archive a function (recoverable with restore)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			if err := e.Archive(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("archived %s\n", args[0])
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [name]",
	Short: "Restore an archived function and re-queue verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			if err := e.Restore(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("restored %s; verification queued\n", args[0])
			return nil
		})
	},
}

var bundleCmd = &cobra.Command{
	Use:   "bundle [name]",
	Short: "Print a function with all of its internal dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			bundle, err := e.Bundle(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Print(bundle)
			return nil
		})
	},
}

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "List functions needing attention (broken or failed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine.Engine) error {
			recs, err := e.Triage(ctx, triageLimit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("nothing to triage")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%-30s %-10s updated %s\n", rec.Name, rec.Status,
					rec.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 100, "maximum entries")
	listCmd.Flags().BoolVarP(&listArchived, "all", "a", false, "include archived functions")
	triageCmd.Flags().IntVarP(&triageLimit, "limit", "l", 50, "maximum entries")
}

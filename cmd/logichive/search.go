package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find functions by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var selectCmd = &cobra.Command{
	Use:   "select [query]",
	Short: "Pick the best-matching function and print it with its dependencies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 5, "maximum results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine.Engine) error {
		results, err := e.Search(ctx, args[0], searchLimit)
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s (%.3f, %s)\n", i+1, r.Name, r.Score, r.Status)
			if r.Description != "" {
				fmt.Printf("   %s\n", r.Description)
			}
			if len(r.Tags) > 0 {
				fmt.Printf("   tags: %s\n", strings.Join(r.Tags, ", "))
			}
		}
		return nil
	})
}

func runSelect(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine.Engine) error {
		result, err := e.SmartSelect(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "selected %s (reranked=%v)\n", result.Name, result.Reranked)
		fmt.Print(result.Bundle)
		return nil
	})
}

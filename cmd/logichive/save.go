package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/engine"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

var (
	saveDescription  string
	saveTags         []string
	saveDeps         []string
	saveInternalDeps []string
	saveTestsJSON    string
	saveSkipTest     bool
)

var saveCmd = &cobra.Command{
	Use:   "save [name] [file]",
	Short: "Save a function into the store (reads stdin when no file is given)",
	Long: `Save a function into the store and queue background verification.

Examples:
  logichive save parse_csv ./parse_csv.py --desc "Parse a CSV file" --tags parsing,io
  cat add.py | logichive save add --tests '[{"input": [1, 2], "expected": 3}]'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVarP(&saveDescription, "desc", "d", "", "what the function does")
	saveCmd.Flags().StringSliceVarP(&saveTags, "tags", "t", nil, "classification tags")
	saveCmd.Flags().StringSliceVar(&saveDeps, "deps", nil, "external package dependencies")
	saveCmd.Flags().StringSliceVar(&saveInternalDeps, "uses", nil, "other stored functions this one calls")
	saveCmd.Flags().StringVar(&saveTestsJSON, "tests", "", `test cases as a JSON array of {"input": ..., "expected": ...}`)
	saveCmd.Flags().BoolVar(&saveSkipTest, "skip-test", false, "mark verified without running tests")
}

func runSave(cmd *cobra.Command, args []string) error {
	code, err := readSource(args)
	if err != nil {
		return err
	}

	var tests []storage.TestCase
	if saveTestsJSON != "" {
		if err := json.Unmarshal([]byte(saveTestsJSON), &tests); err != nil {
			return fmt.Errorf("invalid --tests JSON: %w", err)
		}
	}

	return withEngine(func(ctx context.Context, e *engine.Engine) error {
		result, err := e.Save(ctx, engine.SaveRequest{
			Name:                 args[0],
			Code:                 code,
			Description:          saveDescription,
			Tags:                 saveTags,
			Dependencies:         saveDeps,
			InternalDependencies: saveInternalDeps,
			TestCases:            tests,
			SkipTest:             saveSkipTest,
		})
		if err != nil {
			return err
		}
		if result.Status == engine.SaveRejected {
			return fmt.Errorf("save rejected: %s", result.Message)
		}
		fmt.Printf("%s: %s\n", result.Status, result.Message)
		return nil
	})
}

func readSource(args []string) (string, error) {
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args[1], err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

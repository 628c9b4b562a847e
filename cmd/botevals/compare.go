package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aic-holdings/bot-slack-core/evals"
)

var compareCmd = &cobra.Command{
	Use:   "compare CURRENT BASELINE",
	Short: "Compare two report JSON files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := loadReportFile(args[0])
		if err != nil {
			return err
		}
		base, err := loadReportFile(args[1])
		if err != nil {
			return err
		}

		comparison := current.Compare(base)
		printComparison(comparison)
		if len(comparison.Regressions) > 0 {
			return fmt.Errorf("%d regression(s)", len(comparison.Regressions))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func loadReportFile(path string) (*evals.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var report evals.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &report, nil
}

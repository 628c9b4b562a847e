// botevals runs golden eval cases against a configured bot and manages
// eval baselines.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aic-holdings/bot-slack-core/logger"
)

var rootCmd = &cobra.Command{
	Use:           "botevals",
	Short:         "Run golden eval cases against a bot and manage baselines",
	Version:       GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `botevals runs a bot's golden dataset (evals/golden.jsonl) against its
configured model and system prompt, scores the responses with declarative
assertions, and compares the results against saved baselines to catch
regressions before they ship.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

func main() {
	rootCmd.SetVersionTemplate(GetVersionInfo() + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

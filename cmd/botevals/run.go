package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aic-holdings/bot-slack-core/config"
	"github.com/aic-holdings/bot-slack-core/evals"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run golden eval cases and report results",
	Long: `Run loads the golden dataset, runs every case against the configured
bot, and prints a pass/fail summary. With --baseline it also compares the
run against a saved baseline and exits non-zero on regressions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvals(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "bot.yaml", "Bot configuration file")
	runCmd.Flags().String("golden", "", "Golden dataset path (overrides config)")
	runCmd.Flags().StringSlice("tags", nil, "Only run cases with at least one of these tags")
	runCmd.Flags().StringP("report", "o", "", "Write the full report JSON to this file")
	runCmd.Flags().String("baseline", "", "Compare against this saved baseline")
	runCmd.Flags().String("save-baseline", "", "Save the run as a baseline under this name")
	runCmd.Flags().BoolP("verbose", "v", false, "Enable verbose debug logging")
}

func runEvals(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	goldenPath, _ := cmd.Flags().GetString("golden")
	if goldenPath == "" {
		goldenPath = cfg.Evals.GoldenPath
	}
	if goldenPath == "" {
		return fmt.Errorf("no golden dataset: set evals.golden_path or pass --golden")
	}

	tags, _ := cmd.Flags().GetStringSlice("tags")
	cases, err := evals.LoadCases(goldenPath, tags)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no cases matched in %s", goldenPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := buildBot(cfg)
	if err != nil {
		return err
	}

	report := evals.NewRunner(bot).Run(ctx, cases)
	fmt.Println(report.Summary())

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(reportPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if saveName, _ := cmd.Flags().GetString("save-baseline"); saveName != "" {
		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, saveName, report); err != nil {
			return err
		}
		fmt.Printf("Saved baseline %q\n", saveName)
	}

	if baselineName, _ := cmd.Flags().GetString("baseline"); baselineName != "" {
		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		base, err := store.Load(ctx, baselineName)
		if err != nil {
			return err
		}

		comparison := report.Compare(base)
		printComparison(comparison)
		if len(comparison.Regressions) > 0 {
			return fmt.Errorf("%d regression(s) against baseline %q", len(comparison.Regressions), baselineName)
		}
	}

	return nil
}

// buildBot assembles the runner from config with the OpenRouter backend.
func buildBot(cfg *config.Config) (*runner.Runner, error) {
	opts := []providers.Option{providers.WithModel(cfg.Bot.Model)}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, providers.WithBaseURL(cfg.Provider.BaseURL))
	}
	if cfg.Provider.TimeoutSeconds > 0 {
		opts = append(opts, providers.WithTimeout(cfg.Provider.Timeout()))
	}
	if cfg.Provider.RateLimitRPS > 0 {
		opts = append(opts, providers.WithRateLimit(cfg.Provider.RateLimitRPS, cfg.Provider.RateLimitBurst))
	}

	client := providers.NewOpenRouterClient(cfg.Provider.APIKey, cfg.Bot.BotName, opts...)
	return runner.New(cfg.Bot, client)
}

func printComparison(cmp evals.Comparison) {
	fmt.Printf("\nBaseline comparison:\n")
	fmt.Printf("  Pass rate: %.0f%% -> %.0f%% (%+.0f%%)\n",
		cmp.BaselinePassRate, cmp.CurrentPassRate, cmp.PassRateDelta)
	fmt.Printf("  Token delta: %+d total (%+d prompt, %+d completion)\n",
		cmp.TokenDelta.Total, cmp.TokenDelta.Prompt, cmp.TokenDelta.Completion)
	if len(cmp.Regressions) > 0 {
		fmt.Printf("  Regressions: %v\n", cmp.Regressions)
	}
	if len(cmp.Improvements) > 0 {
		fmt.Printf("  Improvements: %v\n", cmp.Improvements)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aic-holdings/bot-slack-core/config"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage saved eval baselines",
}

var baselineSaveCmd = &cobra.Command{
	Use:   "save NAME REPORT",
	Short: "Save a report JSON file as a named baseline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBaselineConfig(cmd)
		if err != nil {
			return err
		}
		report, err := loadReportFile(args[1])
		if err != nil {
			return err
		}

		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(cmd.Context(), args[0], report); err != nil {
			return err
		}
		fmt.Printf("Saved baseline %q\n", args[0])
		return nil
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a saved baseline's summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBaselineConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(report.Summary())
		return nil
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved baselines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBaselineConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a saved baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBaselineConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openBaselineStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted baseline %q\n", args[0])
		return nil
	},
}

func init() {
	baselineCmd.PersistentFlags().StringP("config", "c", "bot.yaml", "Bot configuration file")
	baselineCmd.AddCommand(baselineSaveCmd, baselineShowCmd, baselineListCmd, baselineDeleteCmd)
	rootCmd.AddCommand(baselineCmd)
}

func loadBaselineConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// botserve runs a configured bot against Slack over Socket Mode, with an
// optional Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aic-holdings/bot-slack-core/config"
	"github.com/aic-holdings/bot-slack-core/events"
	"github.com/aic-holdings/bot-slack-core/logger"
	"github.com/aic-holdings/bot-slack-core/metrics/prometheus"
	"github.com/aic-holdings/bot-slack-core/providers"
	"github.com/aic-holdings/bot-slack-core/runner"
	"github.com/aic-holdings/bot-slack-core/slack"
)

const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:           "botserve",
	Short:         "Run a bot against Slack over Socket Mode",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

func init() {
	rootCmd.Flags().StringP("config", "c", "bot.yaml", "Bot configuration file")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command) error {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetVerbose(true)
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("missing provider api_key (set OPENROUTER_API_KEY)")
	}

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
	defer client.Close()

	bus := events.NewBus()
	bot, err := runner.New(cfg.Bot, client, runner.WithBus(bus))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		bus.SubscribeAll(prometheus.NewMetricsListener())
		exporter := prometheus.NewExporter(cfg.Metrics.Addr)
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics exporter failed", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = exporter.Shutdown(shutdownCtx)
		}()
	}

	adapter, err := slack.NewAdapter(cfg.Slack.BotToken, cfg.Slack.AppToken,
		slack.WithThreadLimit(cfg.Slack.ThreadLimit))
	if err != nil {
		return err
	}

	return bot.Start(ctx, adapter)
}

package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/aic-holdings/bot-slack-core/baseline"
	"github.com/aic-holdings/bot-slack-core/config"
)

const defaultBaselineDir = "evals/baselines"

// openBaselineStore picks Redis when configured, file storage otherwise.
func openBaselineStore(cfg *config.Config) (baseline.Store, error) {
	if cfg.Evals.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Evals.RedisAddr})
		return baseline.NewRedisStore(client), nil
	}

	dir := cfg.Evals.BaselineDir
	if dir == "" {
		dir = defaultBaselineDir
	}
	return baseline.NewFileStore(dir)
}

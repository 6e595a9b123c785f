// batchrund submits workflow jobs to a batch-compute backend and tracks them
// to completion.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "batchrund",
		Version: version,
		Usage:   "Run workflow jobs on AWS Batch (or local Docker) and track them to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("BATCHRUN_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (console, json)",
				Value:   "console",
				Sources: cli.EnvVars("BATCHRUN_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Path to a .env file loaded before configuration",
				Sources: cli.EnvVars("BATCHRUN_ENV_FILE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if envFile := cmd.String("env-file"); envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return ctx, err
				}
			}
			setupLogger(os.Stderr, cmd.String("log-level"), cmd.String("log-format"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			runCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("batchrund failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(w io.Writer, level, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

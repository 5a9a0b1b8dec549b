package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "vortexd",
		Usage:   "chat moderation daemon (automod, strikes, raid lockdown)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token for the discord gateway and REST API",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for settings and the strike ledger; empty means in-memory",
			EnvVars: []string{"VORTEXD_REDIS_URL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"VORTEXD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "web URL to send slack webhook notifications to",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "referral-domain",
			Usage:   "known referral-link domain (can be repeated)",
			EnvVars: []string{"VORTEXD_REFERRAL_DOMAINS"},
		},
		&cli.StringSliceFlag{
			Name:    "safe-domain",
			Usage:   "domain whose redirects are never followed (can be repeated)",
			EnvVars: []string{"VORTEXD_SAFE_DOMAINS"},
		},
		&cli.StringFlag{
			Name:    "copypastas-json",
			Usage:   "file path of JSON file containing known copypasta texts",
			EnvVars: []string{"VORTEXD_COPYPASTAS_JSON"},
		},
		&cli.DurationFlag{
			Name:    "resolve-timeout",
			Usage:   "bound on each redirect chain in the async link stage; 0 disables",
			Value:   10 * time.Second,
			EnvVars: []string{"VORTEXD_RESOLVE_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "sweep-interval",
			Usage:   "cadence of the temp ban and temp mute sweepers",
			Value:   30 * time.Second,
			EnvVars: []string{"VORTEXD_SWEEP_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "dedupe-cache-size",
			Usage:   "number of per-author duplicate-tracking entries to retain",
			Value:   3000,
			EnvVars: []string{"VORTEXD_DEDUPE_CACHE_SIZE"},
		},
		&cli.IntFlag{
			Name:    "async-workers",
			Usage:   "number of link resolution workers",
			Value:   4,
			EnvVars: []string{"VORTEXD_ASYNC_WORKERS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := NewServer(Config{
			DiscordToken:    cctx.String("discord-token"),
			RedisURL:        cctx.String("redis-url"),
			SlackWebhookURL: cctx.String("slack-webhook-url"),
			ReferralDomains: cctx.StringSlice("referral-domain"),
			SafeDomains:     cctx.StringSlice("safe-domain"),
			CopypastasJSON:  cctx.String("copypastas-json"),
			ResolveTimeout:  cctx.Duration("resolve-timeout"),
			SweepInterval:   cctx.Duration("sweep-interval"),
			DedupeCacheSize: cctx.Int("dedupe-cache-size"),
			AsyncWorkers:    cctx.Int("async-workers"),
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

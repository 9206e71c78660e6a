package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"TrialFeeds/internal/app"
	"TrialFeeds/internal/config"
	"TrialFeeds/internal/logging"
)

func main() {
	asOfFlag := flag.String("as-of", "", "override the as-of date (YYYY-MM-DD) for reproducible re-runs")
	scheduleFlag := flag.Bool("schedule", false, "keep running and self-schedule daily runs instead of exiting after one")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	var asOfOverride *time.Time
	if *asOfFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *asOfFlag, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of value %q: %v\n", *asOfFlag, err)
			os.Exit(2)
		}
		asOfOverride = &parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)

	var err error
	if *scheduleFlag {
		err = application.RunScheduled(ctx)
	} else {
		err = application.Run(ctx, asOfOverride)
	}
	if err != nil {
		logger.Error("run stopped", "error", err)
		os.Exit(1)
	}
}

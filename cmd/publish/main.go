package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/matchpred/internal/publisher"
	"github.com/okian/matchpred/pkg/logger"
)

func main() {
	var (
		baseURL = flag.String("url", publisher.DefaultBaseURL, "Base URL of the adapter")
		files   = flag.String("files", "", "Comma separated JSON payload files (default: synthetic matches)")
		count   = flag.Int("count", publisher.DefaultCount, "Number of synthetic matches to generate")
		repeat  = flag.Int("repeat", 1, "Deliveries per payload")
		workers = flag.Int("workers", publisher.DefaultWorkers, "Number of concurrent senders")
		timeout = flag.Duration("timeout", publisher.DefaultTimeout, "HTTP request timeout")
		seed    = flag.Int64("seed", 1, "Seed for synthetic matches")
		verbose = flag.Bool("verbose", false, "Log every delivery")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &publisher.Config{
		BaseURL: *baseURL,
		Count:   *count,
		Repeat:  *repeat,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Verbose: *verbose,
	}
	if *files != "" {
		cfg.Files = strings.Split(*files, ",")
	}

	stats, err := publisher.Run(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "publish failed", logger.Error(err))
		return
	}
	if stats.Failed > 0 {
		logger.Get().Warn(ctx, "some deliveries failed", logger.Int("failed", stats.Failed))
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/mu3/internal/loadtest"
	"github.com/okian/mu3/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", loadtest.DefaultBaseURL, "Base URL of the service")
		sessions   = flag.Int("sessions", loadtest.DefaultSessions, "Number of sessions to drive")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", loadtest.DefaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", loadtest.DefaultSettle, "How long to wait for history writes")
		outputFile = flag.String("output", "", "Write per-session outcomes to this JSON file")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every session")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, loadtest.Config{
		BaseURL:    *baseURL,
		Sessions:   *sessions,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load test failed", logger.Error(err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/mu3/internal/adapters/http/api"
	"github.com/okian/mu3/internal/adapters/http/site"
	"github.com/okian/mu3/internal/adapters/llm/anthropic"
	"github.com/okian/mu3/internal/adapters/llm/openai"
	"github.com/okian/mu3/internal/adapters/llm/router"
	"github.com/okian/mu3/internal/adapters/storage"
	service "github.com/okian/mu3/internal/app"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/config"
	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/internal/probe"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 3 * time.Minute // above the API request timeout so streams can finish
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	healthCheckInterval       = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Provider names as they appear in the model catalog.
const (
	providerOpenAI    = "OpenAI"
	providerAnthropic = "Anthropic"
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithConstLabels(cfg.MetricsLabels),
	)

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "storage close failed", logger.Error(err))
		}
	}()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogPath); err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	gw := gateway.New(
		gateway.WithReadinessTimeout(cfg.ReadinessTimeout()),
		gateway.WithRequestTimeout(cfg.RequestTimeout()),
		gateway.WithStreamDelay(cfg.StreamDelay()),
		gateway.WithStreamBuffer(cfg.StreamBuffer),
		gateway.WithRetry(cfg.RetryAttempts, cfg.RetryDelay()),
	)
	if capability := newCapability(cfg, cat); capability != nil {
		gw.Attach(capability)
	} else {
		log.Warn(ctx, "no AI backend configured; serving demo answers")
	}
	go gw.Start(ctx)

	registry := errreg.New(
		errreg.WithCapacity(cfg.ErrorCapacity),
		errreg.WithMirrorSize(cfg.ErrorMirrorSize),
		errreg.WithStore(store),
	)
	prober := probe.New(
		probe.WithOrigins(cfg.ProbeOrigins...),
		probe.WithTimeout(cfg.ProbeTimeout()),
		probe.WithStore(store),
		probe.WithReadiness(gw),
	)
	go awaitCapability(ctx, prober, cfg.ReadinessTimeout())

	monitor := newMonitor(prober, gw)
	monitor.Start(ctx, healthCheckInterval)
	defer monitor.Stop()

	svc := service.New(
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxSessions(cfg.MaxSessions),
		service.WithImageHistory(cfg.ImageHistorySize),
		service.WithCatalog(cat),
		service.WithGateway(gw),
		service.WithStore(store),
		service.WithRegistry(registry),
		service.WithProber(prober),
		service.WithArenaOptions(arenaOptions(cfg)...),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	if cfg.MetricsEnabled {
		go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
		go startServiceMetricsUpdater(ctx, svc, metrics.RefreshInterval())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newCapability builds the provider router from the configured keys. It
// returns nil in demo mode or when no key is set.
func newCapability(cfg *config.Config, cat *catalog.Catalog) gateway.Capability {
	if cfg.DemoMode {
		return nil
	}
	var (
		opts     []router.Option
		fallback gateway.Capability
	)
	if cfg.AnthropicAPIKey != "" {
		c := anthropic.New(anthropicConfig(cfg))
		opts = append(opts, router.WithBackend(providerAnthropic, c))
		fallback = c
	}
	if cfg.OpenAIAPIKey != "" {
		c := openai.New(openai.Config{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.APIBaseURL,
			StreamBuffer: cfg.StreamBuffer,
		})
		opts = append(opts, router.WithBackend(providerOpenAI, c))
		fallback = c
	}
	r := router.New(cat, append(opts, router.WithDefault(fallback))...)
	if r.Empty() {
		return nil
	}
	return r
}

// anthropicConfig turns the SDK's own retries off; the gateway retries.
func anthropicConfig(cfg *config.Config) anthropic.Config {
	return anthropic.Config{
		APIKey:       cfg.AnthropicAPIKey,
		BaseURL:      cfg.AnthropicBaseURL,
		MaxRetries:   0,
		StreamBuffer: cfg.StreamBuffer,
	}
}

// awaitCapability logs once the AI capability is resolved either way.
func awaitCapability(ctx context.Context, p *probe.Prober, timeout time.Duration) bool {
	log := logger.Get()
	if p.WaitForCapability(ctx, timeout) {
		log.Info(ctx, "AI capability ready")
		return true
	}
	log.Warn(ctx, "AI capability unavailable; serving fallback answers", logger.Duration("waited", timeout))
	return false
}

func arenaOptions(cfg *config.Config) []arena.Option {
	return []arena.Option{
		arena.WithLanguage(cfg.DefaultLanguage),
		arena.WithGeneration(cfg.DefaultTemperature, cfg.DefaultMaxTokens),
		arena.WithStreamThreshold(cfg.StreamTemperatureThreshold),
		arena.WithMaxMessages(cfg.MaxMessagesHistory),
		arena.WithRevealDelay(cfg.VoteRevealDelay()),
		arena.WithImageDefaults(gateway.ImageOptions{
			Model:   cfg.ImageModel,
			Size:    cfg.ImageSize,
			Quality: cfg.ImageQuality,
		}),
	}
}

func newHandler(cfg *config.Config, svc *service.Service) http.Handler {
	info := site.DefaultInfo()
	info.Name = cfg.AppName
	info.Description = cfg.AppDescription
	info.Version = cfg.AppVersion
	info.Language = cfg.DefaultLanguage

	return api.NewServer(svc,
		api.WithDebug(cfg.Debug),
		api.WithMetrics(cfg.MetricsEnabled),
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithInfo(info),
		api.WithLanguage(cfg.DefaultLanguage),
	).Router()
}

// newMonitor checks storage and the AI capability in the background.
func newMonitor(p *probe.Prober, gw *gateway.Gateway) *probe.Monitor {
	m := probe.NewMonitor(logger.Named("monitor"))
	m.AddCheck("storage", func(ctx context.Context) error {
		if !p.StorageAvailable(ctx) {
			return errors.New("storage round trip failed")
		}
		return nil
	})
	m.AddCheck("gateway", func(context.Context) error {
		if s := gw.State(); s == gateway.StateUnavailable {
			return fmt.Errorf("AI capability %s", s)
		}
		return nil
	})
	return m
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if sessions, ok := stats["sessions"].(int); ok {
		metrics.UpdateActiveSessions(sessions)
	}
	if retained, ok := stats["errors"].(int); ok {
		metrics.UpdateErrorsRetained(retained)
	}
}

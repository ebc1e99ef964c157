// Package service composes the arena flows with their supporting
// infrastructure: gateway, storage, error registry, probe and the history
// pipeline. The HTTP API depends only on this package.
package service

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/okian/mu3/internal/adapters/mq/queue"
	"github.com/okian/mu3/internal/adapters/mq/worker"
	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/domain/dedupe"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/internal/probe"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// Service owns the shared components and the per-session orchestrators.
type Service struct {
	mu sync.RWMutex

	// Shared components
	catalog  *catalog.Catalog
	gateway  *gateway.Gateway
	store    storage.Store
	registry *errreg.Registry
	prober   *probe.Prober

	// History pipeline, built by Start
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	writer   *historyWriter
	recorder *queueRecorder

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxSessions  int
	imageHistory int
	arenaOpts    []arena.Option
	now          func() time.Time

	// State
	started  bool
	sessions *sessions

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of history workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the history queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many history job ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions caps the live sessions; the least recently used is evicted.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithImageHistory sets how many images are kept per session and in storage.
func WithImageHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.imageHistory = n
		}
	}
}

// WithCatalog sets the model catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithGateway sets the AI gateway. The service does not start it.
func WithGateway(g *gateway.Gateway) Option {
	return func(s *Service) {
		if g != nil {
			s.gateway = g
		}
	}
}

// WithStore sets the key/value store. The caller keeps ownership and closes it.
func WithStore(st storage.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithRegistry sets the error registry.
func WithRegistry(r *errreg.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithProber sets the environment probe.
func WithProber(p *probe.Prober) Option {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithArenaOptions adds options applied to every session's orchestrators.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(s *Service) {
		s.arenaOpts = append(s.arenaOpts, opts...)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components not supplied through options get
// in-memory defaults and a gateway with no capability, which answers with
// fallback content.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		dedupeSize:   10_000,
		maxSessions:  1_000,
		imageHistory: ImageHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.gateway == nil {
		s.gateway = gateway.New()
	}
	if s.store == nil {
		s.store = storage.NewMemory()
	}
	if s.registry == nil {
		s.registry = errreg.New(errreg.WithStore(s.store))
	}
	if s.prober == nil {
		s.prober = probe.New(probe.WithStore(s.store), probe.WithReadiness(s.gateway))
	}
	s.sessions = newSessions(s.maxSessions)
	return s
}

// Start builds the history pipeline and starts its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting arena service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = newHistoryWriter(s.store, s.imageHistory)
	s.recorder = &queueRecorder{q: s.queue, logger: s.logger}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.writer,
		worker.WithDeduper(s.deduper),
		worker.WithRegistry(s.registry),
	)
	// Workers outlive the start request; Stop ends them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "arena service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// Stop drops every session and drains the history queue.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping arena service...")

	s.sessions.closeAll()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "history workers did not drain", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "arena service stopped")
}

// Session returns the session named id, creating it on first use. An empty
// id selects DefaultSessionID.
func (s *Service) Session(id string) (*Session, error) {
	if id == "" {
		id = DefaultSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.sessions.get(id, s.now(), func() *Session {
		return s.newSession(id)
	}), nil
}

// EndSession drops the session named id. It reports whether it existed.
func (s *Service) EndSession(id string) bool {
	if id == "" {
		id = DefaultSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.remove(id)
}

func (s *Service) newSession(id string) *Session {
	opts := append([]arena.Option{
		arena.WithRecorder(s.recorder),
		arena.WithImageHistory(s.imageHistory),
		arena.WithClock(s.now),
	}, s.arenaOpts...)

	s.logger.Debug(context.Background(), "session created", logger.String("session", id))
	return &Session{
		ID:        id,
		Battle:    arena.NewBattle(s.gateway, s.catalog, opts...),
		Chat:      arena.NewChat(s.gateway, s.catalog, opts...),
		Images:    arena.NewImages(s.gateway, opts...),
		Vision:    arena.NewVision(s.gateway, opts...),
		CreatedAt: s.now().UTC(),
	}
}

// History returns the persisted list for kind (battle, chat or image),
// newest first.
func (s *Service) History(ctx context.Context, kind string) ([]json.RawMessage, error) {
	s.mu.RLock()
	w := s.writer
	s.mu.RUnlock()
	if w == nil {
		return nil, ErrNotStarted
	}
	return w.read(ctx, queue.Kind(kind))
}

// Catalog returns the model catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Gateway returns the AI gateway.
func (s *Service) Gateway() *gateway.Gateway { return s.gateway }

// Store returns the key/value store.
func (s *Service) Store() storage.Store { return s.store }

// Registry returns the error registry.
func (s *Service) Registry() *errreg.Registry { return s.registry }

// Prober returns the environment probe.
func (s *Service) Prober() *probe.Prober { return s.prober }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"maxSessions":  s.maxSessions,
		"sessions":     s.sessions.len(),
		"models":       s.catalog.Len(),
		"gatewayState": s.gateway.State().String(),
		"errors":       s.registry.Len(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["historyWritten"] = s.pool.Processed()
		stats["historyFailed"] = s.pool.Failed()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateActiveSessions(s.sessions.len())
	}

	return stats
}

package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/mu3/pkg/logger"
)

// DefaultMonitorInterval is how often a Monitor runs its checks.
const DefaultMonitorInterval = 30 * time.Second

// Check is one periodic health check.
type Check func(ctx context.Context) error

// Monitor runs registered checks on an interval. Failing or panicking
// checks are logged and never stop the loop.
type Monitor struct {
	mu     sync.Mutex
	checks map[string]Check
	cancel context.CancelFunc
	done   chan struct{}
	logger logger.Logger
}

// NewMonitor returns a stopped monitor.
func NewMonitor(l logger.Logger) *Monitor {
	if l == nil {
		l = logger.Get().Named("monitor")
	}
	return &Monitor{checks: make(map[string]Check), logger: l}
}

// AddCheck registers fn under name, replacing any check with that name.
func (m *Monitor) AddCheck(name string, fn Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = fn
}

// Start begins the loop, restarting it if already running.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancel, m.done = cancel, done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RunOnce(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce runs every check a single time and returns the names of the failures.
func (m *Monitor) RunOnce(ctx context.Context) []string {
	m.mu.Lock()
	checks := make(map[string]Check, len(m.checks))
	for k, v := range m.checks {
		checks[k] = v
	}
	m.mu.Unlock()

	var failed []string
	for name, fn := range checks {
		if err := m.run(ctx, fn); err != nil {
			m.logger.Warn(ctx, "system check failed", logger.String("check", name), logger.Error(err))
			failed = append(failed, name)
		}
	}
	return failed
}

func (m *Monitor) run(ctx context.Context, fn Check) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return fn(ctx)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("check panicked: %v", p.v) }

package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mu3/pkg/logger"
)

// ErrNoSessions is returned when every session failed.
var ErrNoSessions = errors.New("no session completed")

type battleView struct {
	Result struct {
		ModelA   string `json:"modelA"`
		ModelB   string `json:"modelB"`
		Revealed bool   `json:"revealed"`
		Demo     bool   `json:"demo"`
	} `json:"result"`
}

type chatView struct {
	Message struct {
		Content string `json:"content"`
		Demo    bool   `json:"demo"`
	} `json:"message"`
}

// Run drives cfg.Sessions concurrent sessions through a battle, a vote and
// a chat message, then checks the service recorded them.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = withDefaults(cfg)
	stats := &Stats{Sessions: cfg.Sessions, StartTime: time.Now()}
	log := logger.Named("loadtest")

	log.Info(ctx, "starting arena load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	if err := checkReady(ctx, c); err != nil {
		return stats, fmt.Errorf("service readiness check failed: %w", err)
	}

	plans := generatePlans(cfg.Sessions)
	outcomes := execute(ctx, c, cfg, plans, stats)

	if err := verify(ctx, c, cfg, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveOutcomes(cfg.OutputFile, outcomes); err != nil {
			log.Warn(ctx, "failed to save outcomes", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed == stats.Sessions {
		return stats, ErrNoSessions
	}
	return stats, nil
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Sessions <= 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * WorkerChannelMultiplier
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return cfg
}

// checkReady waits on /readyz. A service answering from fallback content is
// still ready for a run.
func checkReady(ctx context.Context, c *client) error {
	var body struct {
		State    string `json:"state"`
		Fallback bool   `json:"fallback"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/readyz", "", nil, &body); err != nil {
		return err
	}
	logger.Named("loadtest").Info(ctx, "service is ready",
		logger.String("state", body.State), logger.Bool("fallback", body.Fallback))
	return nil
}

// execute runs the plans on a pool of cfg.Workers goroutines.
func execute(ctx context.Context, c *client, cfg Config, plans []Plan, stats *Stats) []Outcome {
	log := logger.Named("loadtest")
	outcomes := make([]Outcome, len(plans))

	var started, voted, chats, failed, demo atomic.Int64
	next := make(chan int, cfg.Workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				o := runPlan(ctx, c, plans[i], &started, &voted, &chats)
				if !o.OK {
					failed.Add(1)
				}
				if o.Demo {
					demo.Add(1)
				}
				if cfg.Verbose || !o.OK {
					log.Info(ctx, "session finished",
						logger.String("session", o.Session),
						logger.Bool("ok", o.OK),
						logger.String("step", o.Step),
						logger.String("error", o.Error),
						logger.Duration("latency", o.Latency))
				}
				outcomes[i] = o
			}
		}()
	}

	func() {
		defer close(next)
		for i := range plans {
			select {
			case <-ctx.Done():
				return
			case next <- i:
			}
		}
	}()
	wg.Wait()

	stats.BattlesStarted = int(started.Load())
	stats.BattlesVoted = int(voted.Load())
	stats.ChatsSent = int(chats.Load())
	stats.Failed = int(failed.Load())
	stats.DemoAnswers = int(demo.Load())
	return outcomes
}

func runPlan(ctx context.Context, c *client, p Plan, started, voted, chats *atomic.Int64) Outcome {
	begin := time.Now()
	o := Outcome{Plan: p}
	fail := func(step string, err error) Outcome {
		o.Step, o.Error, o.Latency = step, err.Error(), time.Since(begin)
		return o
	}

	var b battleView
	if _, err := c.do(ctx, http.MethodPost, "/battle", p.Session, map[string]string{"prompt": p.Prompt}, &b); err != nil {
		return fail("battle", err)
	}
	started.Add(1)
	if b.Result.ModelA != anonymousLabelA {
		return fail("battle", fmt.Errorf("model names exposed before the vote: %q", b.Result.ModelA))
	}

	if _, err := c.do(ctx, http.MethodPost, "/battle/vote", p.Session, map[string]string{"winner": p.Vote}, &b); err != nil {
		return fail("vote", err)
	}
	voted.Add(1)
	if !b.Result.Revealed {
		return fail("vote", errors.New("vote did not reveal the models"))
	}
	o.ModelA, o.ModelB, o.Demo = b.Result.ModelA, b.Result.ModelB, b.Result.Demo

	var ch chatView
	if _, err := c.do(ctx, http.MethodPost, "/chat", p.Session, map[string]any{"message": p.Message, "temperature": 0}, &ch); err != nil {
		return fail("chat", err)
	}
	chats.Add(1)
	o.Demo = o.Demo || ch.Message.Demo

	// Release the session slot on the server.
	_, _ = c.do(ctx, http.MethodDelete, "/session", p.Session, nil, nil)

	o.OK = true
	o.Latency = time.Since(begin)
	return o
}

// saveOutcomes writes outcomes as a JSON array.
func saveOutcomes(filename string, outcomes []Outcome) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write outcomes: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, sessionsPerSecond float64
	if stats.Sessions > 0 {
		successRate = float64(stats.Sessions-stats.Failed) / float64(stats.Sessions) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.Sessions) / stats.Duration.Seconds()
	}

	logger.Named("loadtest").Info(ctx, "final statistics",
		logger.Int("sessions", stats.Sessions),
		logger.Int("battlesStarted", stats.BattlesStarted),
		logger.Int("battlesVoted", stats.BattlesVoted),
		logger.Int("chatsSent", stats.ChatsSent),
		logger.Int("failed", stats.Failed),
		logger.Int("demoAnswers", stats.DemoAnswers),
		logger.Int("historyBattles", stats.HistoryBattles),
		logger.Int("historyChats", stats.HistoryChats),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}

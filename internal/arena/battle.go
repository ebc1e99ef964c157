package arena

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

// Anonymous labels shown until a vote is cast.
const (
	LabelA = "نموذج A"
	LabelB = "نموذج B"
)

// Contenders used when the catalog cannot supply two battle models.
var (
	DefaultContenderA = catalog.Model{ID: "gpt-5", Name: "GPT-5"}
	DefaultContenderB = catalog.Model{ID: "claude-sonnet-4", Name: "Claude Sonnet 4"}
)

const (
	demoNameA     = "GPT-5" + DemoSuffix
	demoNameB     = "Claude Sonnet 4" + DemoSuffix
	demoResponseA = "إجابة تجريبية للسؤال: \"%s\"\n\nهذه استجابة من النموذج الأول. في الوضع العادي، ستحصل على إجابة حقيقية من GPT-5 أو أحد النماذج المتقدمة الأخرى."
	demoResponseB = "إجابة تجريبية أخرى للسؤال: \"%s\"\n\nهذه استجابة من النموذج الثاني. تأكد من تفعيل خدمة الذكاء الاصطناعي والاتصال بالإنترنت للحصول على إجابات حقيقية من Claude أو النماذج الأخرى."
)

// Outcome is a vote.
type Outcome string

// Outcomes.
const (
	OutcomeA       Outcome = "a"
	OutcomeB       Outcome = "b"
	OutcomeTie     Outcome = "tie"
	OutcomeBothBad Outcome = "both_bad"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeA, OutcomeB, OutcomeTie, OutcomeBothBad:
		return true
	}
	return false
}

// Phase is the battle lifecycle state.
type Phase string

// Phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseResolved Phase = "resolved"
	PhaseVoted    Phase = "voted"
)

// BattleResult is the exposed view of a battle. ModelA and ModelB hold the
// anonymous labels until the vote is revealed and the real names afterwards.
type BattleResult struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	ResponseA string     `json:"responseA"`
	ResponseB string     `json:"responseB"`
	ModelA    string     `json:"modelA"`
	ModelB    string     `json:"modelB"`
	Winner    Outcome    `json:"winner,omitempty"`
	Revealed  bool       `json:"revealed"`
	Demo      bool       `json:"demo,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	VotedAt   *time.Time `json:"votedAt,omitempty"`
}

type battle struct {
	view    BattleResult
	actualA string
	actualB string
}

// Battle runs anonymous head-to-head comparisons between two models.
type Battle struct {
	ai  AI
	cat *catalog.Catalog
	settings

	mu      sync.Mutex
	phase   Phase
	current *battle
	epoch   atomic.Uint64

	onComplete func(BattleResult)
}

// NewBattle returns an idle battle flow.
func NewBattle(ai AI, cat *catalog.Catalog, opts ...Option) *Battle {
	return &Battle{
		ai:       ai,
		cat:      cat,
		settings: newSettings("battle", opts),
		phase:    PhaseIdle,
	}
}

// OnComplete registers fn to receive every revealed result.
func (b *Battle) OnComplete(fn func(BattleResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onComplete = fn
}

// Phase reports the lifecycle state.
func (b *Battle) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Current returns the exposed result, if any.
func (b *Battle) Current() (BattleResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return BattleResult{}, false
	}
	return b.current.view, true
}

// Start sanitizes and validates prompt, asks two distinct models
// concurrently and publishes the anonymized result.
func (b *Battle) Start(ctx context.Context, prompt string) (BattleResult, error) {
	clean, res := b.checker.ValidateAndSanitizePrompt(prompt)
	if !res.Valid {
		return BattleResult{}, invalid(res)
	}

	b.mu.Lock()
	if b.phase == PhaseRunning {
		b.mu.Unlock()
		return BattleResult{}, ErrBattleRunning
	}
	epoch := b.epoch.Add(1)
	b.phase = PhaseRunning
	b.current = nil
	b.mu.Unlock()

	metrics.RecordBattleStarted()
	a, c := b.contenders()
	b.logger.Info(ctx, "battle started", logger.String("model_a", a.ID), logger.String("model_b", c.ID))

	next := b.resolve(ctx, clean, a, c)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch.Load() != epoch {
		metrics.RecordStaleDiscarded("battle")
		b.logger.Debug(ctx, "battle finished after reset; discarding", logger.String("id", next.view.ID))
		return BattleResult{}, ErrStale
	}
	b.current = next
	b.phase = PhaseResolved
	return next.view, nil
}

// contenders draws two models from the battle pool. With fewer than two
// eligible models both defaults are used.
func (b *Battle) contenders() (catalog.Model, catalog.Model) {
	pool := b.cat.BattlePool()
	if len(pool) < 2 {
		return DefaultContenderA, DefaultContenderB
	}
	b.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[0], pool[1]
}

func (b *Battle) resolve(ctx context.Context, prompt string, a, c catalog.Model) *battle {
	opts := gateway.TextOptions{Temperature: b.temperature, MaxTokens: b.maxTokens}

	var (
		wg       sync.WaitGroup
		results  [2]gateway.Result
		panicked atomic.Bool
	)
	for i, m := range [2]catalog.Model{a, c} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.Store(true)
					b.logger.Error(ctx, "battle call panicked", logger.String("model", m.ID), logger.Any("panic", r))
				}
			}()
			results[i] = b.ai.GenerateText(ctx, prompt, m.ID, opts)
		}()
	}
	wg.Wait()

	out := &battle{
		view: BattleResult{
			ID:        b.newID(),
			Prompt:    prompt,
			ModelA:    LabelA,
			ModelB:    LabelB,
			CreatedAt: b.now().UTC(),
		},
	}
	if panicked.Load() {
		out.view.ResponseA = fmt.Sprintf(demoResponseA, prompt)
		out.view.ResponseB = fmt.Sprintf(demoResponseB, prompt)
		out.view.Demo = true
		out.actualA, out.actualB = demoNameA, demoNameB
		return out
	}
	out.view.ResponseA = answerText(results[0])
	out.view.ResponseB = answerText(results[1])
	out.view.Demo = results[0].Fallback || results[1].Fallback
	out.actualA, out.actualB = a.Name, c.Name
	return out
}

// Vote records outcome on the current result, waits the reveal delay and
// then replaces the labels with the real model names.
func (b *Battle) Vote(ctx context.Context, outcome Outcome) (BattleResult, error) {
	if !outcome.Valid() {
		return BattleResult{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}

	b.mu.Lock()
	switch {
	case b.current == nil:
		b.mu.Unlock()
		return BattleResult{}, ErrNoBattle
	case b.phase == PhaseVoted:
		b.mu.Unlock()
		return BattleResult{}, ErrAlreadyVoted
	}
	epoch := b.epoch.Load()
	now := b.now().UTC()
	b.current.view.Winner = outcome
	b.current.view.VotedAt = &now
	b.phase = PhaseVoted
	b.mu.Unlock()

	metrics.RecordBattleVote(string(outcome))
	b.sleep(ctx, b.revealDelay)

	b.mu.Lock()
	if b.epoch.Load() != epoch || b.current == nil {
		b.mu.Unlock()
		metrics.RecordStaleDiscarded("vote")
		return BattleResult{}, ErrStale
	}
	b.current.view.ModelA = b.current.actualA
	b.current.view.ModelB = b.current.actualB
	b.current.view.Revealed = true
	final := b.current.view
	done := b.onComplete
	b.mu.Unlock()

	b.recorder.RecordBattle(ctx, final)
	if done != nil {
		done(final)
	}
	return final, nil
}

// Reset drops the current result and invalidates any battle in flight.
func (b *Battle) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.epoch.Add(1)
	b.current = nil
	b.phase = PhaseIdle
}

func answerText(r gateway.Result) string {
	if r.Text == "" {
		return ResponseErrorText
	}
	return r.Text
}

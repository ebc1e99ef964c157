package arena

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/logger"
	"github.com/okian/mu3/pkg/metrics"
)

const demoChatReply = "هذه استجابة تجريبية من %s للرسالة: \"%s\"\n\nفي الوضع العادي، ستحصل على استجابة حقيقية من النموذج المختار. تأكد من تفعيل خدمة الذكاء الاصطناعي والاتصال بالإنترنت."

// Role is the author of a chat message.
type Role string

// Roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one chat entry. Content only changes while Streaming is true.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
	Demo      bool      `json:"demo,omitempty"`
	Streaming bool      `json:"streaming,omitempty"`
}

// Exchange is one answered user message, handed to the Recorder.
type Exchange struct {
	ID       string  `json:"id"`
	ModelID  string  `json:"modelId"`
	Streamed bool    `json:"streamed"`
	Question Message `json:"question"`
	Answer   Message `json:"answer"`
}

// Update reports progress of a streamed answer. Content is the whole text so far.
type Update struct {
	MessageID string `json:"messageId"`
	Delta     string `json:"delta"`
	Content   string `json:"content"`
	Done      bool   `json:"done"`
}

// ChatOptions tune one Send. A non-positive MaxTokens uses the flow default.
// When Updates is set, Send writes progress to it and closes it before returning.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	Updates     chan<- Update
}

// Chat is a conversation with a selectable model.
type Chat struct {
	ai  AI
	cat *catalog.Catalog
	settings

	mu       sync.Mutex
	messages []Message
	inflight uint64 // epoch+1 of the send in progress, 0 when idle
	epoch    atomic.Uint64
}

// NewChat returns an empty conversation.
func NewChat(ai AI, cat *catalog.Catalog, opts ...Option) *Chat {
	return &Chat{ai: ai, cat: cat, settings: newSettings("chat", opts)}
}

// Messages returns a copy of the history, oldest first.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear empties the history. Answers still in flight are discarded.
func (c *Chat) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch.Add(1)
	c.messages = nil
	c.inflight = 0
}

// Send appends text as a user message and the model's answer after it.
// Answers stream when opts.Temperature is above the stream threshold.
func (c *Chat) Send(ctx context.Context, text, modelID string, opts ChatOptions) (Message, error) {
	if opts.Updates != nil {
		defer close(opts.Updates)
	}

	res := c.checker.ChatMessage(text)
	if !res.Valid {
		return Message{}, invalid(res)
	}
	if modelID == "" {
		return Message{}, ErrNoModel
	}
	if sel := c.checker.ModelSelection(modelID); !sel.Valid {
		return Message{}, invalid(sel)
	}
	model, ok := c.cat.ByID(modelID)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	if validation.HasMarkup(text) {
		text = validation.StripMarkup(text)
		// Markup alone is only a warning on the raw text.
		if strings.TrimSpace(text) == "" {
			return Message{}, invalid(c.checker.ChatMessage(text))
		}
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = c.maxTokens
	}

	c.mu.Lock()
	epoch := c.epoch.Load()
	if c.inflight == epoch+1 {
		c.mu.Unlock()
		return Message{}, ErrChatBusy
	}
	c.inflight = epoch + 1
	question := Message{ID: c.newID(), Role: RoleUser, Content: text, CreatedAt: c.now().UTC()}
	c.appendLocked(question)
	c.mu.Unlock()
	defer c.release(epoch)

	metrics.RecordChatMessage(string(RoleUser))

	streamed := opts.Temperature > c.streamThreshold
	var (
		answer Message
		err    error
	)
	if streamed {
		metrics.RecordChatMode("stream")
		answer, err = c.stream(ctx, epoch, text, model, opts)
	} else {
		metrics.RecordChatMode("single")
		answer, err = c.single(ctx, epoch, text, model, opts)
	}
	if err != nil {
		return Message{}, err
	}

	metrics.RecordChatMessage(string(RoleAssistant))
	c.recorder.RecordExchange(ctx, Exchange{
		ID:       question.ID,
		ModelID:  model.ID,
		Streamed: streamed,
		Question: question,
		Answer:   answer,
	})
	return answer, nil
}

func (c *Chat) single(ctx context.Context, epoch uint64, text string, model catalog.Model, opts ChatOptions) (Message, error) {
	answer := Message{ID: c.newID(), Role: RoleAssistant, Model: model.Name}

	result, ok := c.call(ctx, model, func() gateway.Result {
		return c.ai.GenerateText(ctx, text, model.ID, gateway.TextOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
	})
	if ok {
		answer.Content = answerText(result)
		answer.Demo = result.Fallback
	} else {
		c.demo(&answer, model, text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		metrics.RecordStaleDiscarded("chat")
		return Message{}, ErrStale
	}
	answer.CreatedAt = c.now().UTC()
	c.appendLocked(answer)
	return answer, nil
}

func (c *Chat) stream(ctx context.Context, epoch uint64, text string, model catalog.Model, opts ChatOptions) (Message, error) {
	answer := Message{
		ID:        c.newID(),
		Role:      RoleAssistant,
		Model:     model.Name,
		CreatedAt: c.now().UTC(),
		Streaming: true,
	}
	c.mu.Lock()
	if c.epoch.Load() != epoch {
		c.mu.Unlock()
		metrics.RecordStaleDiscarded("chat")
		return Message{}, ErrStale
	}
	c.appendLocked(answer)
	c.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var full string
	_, ok := c.call(streamCtx, model, func() gateway.Result {
		for frag := range c.ai.GenerateTextStream(streamCtx, text, model.ID, gateway.TextOptions{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}) {
			full += frag.Text
			if !c.apply(epoch, answer.ID, full) {
				return gateway.Result{}
			}
			notify(ctx, opts.Updates, Update{MessageID: answer.ID, Delta: frag.Text, Content: full})
		}
		return gateway.Result{}
	})

	if c.epoch.Load() != epoch {
		metrics.RecordStaleDiscarded("chat")
		return Message{}, ErrStale
	}
	switch {
	case !ok:
		c.demo(&answer, model, text)
		full = answer.Content
	case full == "":
		full = ResponseErrorText
	}
	if !c.finish(epoch, answer.ID, full, answer.Model, answer.Demo) {
		metrics.RecordStaleDiscarded("chat")
		return Message{}, ErrStale
	}
	answer.Content = full
	answer.Streaming = false
	notify(ctx, opts.Updates, Update{MessageID: answer.ID, Content: full, Done: true})
	return answer, nil
}

// call runs fn and converts a panic into ok=false.
func (c *Chat) call(ctx context.Context, model catalog.Model, fn func() gateway.Result) (res gateway.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "chat call panicked", logger.String("model", model.ID), logger.Any("panic", r))
			ok = false
		}
	}()
	return fn(), true
}

func (c *Chat) demo(m *Message, model catalog.Model, text string) {
	m.Content = fmt.Sprintf(demoChatReply, model.Name, text)
	m.Model = model.Name + DemoSuffix
	m.Demo = true
}

// apply replaces the content of the streaming message id. It reports false
// when the conversation was cleared.
func (c *Chat) apply(epoch uint64, id, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return false
	}
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Content = content
			break
		}
	}
	return true
}

func (c *Chat) finish(epoch uint64, id, content, model string, demo bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.Load() != epoch {
		return false
	}
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Content = content
			c.messages[i].Model = model
			c.messages[i].Demo = demo
			c.messages[i].Streaming = false
			break
		}
	}
	return true
}

func (c *Chat) appendLocked(m Message) {
	c.messages = append(c.messages, m)
	if over := len(c.messages) - c.maxMessages; over > 0 {
		c.messages = append([]Message(nil), c.messages[over:]...)
	}
}

func (c *Chat) release(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == epoch+1 {
		c.inflight = 0
	}
}

func notify(ctx context.Context, ch chan<- Update, u Update) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	case <-ctx.Done():
	}
}

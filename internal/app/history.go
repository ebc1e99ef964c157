package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/mu3/internal/adapters/mq/queue"
	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/pkg/logger"
)

// Persisted history lengths.
const (
	BattleHistoryLimit = 50
	ChatHistoryLimit   = 50
	ImageHistoryLimit  = 5
)

type historyList struct {
	key   string
	limit int
	mu    sync.Mutex
}

// historyWriter appends finished results to capped JSON lists in storage.
// Writes to one key are serialized.
type historyWriter struct {
	store storage.Store
	lists map[queue.Kind]*historyList
}

func newHistoryWriter(store storage.Store, imageLimit int) *historyWriter {
	if imageLimit <= 0 {
		imageLimit = ImageHistoryLimit
	}
	return &historyWriter{
		store: store,
		lists: map[queue.Kind]*historyList{
			queue.KindBattle: {key: storage.KeyBattleHistory, limit: BattleHistoryLimit},
			queue.KindChat:   {key: storage.KeyChatHistory, limit: ChatHistoryLimit},
			queue.KindImage:  {key: storage.KeyImageHistory, limit: imageLimit},
		},
	}
}

// Handle implements worker.Handler.
func (w *historyWriter) Handle(ctx context.Context, j queue.Job) error {
	const op = "service.historyWriter.Handle"

	l, ok := w.lists[j.Kind]
	if !ok {
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownJob, j.Kind)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := storage.PrependCapped(ctx, w.store, l.key, j.Payload, l.limit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// read returns the stored list for kind, newest first. A missing list is empty.
func (w *historyWriter) read(ctx context.Context, kind queue.Kind) ([]json.RawMessage, error) {
	const op = "service.historyWriter.read"

	l, ok := w.lists[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownHistory, kind)
	}
	var items []json.RawMessage
	if err := storage.GetJSON(ctx, w.store, l.key, &items); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// queueRecorder hands finished results to the history queue. It never blocks;
// results that do not fit are logged and dropped.
type queueRecorder struct {
	q      queue.Queue
	logger logger.Logger
}

func (r *queueRecorder) RecordBattle(ctx context.Context, b arena.BattleResult) {
	r.enqueue(ctx, queue.Job{Kind: queue.KindBattle, ID: "battle:" + b.ID, Payload: b})
}

func (r *queueRecorder) RecordExchange(ctx context.Context, e arena.Exchange) {
	r.enqueue(ctx, queue.Job{Kind: queue.KindChat, ID: "chat:" + e.ID, Payload: e})
}

func (r *queueRecorder) RecordImage(ctx context.Context, img arena.GeneratedImage) {
	r.enqueue(ctx, queue.Job{Kind: queue.KindImage, ID: "image:" + img.ID, Payload: img})
}

func (r *queueRecorder) enqueue(ctx context.Context, j queue.Job) {
	// The request may end right after the result is produced.
	if !r.q.Enqueue(context.WithoutCancel(ctx), j) {
		r.logger.Warn(ctx, "history job dropped",
			logger.String("kind", string(j.Kind)),
			logger.String("id", j.ID),
		)
	}
}

package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/mu3/pkg/logger"
)

// verify waits for the history workers to catch up and checks that no
// critical error was recorded during the run.
func verify(ctx context.Context, c *client, cfg Config, stats *Stats) error {
	wantBattles := min(stats.BattlesVoted, battleHistoryLimit)
	wantChats := min(stats.ChatsSent, chatHistoryLimit)

	deadline := time.Now().Add(cfg.Settle)
	for {
		battles, err := historyLen(ctx, c, "battle")
		if err != nil {
			return err
		}
		chats, err := historyLen(ctx, c, "chat")
		if err != nil {
			return err
		}
		stats.HistoryBattles, stats.HistoryChats = battles, chats
		if battles >= wantBattles && chats >= wantChats {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("history incomplete after %s: battles %d/%d, chats %d/%d",
				cfg.Settle, battles, wantBattles, chats, wantChats)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(historyPollInterval):
		}
	}

	var counts map[string]int
	if _, err := c.do(ctx, http.MethodGet, "/errors/stats", "", nil, &counts); err != nil {
		return err
	}
	stats.CriticalErrors = counts[criticalStatsKey]
	if stats.CriticalErrors > 0 {
		return fmt.Errorf("service recorded %d critical errors", stats.CriticalErrors)
	}

	logger.Named("loadtest").Info(ctx, "results verified",
		logger.Int("historyBattles", stats.HistoryBattles),
		logger.Int("historyChats", stats.HistoryChats))
	return nil
}

func historyLen(ctx context.Context, c *client, kind string) (int, error) {
	var items []json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "/history/"+kind, "", nil, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

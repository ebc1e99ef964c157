package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/pkg/logger"
)

const sseBuffer = 16

// chatRequest fields left empty fall back to the stored preferences.
type chatRequest struct {
	Message     string   `json:"message"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
}

type chatResponse struct {
	Message  arena.Message   `json:"message"`
	Messages []arena.Message `json:"messages"`
}

// chatParams resolves the model and options of req against the preferences.
func (s *Server) chatParams(ctx context.Context, req chatRequest) (string, arena.ChatOptions) {
	prefs, ok := errreg.Guard(ctx, s.registry, "", func(ctx context.Context) (storage.Preferences, error) {
		return storage.LoadPreferences(ctx, s.deps.Store())
	})
	if !ok {
		prefs = storage.DefaultPreferences()
	}
	model := req.Model
	if model == "" {
		model = prefs.DefaultModel
	}
	opts := arena.ChatOptions{Temperature: prefs.Temperature, MaxTokens: prefs.MaxTokens}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	return model, opts
}

// handleGetChat handles GET /chat.
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Chat.Messages())
}

// handleSendChat handles POST /chat and answers once the reply is complete.
func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	model, opts := s.chatParams(r.Context(), req)
	msg, err := sess.Chat.Send(r.Context(), req.Message, model, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Message: msg, Messages: sess.Chat.Messages()})
}

// handleStreamChat handles POST /chat/stream. Progress is sent as "update"
// events and the final message as a "done" event. Inputs rejected before the
// answer starts get a plain JSON error instead of a stream.
func (s *Server) handleStreamChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	model, opts := s.chatParams(ctx, req)

	updates := make(chan arena.Update, sseBuffer)
	opts.Updates = updates

	type outcome struct {
		msg arena.Message
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out := outcome{err: errreg.ErrPanic}
		defer func() { done <- out }()
		defer s.registry.Recover(ctx, "chat stream")
		out.msg, out.err = sess.Chat.Send(ctx, req.Message, model, opts)
	}()

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		setSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
	}

	for u := range updates {
		start()
		s.sendEvent(ctx, w, "update", u)
	}

	out := <-done
	if out.err != nil {
		if !started {
			s.fail(w, r, out.err)
			return
		}
		status, code := statusFor(out.err)
		if status == http.StatusInternalServerError && !errors.Is(out.err, errreg.ErrPanic) {
			s.registry.System(ctx, out.err.Error(), map[string]any{"path": r.URL.Path})
		}
		s.sendEvent(ctx, w, "error", errorResponse{Code: code, Message: out.err.Error()})
		return
	}
	start()
	s.sendEvent(ctx, w, "done", out.msg)
}

// handleClearChat handles DELETE /chat.
func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Chat.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func (s *Server) sendEvent(ctx context.Context, w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error(ctx, "failed to marshal stream event", logger.Error(err))
		data = []byte(`{"code":"internal_error"}`)
		event = "error"
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

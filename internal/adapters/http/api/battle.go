package api

import (
	"net/http"

	"github.com/okian/mu3/internal/arena"
)

type battleRequest struct {
	Prompt string `json:"prompt"`
}

type voteRequest struct {
	Winner arena.Outcome `json:"winner"`
}

type battleResponse struct {
	Phase  arena.Phase         `json:"phase"`
	Result *arena.BattleResult `json:"result,omitempty"`
}

// handleGetBattle handles GET /battle.
func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp := battleResponse{Phase: sess.Battle.Phase()}
	if res, ok := sess.Battle.Current(); ok {
		resp.Result = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStartBattle handles POST /battle. It answers when both models have replied.
func (s *Server) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	var req battleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Battle.Start(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battleResponse{Phase: sess.Battle.Phase(), Result: &res})
}

// handleVote handles POST /battle/vote and returns the revealed result.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Battle.Vote(r.Context(), req.Winner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battleResponse{Phase: sess.Battle.Phase(), Result: &res})
}

// handleResetBattle handles POST /battle/reset.
func (s *Server) handleResetBattle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Battle.Reset()
	w.WriteHeader(http.StatusNoContent)
}

package service

import (
	"container/list"
	"time"

	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/pkg/metrics"
)

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID = "default"

// Session holds the orchestrators of one user.
type Session struct {
	ID        string
	Battle    *arena.Battle
	Chat      *arena.Chat
	Images    *arena.Images
	Vision    *arena.Vision
	CreatedAt time.Time

	lastSeen time.Time
}

// close drops state and invalidates anything still in flight.
func (s *Session) close() {
	s.Battle.Reset()
	s.Chat.Clear()
	s.Images.Clear()
}

// sessions is an LRU of Session values. The caller holds the service lock.
type sessions struct {
	limit int
	byID  map[string]*list.Element
	order *list.List // front = most recently used
}

func newSessions(limit int) *sessions {
	return &sessions{limit: limit, byID: make(map[string]*list.Element), order: list.New()}
}

func (ss *sessions) get(id string, now time.Time, create func() *Session) *Session {
	if el, ok := ss.byID[id]; ok {
		ss.order.MoveToFront(el)
		s := el.Value.(*Session)
		s.lastSeen = now
		return s
	}
	if ss.limit > 0 && ss.order.Len() >= ss.limit {
		oldest := ss.order.Back()
		ss.order.Remove(oldest)
		old := oldest.Value.(*Session)
		delete(ss.byID, old.ID)
		old.close()
	}
	s := create()
	s.lastSeen = now
	ss.byID[id] = ss.order.PushFront(s)
	metrics.UpdateActiveSessions(ss.order.Len())
	return s
}

func (ss *sessions) remove(id string) bool {
	el, ok := ss.byID[id]
	if !ok {
		return false
	}
	ss.order.Remove(el)
	delete(ss.byID, id)
	el.Value.(*Session).close()
	metrics.UpdateActiveSessions(ss.order.Len())
	return true
}

func (ss *sessions) len() int { return ss.order.Len() }

func (ss *sessions) closeAll() {
	for el := ss.order.Front(); el != nil; el = el.Next() {
		el.Value.(*Session).close()
	}
	ss.byID = make(map[string]*list.Element)
	ss.order.Init()
	metrics.UpdateActiveSessions(0)
}

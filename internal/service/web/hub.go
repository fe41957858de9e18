// FILE: internal/service/web/hub.go
package web

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
)

// Session is the registry's record of one live connection. It carries no
// stream state; the counter and socket belong to the handler goroutine.
type Session struct {
	ID         string
	RemoteAddr string
	StartedAt  time.Time
	cancel     context.CancelFunc
}

func newSession(remoteAddr string, cancel context.CancelFunc) *Session {
	return &Session{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		StartedAt:  time.Now().UTC(),
		cancel:     cancel,
	}
}

// Hub maintains the set of live sessions so they can be listed and
// cancelled on shutdown.
type Hub struct {
	sessions map[string]*Session
	metrics  *Metrics
	mu       sync.Mutex
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		metrics:  metrics,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	n := len(h.sessions)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.sessionOpened(n)
	}
	logger.Info().Str("session", s.ID).Str("remote_addr", s.RemoteAddr).Msg("WebSocket session registered.")
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}
	if h.metrics != nil {
		h.metrics.setActive(n)
	}
	logger.Info().Str("session", id).Str("remote_addr", s.RemoteAddr).Msg("WebSocket session unregistered.")
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Snapshot lists live sessions, oldest first.
func (h *Hub) Snapshot() []*types.SessionInfo {
	h.mu.Lock()
	out := make([]*types.SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, &types.SessionInfo{ID: s.ID, RemoteAddr: s.RemoteAddr, StartedAt: s.StartedAt})
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// CloseAll cancels every live session. Sessions unregister themselves as
// their handlers return.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		if s.cancel != nil {
			s.cancel()
		}
	}
	if len(h.sessions) > 0 {
		logger.Info().Int("sessions", len(h.sessions)).Msg("Hub: cancelling live sessions.")
	}
}

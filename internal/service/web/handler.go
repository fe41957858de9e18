package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"timecast/internal/shared/globalstate"
	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
	"timecast/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins
}

// HandleStatus 处理 GET /api/status 请求
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sessions := s.hub.Snapshot()
	response := types.StatusResponse{
		Status:            globalstate.GlobalStatus.Get(),
		ActiveConnections: len(sessions),
		Sessions:          sessions,
		Traffic:           s.traffic.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Warn().Err(err).Msg("Failed to encode status response")
	}
}

// ServeWs upgrades the request and runs the timestamp stream for it in its
// own goroutine.
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade websocket")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := newSession(conn.RemoteAddr().String(), cancel)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		cancel()
		if err := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline()); err != nil {
			logger.Debug().Err(err).Str("remote_addr", session.RemoteAddr).Msg("Failed to send going-away close")
		}
		conn.Close()
		return
	}
	s.wg.Add(1)
	s.hub.Register(session)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.hub.Unregister(session.ID)
		defer cancel()

		stats, err := s.handler.Serve(ctx, conn, session.ID)
		s.metrics.sessionEnded(err)
		logSessionEnd(session, stats, err)
	}()
}

func logSessionEnd(session *Session, stats stream.Stats, err error) {
	var closeErr *websocket.CloseError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Str("session", session.ID).Uint64("sent", stats.Sent).Msg("Session cancelled.")
	case errors.As(err, &closeErr) && websocket.IsUnexpectedCloseError(closeErr, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure):
		logger.Warn().Err(err).Str("session", session.ID).Uint64("sent", stats.Sent).Msg("Unexpected websocket close error")
	default:
		logger.Info().Err(err).Str("session", session.ID).Uint64("sent", stats.Sent).Int("iterations", stats.Iterations).Msg("Session ended.")
	}
}

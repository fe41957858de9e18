package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"timecast/internal/shared/types"
)

const (
	// PingMessage is the heartbeat probe a peer may send.
	PingMessage = "ping"
	// PongMessage answers PingMessage when heartbeat mode is on.
	PongMessage = "pong"
)

var (
	ErrInitialRead = errors.New("initial read failed")
	ErrSend        = errors.New("send failed")
	ErrPeerGone    = errors.New("peer stopped reading")
)

// Conn is the part of *websocket.Conn the handler needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Recorder receives per-frame events, typically for metrics.
type Recorder interface {
	FrameSent()
	LongPause()
	HeartbeatReplied()
}

type nopRecorder struct{}

func (nopRecorder) FrameSent()        {}
func (nopRecorder) LongPause()        {}
func (nopRecorder) HeartbeatReplied() {}

// Options controls the send cadence of one connection.
type Options struct {
	MaxInterval    time.Duration // random delay is drawn from [0, MaxInterval)
	PauseAt        int           // iteration that triggers the long pause
	PauseFor       time.Duration
	WriteTimeout   time.Duration // 0 disables the write deadline
	RecurringPause bool          // pause on every multiple of PauseAt instead of once
	Heartbeat      bool          // keep reading and answer ping with pong
}

func OptionsFromConfig(cfg *types.Config) Options {
	return Options{
		MaxInterval:    cfg.MaxInterval(),
		PauseAt:        cfg.StreamConf.PauseAt,
		PauseFor:       cfg.PauseFor(),
		WriteTimeout:   cfg.WriteTimeout(),
		RecurringPause: cfg.StreamConf.RecurringPause,
		Heartbeat:      cfg.StreamConf.Heartbeat,
	}
}

// Stats summarizes a finished session.
type Stats struct {
	Initial    string
	Sent       uint64
	Iterations int
}

// Handler serves timestamp streams. One Handler is shared by all
// connections; all per-connection state lives on the Serve stack.
type Handler struct {
	opts Options
	log  zerolog.Logger
	rec  Recorder

	now    func() time.Time
	jitter func(max time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewHandler(opts Options, log zerolog.Logger, rec Recorder) *Handler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Handler{
		opts:   opts,
		log:    log,
		rec:    rec,
		now:    time.Now,
		jitter: uniformJitter,
		sleep:  sleepContext,
	}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shouldPause reports whether the long pause follows iteration counter.
// PauseAt < 1 disables the pause.
func (h *Handler) shouldPause(counter int) bool {
	if h.opts.PauseAt < 1 {
		return false
	}
	if h.opts.RecurringPause {
		return counter%h.opts.PauseAt == 0
	}
	return counter == h.opts.PauseAt
}

// lockedWriter serializes writes; gorilla allows one concurrent writer.
type lockedWriter struct {
	mu      sync.Mutex
	conn    Conn
	timeout time.Duration
}

func (w *lockedWriter) writeText(payload string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return err
		}
	}
	return w.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// Serve runs one connection until the peer goes away, a send fails or ctx
// is cancelled. It takes ownership of conn and closes it before returning.
// A cancelled ctx is reported as ctx's error, not as a transport failure.
func (h *Handler) Serve(ctx context.Context, conn Conn, sessionID string) (Stats, error) {
	log := h.log.With().Str("session", sessionID).Logger()
	var stats Stats

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	// Closing the socket is what unblocks a pending read or write.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
	}()

	log.Info().Msg("serve start")

	_, msg, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return stats, context.Cause(ctx)
		}
		return stats, fmt.Errorf("%w: %w", ErrInitialRead, err)
	}
	stats.Initial = string(msg)
	// "ping" and any other opener take the same path: the reply is always
	// the timestamp stream.
	log.Info().Str("message", stats.Initial).Msg("initial message received")

	w := &lockedWriter{conn: conn, timeout: h.opts.WriteTimeout}
	if h.opts.Heartbeat {
		go h.readLoop(conn, w, cancel, log)
	}

	counter := 0
	for {
		if err := w.writeText(FormatTimestamp(h.now())); err != nil {
			if ctx.Err() != nil {
				return stats, context.Cause(ctx)
			}
			return stats, fmt.Errorf("%w: %w", ErrSend, err)
		}
		stats.Sent++
		h.rec.FrameSent()

		if err := h.sleep(ctx, h.jitter(h.opts.MaxInterval)); err != nil {
			return stats, context.Cause(ctx)
		}

		counter++
		stats.Iterations = counter
		if h.shouldPause(counter) {
			log.Info().Int("iteration", counter).Dur("pause", h.opts.PauseFor).Msg("long pause")
			h.rec.LongPause()
			if err := h.sleep(ctx, h.opts.PauseFor); err != nil {
				return stats, context.Cause(ctx)
			}
		}
	}
}

// readLoop consumes frames after the first one in heartbeat mode. Any read
// or reply failure cancels the session.
func (h *Handler) readLoop(conn Conn, w *lockedWriter, cancel context.CancelCauseFunc, log zerolog.Logger) {
	for {
		mt, p, err := conn.ReadMessage()
		if err != nil {
			cancel(fmt.Errorf("%w: %w", ErrPeerGone, err))
			return
		}
		if mt != websocket.TextMessage || string(p) != PingMessage {
			continue
		}
		if err := w.writeText(PongMessage); err != nil {
			cancel(fmt.Errorf("%w: %w", ErrSend, err))
			return
		}
		h.rec.HeartbeatReplied()
		log.Debug().Msg("heartbeat answered")
	}
}

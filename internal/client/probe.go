package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"timecast/internal/stream"
)

// ErrHeartbeatTimeout is returned when a ping went unanswered for longer
// than ProbeOptions.PongTimeout.
var ErrHeartbeatTimeout = errors.New("no pong before heartbeat timeout")

// ProbeOptions configures a single probing session.
type ProbeOptions struct {
	URL              string
	Opener           string        // first frame sent, "ping" when empty
	HeartbeatEvery   time.Duration // send "ping" periodically; 0 disables
	PongTimeout      time.Duration // close if a ping sees no pong this long; 0 waits forever
	HandshakeTimeout time.Duration
}

// pongWatch closes the session when an outstanding ping is not answered in
// time. Later pings do not push the deadline back; only a pong does.
type pongWatch struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	expire  func()
}

func (w *pongWatch) pinged() {
	if w.timeout <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		w.timer = time.AfterFunc(w.timeout, w.expire)
	}
}

func (w *pongWatch) ponged() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Frame is one message received from the server.
type Frame struct {
	Payload    string
	Timestamp  time.Time // zero for pong frames
	Pong       bool
	ReceivedAt time.Time
}

// Probe connects, sends the opener and hands every received frame to
// onFrame until onFrame returns false, ctx ends or the server goes away.
func Probe(ctx context.Context, opts ProbeOptions, onFrame func(Frame) bool) error {
	if opts.Opener == "" {
		opts.Opener = stream.PingMessage
	}
	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", opts.URL, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(opts.Opener)); err != nil {
		return fmt.Errorf("failed to send opener: %w", err)
	}

	watch := &pongWatch{
		timeout: opts.PongTimeout,
		expire:  func() { cancel(ErrHeartbeatTimeout) },
	}
	defer watch.ponged()

	// Only this goroutine writes after the opener.
	if opts.HeartbeatEvery > 0 {
		go func() {
			ticker := time.NewTicker(opts.HeartbeatEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := conn.WriteMessage(websocket.TextMessage, []byte(stream.PingMessage)); err != nil {
						cancel(fmt.Errorf("failed to send ping: %w", err))
						return
					}
					watch.pinged()
				}
			}
		}()
	}

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		frame := Frame{Payload: string(p), ReceivedAt: time.Now()}
		if frame.Payload == stream.PongMessage {
			frame.Pong = true
			watch.ponged()
		} else if frame.Timestamp, err = stream.ParseTimestamp(frame.Payload); err != nil {
			return fmt.Errorf("unexpected frame: %w", err)
		}

		if !onFrame(frame) {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return fmt.Errorf("failed to send close: %w", err)
			}
			return nil
		}
	}
}

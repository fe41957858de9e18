package app

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"timecast/internal/shared/globalstate"
	"timecast/internal/shared/types"
	"timecast/internal/stream"
)

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.ServerConf.Host = "127.0.0.1"
	cfg.ServerConf.Port = 0
	cfg.ServerConf.ShutdownTimeout = 2
	cfg.StreamConf.MaxIntervalMs = 60000
	return cfg
}

func waitReady(t *testing.T, s *AppServer) net.Addr {
	t.Helper()
	select {
	case addr := <-s.Ready():
		return addr
	case <-time.After(3 * time.Second):
		t.Fatal("server never became ready")
		return nil
	}
}

func TestRun_ServesUntilContextCancelled(t *testing.T) {
	s := New(testConfig())
	s.statsInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	addr := waitReady(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr.String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err)
	_, err = stream.ParseTimestamp(string(p))
	require.NoError(t, err)
	require.Equal(t, globalstate.StatusRunning, globalstate.GlobalStatus.Get())

	// The session is mid-sleep; shutdown must not wait for it.
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, globalstate.StatusStopped, globalstate.GlobalStatus.Get())
}

func TestStop(t *testing.T) {
	s := New(testConfig())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()
	waitReady(t, s)

	s.Stop()
	s.Stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestStop_BeforeRun(t *testing.T) {
	s := New(testConfig())
	s.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run ignored an earlier Stop")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// default config leaves SO_REUSEPORT off, so the second bind fails
	cfg := testConfig()
	cfg.ServerConf.Port = ln.Addr().(*net.TCPAddr).Port
	err = New(cfg).Run(context.Background())
	require.Error(t, err)
}

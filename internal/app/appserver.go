package app

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"timecast/internal/service/web"
	"timecast/internal/shared/globalstate"
	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
)

const statsInterval = 30 * time.Second

// AppServer is the application's main struct. It owns the web server and
// every goroutine spawned for it.
type AppServer struct {
	cfg *types.Config
	web *web.Server

	statsInterval time.Duration
	ready         chan net.Addr
	stopOnce      sync.Once
	stopped       chan struct{} // closed by Stop, possibly before Run starts
}

// New creates a new AppServer instance.
func New(cfg *types.Config) *AppServer {
	return &AppServer{
		cfg:           cfg,
		web:           web.NewServer(cfg),
		statsInterval: statsInterval,
		ready:         make(chan net.Addr, 1),
		stopped:       make(chan struct{}),
	}
}

// Ready yields the bound address once the listener is up.
func (s *AppServer) Ready() <-chan net.Addr { return s.ready }

// Run is the server's entry point. It blocks until ctx is cancelled, Stop
// is called or the listener fails, then shuts down within the configured
// grace period.
func (s *AppServer) Run(ctx context.Context) error {
	logger.Info().Msg("Starting timecast server...")
	globalstate.GlobalStatus.Set(globalstate.StatusInitializing)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	addr, err := s.web.Listen(ctx)
	if err != nil {
		globalstate.GlobalStatus.Set(globalstate.StatusStopped)
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	globalstate.GlobalStatus.Set(globalstate.StatusRunning)
	s.ready <- addr

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.web.Serve(); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.statsLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		globalstate.GlobalStatus.Set(globalstate.StatusStopping)
		logger.Info().Msg("Stopping server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace())
		defer cancel()
		if err := s.web.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
		return nil
	})

	err = g.Wait()
	globalstate.GlobalStatus.Set(globalstate.StatusStopped)
	logger.Info().Msg("Server stopped.")
	return err
}

// Stop gracefully shuts down the server.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// statsLoop 定期输出当前活跃连接数
func (s *AppServer) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug().Int("active_connections", s.web.Hub().Count()).Msg("stats")
		}
	}
}

package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/netutil"

	"timecast/internal/shared"
	"timecast/internal/shared/logger"
	"timecast/internal/shared/types"
	"timecast/internal/stream"
	"timecast/internal/sys/sockopt"
)

// --- DIAGNOSTIC HELPER: A listener that logs accepted connections ---
type loggingListener struct {
	net.Listener
}

func (l loggingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		logger.Debug().Msgf(" [WebServer DIAGNOSTIC] Connection accepted from: %s ", conn.RemoteAddr())
	}
	return conn, err
}

// Server owns the listener, the HTTP routes and every live session.
type Server struct {
	cfg      *types.Config
	handler  *stream.Handler
	hub      *Hub
	metrics  *Metrics
	traffic  *shared.Traffic
	router   chi.Router
	httpSrv  *http.Server
	listener net.Listener

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewServer(cfg *types.Config) *Server {
	metrics := NewMetrics()
	traffic := &shared.Traffic{}
	metrics.registerTraffic(traffic)
	s := &Server{
		cfg:     cfg,
		metrics: metrics,
		traffic: traffic,
		hub:     NewHub(metrics),
		handler: stream.NewHandler(stream.OptionsFromConfig(cfg), logger.WithComponent("stream"), metrics),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/status", s.HandleStatus)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	// The stream is served on every other path.
	r.HandleFunc("/*", s.ServeWs)
	s.router = r

	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Hub() *Hub { return s.hub }

// Listen binds the configured address and returns the bound address, which
// differs from the configured one when port is 0.
func (s *Server) Listen(ctx context.Context) (net.Addr, error) {
	lc := net.ListenConfig{Control: sockopt.Control(s.cfg.ServerConf.ReusePort)}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return nil, err
	}
	if limit := s.cfg.ServerConf.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}
	s.listener = loggingListener{Listener: shared.CountingListener{Listener: ln, Traffic: s.traffic}}
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Msgf("SUCCESS: WebSocket server is listening on ws://%s", ln.Addr())
	return ln.Addr(), nil
}

// Serve blocks until Shutdown is called or the listener fails.
func (s *Server) Serve() error {
	if s.httpSrv == nil {
		return errors.New("web server: Listen must be called before Serve")
	}
	if err := s.httpSrv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting, cancels every session and waits for their
// handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	// Hijacked websocket conns are not tracked by http.Server.
	s.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info().Msg("Web server stopped.")
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

func deadline() time.Time { return time.Now().Add(time.Second) }

package inspect

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/loom/pkg/loom"
	"github.com/vango-dev/loom/pkg/wire"
)

// Server is the inspector HTTP server.
type Server struct {
	rt       *loom.Runtime
	config   *Config
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	unsubscribe func()
	httpServer  *http.Server
}

// New creates an inspector for rt. It subscribes to commit records, so it
// must be called before the scheduler runs or from a scheduler task.
func New(rt *loom.Runtime, config *Config) *Server {
	config = config.withDefaults()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		rt:      rt,
		config:  config,
		logger:  logger.With("component", "inspect"),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	if s.upgrader.CheckOrigin == nil {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	s.unsubscribe = rt.OnCommit(s.broadcast)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/stats", s.handleStats)
	r.Get("/roots", s.handleRoots)
	r.Get("/roots/{root}/html", s.handleRootHTML)
	r.Get("/instances/{id}", s.handleInstance)
	r.Get("/ws", s.handleStream)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler serving the inspector routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on Config.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "address", s.config.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.Close()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	s.logger.Info("inspector shutdown complete")
	return nil
}

// Close disconnects every stream client and stops receiving commit
// records.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for c := range clients {
		c.close()
	}
	s.rt.Scheduler().Post(s.unsubscribe)
}

// ClientCount returns the number of connected stream clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast runs on the scheduler goroutine for every commit.
func (s *Server) broadcast(rec loom.CommitRecord) {
	frame := wire.EncodeCommit(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.enqueue(frame) {
			s.logger.Warn("dropping slow inspector client", "remote", c.remote)
			delete(s.clients, c)
			c.close()
		}
	}
}

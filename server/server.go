package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jupark12/fiado/metrics"
	"github.com/jupark12/fiado/models"
	"github.com/jupark12/fiado/queue"
	"github.com/jupark12/fiado/store"
	"github.com/jupark12/fiado/worker"
)

// Options configures a Server
type Options struct {
	HTTPAddr           string
	UploadDir          string
	NumWorkers         int
	WorkerPollInterval time.Duration
	SuggestionLimit    int
	PrometheusEnabled  bool
	PortalBaseURL      string
	// EntrySessionTTL is how long an untouched entry session stays open
	EntrySessionTTL time.Duration
}

const defaultEntrySessionTTL = 30 * time.Minute

// Server wires the HTTP API, the portal feed and the import workers
type Server struct {
	store     store.Store
	queue     *queue.ImportQueue
	workers   []*worker.Worker
	wsManager *models.WebSocketManager
	sessions  *SessionRegistry
	metrics   *metrics.Metrics
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	router    *gin.Engine
	opts      Options
}

// NewServer creates a new server instance
func NewServer(st store.Store, q *queue.ImportQueue, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	s := &Server{
		store:     st,
		queue:     q,
		workers:   make([]*worker.Worker, opts.NumWorkers),
		wsManager: models.NewWebSocketManager(logger),
		sessions:  NewSessionRegistry(),
		metrics:   m,
		logger:    logger,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	for i := 0; i < opts.NumWorkers; i++ {
		w := worker.NewWorker(fmt.Sprintf("worker-%d", i+1), q, st, m, logger)
		if opts.WorkerPollInterval > 0 {
			w.PollInterval = opts.WorkerPollInterval
		}
		w.SetNotifier(s.notifyBalance)
		s.workers[i] = w
	}

	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// notifyBalance pushes a client's new balance to its portal subscribers
func (s *Server) notifyBalance(clientID uuid.UUID, balance decimal.Decimal) {
	s.wsManager.BroadcastBalance(clientID, balance)
}

// Run serves HTTP and runs the workers until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.wsManager.Start(ctx)

	httpServer := &http.Server{
		Addr:              s.opts.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", zap.String("addr", s.opts.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.sweepSessions(ctx)
		return nil
	})
	for _, w := range s.workers {
		w := w
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	s.logger.Info("fiado started", zap.Int("workers", len(s.workers)))
	return g.Wait()
}

// sweepSessions drops abandoned entry sessions until ctx is cancelled
func (s *Server) sweepSessions(ctx context.Context) {
	ttl := s.opts.EntrySessionTTL
	if ttl <= 0 {
		ttl = defaultEntrySessionTTL
	}
	interval := ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireSessions(ttl)
		}
	}
}

func (s *Server) expireSessions(ttl time.Duration) int {
	n := s.sessions.Sweep(ttl)
	if n == 0 {
		return 0
	}
	if s.metrics != nil {
		s.metrics.OpenSessions.Sub(float64(n))
	}
	s.logger.Info("expired idle entry sessions", zap.Int("count", n))
	return n
}

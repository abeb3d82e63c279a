// Package worker provides the inspection service over the session store:
// a small HTTP API for browsing sessions, logs, and todos, an SSE feed of
// recorded protocol events, and the store file watcher.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/buddyagent/buddy/internal/config"
	"github.com/buddyagent/buddy/internal/db/sqlite"
	"github.com/buddyagent/buddy/internal/todo"
	"github.com/buddyagent/buddy/internal/watcher"
	"github.com/buddyagent/buddy/internal/worker/sse"
)

// Service wires the store, the todo manager, the recorder, and the HTTP
// routes together.
type Service struct {
	version   string
	cfg       config.Config
	store     *sqlite.Store
	sessions  *sqlite.SessionStore
	todos     *todo.Manager
	recorder  *Recorder
	streams   *sse.Broadcaster
	router    chi.Router
	ready     atomic.Bool
	startTime time.Time
}

// New builds a service over an opened store.
func New(cfg config.Config, store *sqlite.Store, version string) *Service {
	sessions := sqlite.NewSessionStore(store)
	streams := sse.NewBroadcaster()

	svc := &Service{
		version:   version,
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		todos:     todo.NewManagerForScope(sessions, cfg.TodoScope),
		recorder:  NewRecorder(sessions, streams),
		streams:   streams,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	svc.setupRoutes()
	svc.ready.Store(true)
	return svc
}

// Router exposes the HTTP handler, mainly for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Recorder exposes the event recorder for in-process producers.
func (s *Service) Recorder() *Recorder {
	return s.recorder
}

// Run serves the API until ctx is cancelled, guarding the store file with
// the watcher for the duration.
func (s *Service) Run(ctx context.Context) error {
	if path := s.store.Path(); path != "" {
		w, err := watcher.New(path, func() {
			if err := s.store.EnsureSchema(); err != nil {
				log.Error().Err(err).Msg("failed to recreate store schema")
			}
		})
		if err != nil {
			return fmt.Errorf("create store watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start store watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.WorkerPort),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", s.cfg.WorkerPort).Str("version", s.version).Msg("worker listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Package web serves the current capital gains report over HTTP.
//
// The server replays the history on start and again whenever a watched file
// changes, then tells connected browsers to refresh through Server-Sent
// Events. Replays of the last good state keep being served while a reload
// fails.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/loader"
	"github.com/robinvdvleuten/taxlots/metrics"
	"github.com/robinvdvleuten/taxlots/session"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

// debounceDelay absorbs editors that write a file in several steps.
const debounceDelay = 100 * time.Millisecond

type Server struct {
	Port         int
	Host         string
	Version      string
	CommitSHA    string
	WatchEnabled bool

	// WatchFiles are watched in addition to the history files, e.g. the
	// snapshot file of the file store.
	WatchFiles []string

	Session *session.Session
	Loader  *loader.Loader
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	historyFiles []string

	mu      sync.RWMutex
	result  *session.Result
	lastErr error

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

// New creates a server for the given history files.
func New(port int, sess *session.Session, historyFiles ...string) *Server {
	return NewWithVersion(port, sess, "", "", historyFiles...)
}

func NewWithVersion(port int, sess *session.Session, version, commitSHA string, historyFiles ...string) *Server {
	return &Server{
		Port:         port,
		Host:         "127.0.0.1",
		Version:      version,
		CommitSHA:    commitSHA,
		Session:      sess,
		Loader:       loader.New(),
		Metrics:      metrics.New(),
		Logger:       slog.New(slog.DiscardHandler),
		historyFiles: historyFiles,
		sseClients:   make(map[chan string]struct{}),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Start loads the report and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	timer, tctx := telemetry.StartTimer(ctx, fmt.Sprintf("web.start %s", s.Addr()))

	if len(s.historyFiles) == 0 {
		timer.End()
		return fmt.Errorf("history file is required")
	}

	loadTimer := timer.Child(fmt.Sprintf("web.load %s", filepath.Base(s.historyFiles[0])))
	err := s.reload(tctx)
	loadTimer.End()
	if err != nil {
		timer.End()
		return fmt.Errorf("failed to load report: %w", err)
	}
	timer.End()

	httpServer := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.WatchEnabled {
		watcher, err := s.newWatcher()
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		g.Go(func() error {
			s.runWatcher(gctx, watcher)
			return nil
		})
	}

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) setupRouter() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/report", s.handleGetReport)
	mux.HandleFunc("GET /api/lots", s.handleGetLots)
	mux.HandleFunc("GET /api/forms/f8949", s.handleGetF8949)
	mux.HandleFunc("GET /api/forms/f1040sd", s.handleGetScheduleD)
	mux.HandleFunc("GET /api/status", s.handleGetStatus)
	mux.HandleFunc("GET /api/events", s.handleSSE)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	return mux
}

// reload replays the history and swaps in the new result. On failure the
// previous result stays in place and the error is reported by /api/status.
func (s *Server) reload(ctx context.Context) error {
	observer := s.Metrics.NewReplay()
	res, err := s.replay(ctx, observer)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	if err != nil {
		s.Metrics.Reloads.WithLabelValues("error").Inc()
		return err
	}
	s.result = res
	observer.Commit()
	s.Metrics.Reloads.WithLabelValues("ok").Inc()
	return nil
}

func (s *Server) replay(ctx context.Context, observer gains.Observer) (*session.Result, error) {
	in, err := s.Loader.Load(ctx, s.historyFiles...)
	if err != nil {
		return nil, err
	}

	sess := *s.Session
	sess.Options = append([]gains.Option{
		gains.WithObserver(observer),
		gains.WithLogger(s.Logger),
	}, s.Session.Options...)

	return sess.Run(ctx, in)
}

func (s *Server) watchList() []string {
	files := append([]string{}, s.historyFiles...)
	return append(files, s.WatchFiles...)
}

func (s *Server) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, file := range s.watchList() {
		if err := watcher.Add(file); err != nil {
			s.Logger.Warn("failed to watch file", slog.String("file", file), slog.Any("error", err))
		}
	}
	return watcher, nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove and Rename are common in atomic saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx, watcher)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.Logger.Warn("file watcher error", slog.Any("error", err))
		}
	}
}

// handleFileChange reloads the report and re-adds watches, since atomic
// saves replace the watched inode.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher) {
	if err := s.reload(ctx); err != nil {
		s.Logger.Error("failed to reload report", slog.Any("error", err))
		s.broadcast("error")
		return
	}

	for _, file := range s.watchList() {
		if err := watcher.Add(file); err != nil {
			s.Logger.Warn("failed to watch file", slog.String("file", file), slog.Any("error", err))
		}
	}

	s.broadcast("reload")
}

// handleSSE handles Server-Sent Events connections for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientChan := make(chan string, 10)

	s.sseMu.Lock()
	s.sseClients[clientChan] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, clientChan)
		s.sseMu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-clientChan:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// broadcast sends an event to all connected SSE clients. Clients with a
// full buffer miss the event.
func (s *Server) broadcast(event string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()

	for clientChan := range s.sseClients {
		select {
		case clientChan <- event:
		default:
		}
	}
}

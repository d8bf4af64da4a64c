// Package server exposes the navigation controller over a JSON HTTP API and
// streams level changes to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/claimgraph/internal/engine/navigator"
	"go.trai.ch/zerr"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxRequestBytes   = 1 << 20
)

// Navigator is the navigation controller served by the API.
type Navigator interface {
	NavigatePath(ctx context.Context, path string) (domain.LevelView, error)
	Descend(ctx context.Context, nodeID domain.NodeID) (navigator.Descent, error)
	Back(ctx context.Context) (domain.LevelView, error)
	Current() domain.Location
	CanGoBack() bool
	View(level domain.Level) domain.LevelView
	Views() [domain.LevelCount]domain.LevelView
	Subscribe() (<-chan domain.LevelView, func())
}

// Server serves the API.
type Server struct {
	nav      Navigator
	logger   ports.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a Server for nav.
func New(nav Navigator, logger ports.Logger) *Server {
	s := &Server{
		nav:    nav,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/descend", s.handleDescend)
	s.mux.HandleFunc("POST /api/back", s.handleBack)
	s.mux.HandleFunc("GET /api/levels", s.handleLevels)
	s.mux.HandleFunc("GET /api/levels/{level}", s.handleLevel)
	s.mux.HandleFunc("GET /api/stream", s.handleStream)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening on " + ln.Addr().String())

	select {
	case err := <-errCh:
		return zerr.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zerr.Wrap(err, "server shutdown failed")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, "server stopped")
	}
	return nil
}

// State is the navigation state returned by the mutating endpoints.
type State struct {
	Location  domain.Location                     `json:"location"`
	Path      string                              `json:"path"`
	CanGoBack bool                                `json:"can_go_back"`
	Active    domain.LevelView                    `json:"active"`
	Levels    [domain.LevelCount]domain.LevelView `json:"levels"`
	SourceURL string                              `json:"source_url,omitempty"`
}

type navigateRequest struct {
	Path string `json:"path"`
}

type descendRequest struct {
	Node string `json:"node"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.nav.NavigatePath(r.Context(), req.Path)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, s.state(v, ""))
}

func (s *Server) handleDescend(w http.ResponseWriter, r *http.Request) {
	var req descendRequest
	if !s.decode(w, r, &req) {
		return
	}
	d, err := s.nav.Descend(r.Context(), domain.NodeID(req.Node))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, s.state(d.View, d.SourceURL))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	v, err := s.nav.Back(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, s.state(v, ""))
}

func (s *Server) handleLevels(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.nav.Views())
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	level, err := domain.ParseLevel(r.PathValue("level"))
	if err != nil {
		s.fail(w, err)
		return
	}
	v := s.nav.View(level)
	if v.Ready() {
		etag := v.Snapshot.ETag()
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	s.respond(w, http.StatusOK, v)
}

func (s *Server) state(active domain.LevelView, sourceURL string) State {
	loc := s.nav.Current()
	return State{
		Location:  loc,
		Path:      loc.Path(),
		CanGoBack: s.nav.CanGoBack(),
		Active:    active,
		Levels:    s.nav.Views(),
		SourceURL: sourceURL,
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(err)
	}
	s.respond(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response: " + err.Error())
	}
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidLocation),
		errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrUnknownLevel):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLevelNotReady),
		errors.Is(err, domain.ErrNoChildLevel),
		errors.Is(err, domain.ErrNoParentLevel):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCacheClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

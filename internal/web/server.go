// Package web provides the HTTP read surface for the dogwatch daemon:
// status, frame listings, the frames themselves, sighting history, live
// status over websocket, and Prometheus metrics. Every endpoint reads
// state the detection loop already published; nothing here can block or
// steer detection.
package web

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sweeney/dogwatch/internal/frames"
	"github.com/sweeney/dogwatch/internal/history"
	"github.com/sweeney/dogwatch/internal/status"
)

// Server serves the daemon's read API over HTTP.
type Server struct {
	httpServer *http.Server
	pub        *status.Publisher
	store      *frames.Store
	ledger     *history.Ledger
	started    time.Time
}

// New creates a Server reading from the given publisher and store. ledger,
// hub, and metricsHandler may be nil, which disables their routes'
// content (sightings answer empty, /ws and /metrics answer 404).
func New(addr string, pub *status.Publisher, store *frames.Store, ledger *history.Ledger, hub *Hub, metricsHandler http.Handler) *Server {
	s := &Server{
		pub:     pub,
		store:   store,
		ledger:  ledger,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/frames", s.handleFrames)
	mux.HandleFunc("/frames/", s.handleFrame)
	mux.HandleFunc("/api/sightings", s.handleSightings)
	mux.HandleFunc("/healthz", s.handleHealth)
	if hub != nil {
		mux.Handle("/ws", hub)
	}
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.pub.Current())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.pub.Current()))
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatFrames(s.store.List(limit)))
}

// handleFrame serves one stored frame. Only names the store itself could
// have written are looked up, so the path can never escape the frame
// directory.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/frames/"):]
	if _, err := frames.ParseName(name); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.store.Dir(), name))
}

func (s *Server) handleSightings(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if s.ledger == nil {
		w.Write(formatSightings(nil))
		return
	}

	sightings, err := s.ledger.Recent(limit)
	if err != nil {
		http.Error(w, "query sightings failed", http.StatusInternalServerError)
		return
	}
	w.Write(formatSightings(sightings))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHealth(time.Since(s.started)))
}

// limitParam parses the optional ?limit query parameter. Absent means
// zero, which handlers treat as "use the default".
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

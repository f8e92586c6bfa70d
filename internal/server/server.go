// Package server exposes the analyzer over HTTP and streams watch results to
// websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/cache"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/kits"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/overlay"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

type Options struct {
	Analyzer     *engine.Analyzer
	Cache        cache.Backend
	CacheTTL     time.Duration
	MaxBodyBytes int64
	// Top is the default number of fixes for quick checks.
	Top    int
	Logger *slog.Logger
}

type Server struct {
	analyzer *engine.Analyzer
	cache    cache.Backend
	ttl      time.Duration
	maxBody  int64
	top      int
	logger   *slog.Logger
	group    singleflight.Group
	hub      *Hub
	mux      *http.ServeMux
}

func New(opts Options) *Server {
	s := &Server{
		analyzer: opts.Analyzer,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		maxBody:  opts.MaxBodyBytes,
		top:      opts.Top,
		logger:   opts.Logger,
	}
	if s.analyzer == nil {
		s.analyzer = engine.NewAnalyzer(nil)
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.maxBody <= 0 {
		s.maxBody = 4 << 20
	}
	if s.top <= 0 {
		s.top = 5
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.hub = newHub(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /v1/quick-check", s.handleQuickCheck)
	mux.HandleFunc("POST /v1/panel", s.handlePanel)
	mux.HandleFunc("GET /v1/signals", s.handleSignals)
	mux.HandleFunc("GET /v1/kits/{name}/validate", s.handleKit)
	mux.HandleFunc("GET /v1/live", s.hub.serveWS)
	s.mux = mux
	return s
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Publish sends an event to every live client.
func (s *Server) Publish(ev Event) { s.hub.Publish(ev) }

func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// document is the JSON request form. Exactly one of HTML or Snapshot is used.
type document struct {
	HTML     string          `json:"html"`
	Source   string          `json:"source"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", s.maxBody)}
		}
		return nil, &requestError{http.StatusBadRequest, "read body: " + err.Error()}
	}
	return data, nil
}

// parseDocument turns a request into a view. Raw bodies are markup named by
// the source query parameter; JSON bodies carry html or a snapshot.
func parseDocument(r *http.Request, body []byte) (view.DocumentView, string, error) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "request.html"
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		return view.ParseString(source, view.Decode(body, r.Header.Get("Content-Type"))), "markup", nil
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, "", &requestError{http.StatusBadRequest, "decode request: " + err.Error()}
	}
	if len(doc.Snapshot) > 0 && string(doc.Snapshot) != "null" {
		snap, err := view.ParseSnapshot(doc.Snapshot)
		if err != nil {
			return nil, "", &requestError{http.StatusBadRequest, err.Error()}
		}
		return view.NewDOM(snap), "snapshot", nil
	}
	if doc.Source != "" {
		source = doc.Source
	}
	return view.ParseString(source, doc.HTML), "markup", nil
}

// cached runs build once per key across concurrent requests and stores the
// encoded result. The bool reports a cache hit.
func (s *Server) cached(ctx context.Context, key string, build func() (any, error)) ([]byte, bool, error) {
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache get failed", "key", key, "error", err)
	} else if ok {
		return data, true, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		res, err := build()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(context.WithoutCancel(ctx), key, data, s.ttl); err != nil {
			s.logger.Warn("cache set failed", "key", key, "error", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		s.logger.Debug("singleflight: shared analysis", "key", key)
	}
	return v.([]byte), false, nil
}

func (s *Server) analyzeRequest(w http.ResponseWriter, r *http.Request, kind string, run func(view.DocumentView) any) {
	body, err := s.readBody(w, r)
	if err != nil {
		writeErr(w, err)
		return
	}
	q := r.URL.Query()
	key := cache.Key(kind, []byte(s.analyzer.Catalog.Version()), []byte(r.Header.Get("Content-Type")),
		[]byte(q.Get("source")), []byte(q.Get("severity")), []byte(q.Get("top")), body)

	data, hit, err := s.cached(r.Context(), key, func() (any, error) {
		v, _, err := parseDocument(r, body)
		if err != nil {
			return nil, err
		}
		return run(v), nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) severity(r *http.Request) (signals.Severity, error) {
	raw := r.URL.Query().Get("severity")
	if raw == "" {
		return "", nil
	}
	sev, err := signals.ParseSeverity(raw)
	if err != nil {
		return "", &requestError{http.StatusBadRequest, err.Error()}
	}
	return sev, nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sev, err := s.severity(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.analyzeRequest(w, r, "analyze", func(v view.DocumentView) any {
		return s.analyzer.Filter(s.analyzer.Analyze(v), sev)
	})
}

func (s *Server) topParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top")
	if raw == "" {
		return s.top, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &requestError{http.StatusBadRequest, fmt.Sprintf("invalid top %q", raw)}
	}
	return n, nil
}

func (s *Server) handleQuickCheck(w http.ResponseWriter, r *http.Request) {
	top, err := s.topParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.analyzeRequest(w, r, "quick", func(v view.DocumentView) any {
		return s.analyzer.QuickCheck(v, top)
	})
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	top, err := s.topParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		writeErr(w, err)
		return
	}
	v, _, err := parseDocument(r, body)
	if err != nil {
		writeErr(w, err)
		return
	}
	panel, err := overlay.RenderPanel(s.analyzer.QuickCheck(v, top), s.analyzer.Catalog.Version())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, panel)
}

type signalsResponse struct {
	Catalog string           `json:"catalog"`
	Count   int              `json:"count"`
	Signals []signals.Signal `json:"signals"`
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	list := s.analyzer.Catalog.List()
	if raw := r.URL.Query().Get("category"); raw != "" {
		cat, err := signals.ParseCategory(raw)
		if err != nil {
			writeErr(w, &requestError{http.StatusBadRequest, err.Error()})
			return
		}
		list = s.analyzer.Catalog.ByCategory(cat)
	}
	sev, err := s.severity(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if sev != "" {
		var kept []signals.Signal
		for _, sig := range list {
			if sig.Severity.AtLeast(sev) {
				kept = append(kept, sig)
			}
		}
		list = kept
	}
	if list == nil {
		list = []signals.Signal{}
	}
	writeJSON(w, http.StatusOK, signalsResponse{Catalog: s.analyzer.Catalog.Version(), Count: len(list), Signals: list})
}

func (s *Server) handleKit(w http.ResponseWriter, r *http.Request) {
	k, err := kits.Lookup(r.PathValue("name"))
	if err != nil {
		var unknown *kits.UnknownKitError
		if errors.As(err, &unknown) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error(), "available": unknown.Available})
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kits.Validate(k, s.analyzer))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"catalog": s.analyzer.Catalog.Version(),
		"signals": s.analyzer.Catalog.Len(),
		"clients": s.hub.Clients(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var re *requestError
	if errors.As(err, &re) {
		status = re.status
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/v1/live") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case sw.status >= 500:
			s.logger.Error("request failed", attrs...)
		case sw.status >= 400:
			s.logger.Warn("request error", attrs...)
		default:
			s.logger.Debug("request completed", attrs...)
		}
	})
}

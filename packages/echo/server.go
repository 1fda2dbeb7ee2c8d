// Package echo provides an HTTP fixture server for exercising xhr clients:
// JSON payloads, header and body echoes, arbitrary statuses and latency.
package echo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the port Start listens on unless WithPort is given.
const DefaultPort = 9999

// Server serves the fixture routes.
type Server struct {
	router *Router
	port   int
	delay  time.Duration
	logger logrus.FieldLogger
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithLogger logs every request at info.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer returns a server with every fixture route registered.
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   DefaultPort,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Handle(http.MethodGet, "/json/{{key}}/{{value}}", handleJSON)
	s.router.Handle("", "/headers", handleHeaders)
	s.router.Handle("", "/echo/url", handleURL)
	s.router.Handle("", "/echo", handleEcho)
	s.router.Handle("", "/status/{{code}}", handleStatus)
	s.router.Handle("", "/latency/{{ms}}", handleLatency)
	return s
}

// Routes returns the registered routes.
func (s *Server) Routes() []*Route {
	return s.router.Routes()
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Start serves on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if s.logger != nil {
		s.logger.WithField("addr", ln.Addr().String()).Info("echo server listening")
	}
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route for " + r.URL.Path})
		s.log(r, http.StatusNotFound, start)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	route.Handler(rec, r, params)
	s.log(r, rec.status, start)
}

func (s *Server) log(r *http.Request, status int, start time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   status,
		"duration": time.Since(start),
	}).Info("request")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[strings.ToLower(k)] = strings.Join(h[k], ", ")
	}
	return out
}

// handleJSON answers {"key": "value"}.
func handleJSON(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{params["key"]: params["value"]})
}

// handleHeaders answers with the request headers keyed by lower-cased name.
func handleHeaders(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, lowerHeaders(r.Header))
}

func handleURL(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url":   r.URL.RequestURI(),
		"query": r.URL.RawQuery,
	})
}

func handleEcho(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"url":     r.URL.RequestURI(),
		"headers": lowerHeaders(r.Header),
		"body":    string(body),
	})
}

func handleStatus(w http.ResponseWriter, _ *http.Request, params map[string]string) {
	code, err := strconv.Atoi(params["code"])
	if err != nil || code < 200 || code > 599 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status " + params["code"]})
		return
	}
	if code == http.StatusNoContent || code == http.StatusNotModified {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, code, map[string]int{"status": code})
}

func handleLatency(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ms, err := strconv.Atoi(params["ms"])
	if err != nil || ms < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid latency " + params["ms"]})
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"latency": ms})
}

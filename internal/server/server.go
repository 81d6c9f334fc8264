// Package server exposes the chat backend over HTTP: session CRUD, the
// streaming turn endpoint, and static image serving for tool output.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/tandemlabs/tandem/internal/agent"
	"github.com/tandemlabs/tandem/internal/config"
	"github.com/tandemlabs/tandem/internal/session"
)

// ErrServerClosed is returned when the server is closed.
var ErrServerClosed = http.ErrServerClosed

// ParseHostURL parses a host URL into a [url.URL]. A bare "host:port" is
// treated as a tcp address.
func ParseHostURL(host string) (*url.URL, error) {
	proto, addr, ok := strings.Cut(host, "://")
	if !ok {
		proto, addr = "tcp", host
	}

	var basePath string
	if proto == "tcp" {
		parsed, err := url.Parse("tcp://" + addr)
		if err != nil {
			return nil, fmt.Errorf("invalid tcp address: %v", err)
		}
		addr = parsed.Host
		basePath = parsed.Path
	}
	return &url.URL{
		Scheme: proto,
		Host:   addr,
		Path:   basePath,
	}, nil
}

// Server serves the chat API on a TCP address, a Unix socket, or a Windows
// named pipe.
type Server struct {
	Addr    string
	network string

	h  *http.Server
	ln net.Listener

	cfg      *config.Config
	sessions *session.Store
	agent    *agent.Agent
	logger   *slog.Logger
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// New creates a [Server] for the configured address.
func New(cfg *config.Config, sessions *session.Store, ag *agent.Agent) (*Server, error) {
	hostURL, err := ParseHostURL(cfg.Addr)
	if err != nil {
		return nil, err
	}

	s := new(Server)
	s.Addr = hostURL.Host
	s.network = hostURL.Scheme
	s.cfg = cfg
	s.sessions = sessions
	s.agent = ag

	var p http.Protocols
	p.SetHTTP1(true)
	p.SetUnencryptedHTTP2(true)
	c := &controllerV1{Server: s}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", c.handleGetHealth)
	mux.HandleFunc("GET /v1/version", c.handleGetVersion)
	mux.HandleFunc("GET /api/chat/sessions", c.handleGetSessions)
	mux.HandleFunc("POST /api/chat/sessions", c.handlePostSessions)
	mux.HandleFunc("GET /api/chat/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("DELETE /api/chat/sessions/{id}", c.handleDeleteSession)
	mux.HandleFunc("GET /api/chat/sessions/{id}/messages", c.handleGetSessionMessages)
	mux.HandleFunc("POST /api/chat/sessions/{id}/messages", c.handlePostSessionMessages)
	mux.HandleFunc("GET /api/images/{filename}", c.handleGetImage)
	s.h = &http.Server{
		Protocols: &p,
		Handler:   s.loggingHandler(mux),
	}
	if s.network == "tcp" {
		s.h.Addr = s.Addr
	}
	return s, nil
}

// Serve accepts incoming connections on the listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.h.Serve(ln)
}

// ListenAndServe starts the server and begins accepting connections.
func (s *Server) ListenAndServe() error {
	if s.ln != nil {
		return fmt.Errorf("server already started")
	}
	ln, err := listen(s.network, s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) closeListener() {
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
}

// Close force close all listeners and connections.
func (s *Server) Close() error {
	defer func() { s.closeListener() }()
	return s.h.Close()
}

// Shutdown gracefully shuts down the server without interrupting active
// connections. It stops accepting new connections and waits for existing
// connections to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() { s.closeListener() }()
	return s.h.Shutdown(ctx)
}

func (s *Server) logDebug(r *http.Request, msg string, args ...any) {
	if s.logger != nil {
		s.logger.With(
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remote_addr", r.RemoteAddr),
		).Debug(msg, args...)
	}
}

func (s *Server) logError(r *http.Request, msg string, args ...any) {
	if s.logger != nil {
		s.logger.With(
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remote_addr", r.RemoteAddr),
		).Error(msg, args...)
	}
}

// Package server implements the inference service the chat client talks to.
// It accepts a prompt (JSON or multipart with an optional image), forwards it
// to a model provider and answers with {"response": "..."}.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/linanwx/curo/logger"
	"github.com/linanwx/curo/provider"
)

const (
	// ReadTimeout bounds reading a request, upload included.
	ReadTimeout = 60 * time.Second

	// WriteTimeout leaves room for slow model replies.
	WriteTimeout = 5 * time.Minute

	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 30 * time.Second

	// NoResponseFallback is returned when the model produced no text.
	NoResponseFallback = "No response from AI."

	defaultMaxUploadBytes = 20 << 20
)

// Config configures a Server.
type Config struct {
	Addr            string
	SystemPrompt    string // applied to text-only prompts
	MaxPromptTokens int    // 0 disables the check
	MaxUploadBytes  int64  // per uploaded file; the body may exceed it by the multipart overhead

	// Reported by /healthz only.
	ProviderName string
	TextModel    string
	VisionModel  string
}

// Server answers prompts using a text provider and a vision provider.
type Server struct {
	cfg     Config
	text    provider.Provider
	vision  provider.Provider
	tokens  TokenCounter
	server  *http.Server
	started time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithTokenCounter replaces the default tiktoken counter.
func WithTokenCounter(c TokenCounter) Option {
	return func(s *Server) { s.tokens = c }
}

// New creates a server. vision may be nil, in which case text serves both.
func New(cfg Config, text, vision provider.Provider, opts ...Option) (*Server, error) {
	if text == nil {
		return nil, errors.New("server: text provider is required")
	}
	if vision == nil {
		vision = text
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{cfg: cfg, text: text, vision: vision, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil && cfg.MaxPromptTokens > 0 {
		counter, err := NewTiktokenCounter()
		if err != nil {
			logger.Warn("token counter unavailable, prompt limit disabled", "err", err)
		} else {
			s.tokens = counter
		}
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", s.handlePrompt)
	mux.HandleFunc("POST /uploadfile", s.handleUpload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return requestID(cors(accessLog(mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("inference server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("inference server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("inference server stopped")
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

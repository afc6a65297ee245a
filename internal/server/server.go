package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"

	"github.com/ytbs/bettersearch/internal/certgen"
	"github.com/ytbs/bettersearch/internal/handlers"
	"github.com/ytbs/bettersearch/internal/tracker"
)

const (
	indexFile              = "index.html"
	defaultShutdownTimeout = 5 * time.Second
	probeTimeout           = 15 * time.Second
	probeSample            = 3
)

// Config is the configuration for the server
type Config struct {
	Addr            string
	StaticDir       string
	TLSEnabled      bool
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
}

// QueueLister is the part of the tracker client the startup probe uses.
type QueueLister interface {
	ListQueues(ctx context.Context) ([]tracker.Queue, error)
}

// Option customizes a Server.
type Option func(*Server)

// WithTrackerProbe makes Start list the tracker queues once before
// serving, as a connectivity check.
func WithTrackerProbe(q QueueLister) Option {
	return func(s *Server) { s.probe = q }
}

// Server serves the API route groups and the frontend bundle
type Server struct {
	cfg   Config
	app   *fiber.App
	probe QueueLister

	mu   sync.Mutex
	addr net.Addr
}

// New creates the fiber application. It does not touch the network.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	app := fiber.New(fiber.Config{
		AppName:               "Tracker Better Search",
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		UnescapePath:          true,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		cfg: cfg,
		app: app,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	handlers.Register(s.app)

	if err := s.mountStatic(); err != nil {
		return nil, err
	}
	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// mountStatic serves the frontend bundle at the root. GET and HEAD
// requests that match neither a route nor a file get index.html, so the
// frontend can do its own routing.
func (s *Server) mountStatic() error {
	dir := s.cfg.StaticDir
	if dir == "" {
		slog.Warn("No static directory configured, frontend disabled")
		return nil
	}

	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Static directory not found, frontend disabled", "dir", dir)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "stat static dir %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("static dir %s is not a directory", dir)
	}

	s.app.Static("/", dir, fiber.Static{Index: indexFile})

	index := filepath.Join(dir, indexFile)
	s.app.Use(func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return c.Next()
		}
		return c.SendFile(index)
	})

	slog.Info("Serving frontend", "dir", dir)
	return nil
}

// Start runs the startup hooks, then serves until ctx is cancelled or the
// listener fails. With TLS enabled, missing or unreadable key material
// stops the server before it listens.
func (s *Server) Start(ctx context.Context) error {
	s.runStartupHooks(ctx)

	ln, err := s.listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	slog.Info("Starting server", "addr", ln.Addr().String(), "tls", s.cfg.TLSEnabled)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listener(ln); err != nil {
			errChan <- errors.Wrap(err, "serve")
		}
	}()

	// Wait for context cancellation or error
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down server")
		return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout)
	}
}

// Addr returns the address the server listens on, or nil before Start has
// opened the listener.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) listen() (net.Listener, error) {
	var tlsConfig *tls.Config
	if s.cfg.TLSEnabled {
		pair, err := certgen.Load(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "tls enabled but key material is unusable")
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{pair},
			MinVersion:   tls.VersionTLS12,
		}
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	return ln, nil
}

// runStartupHooks performs the optional tracker probe. A failing probe is
// logged and does not prevent serving.
func (s *Server) runStartupHooks(ctx context.Context) {
	if s.probe == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	queues, err := s.probe.ListQueues(ctx)
	if err != nil {
		slog.Warn("Tracker probe failed", "error", err)
		return
	}

	sample := make([]string, 0, probeSample)
	for _, q := range queues {
		if len(sample) == probeSample {
			break
		}
		sample = append(sample, q.Key)
	}
	slog.Info("Tracker probe succeeded", "queues", len(queues), "sample", sample)
}

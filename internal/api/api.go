// Package api provides the HTTP server and the main wiring for LineSchedule.
//
// It exposes the LINE webhook callback and a health endpoint, and builds the
// store, messaging, report and flow modules from options in Run.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BTreeMap/LineSchedule/internal/flow"
	"github.com/BTreeMap/LineSchedule/internal/genai"
	"github.com/BTreeMap/LineSchedule/internal/intent"
	"github.com/BTreeMap/LineSchedule/internal/lockfile"
	"github.com/BTreeMap/LineSchedule/internal/messaging"
	"github.com/BTreeMap/LineSchedule/internal/report"
	"github.com/BTreeMap/LineSchedule/internal/snapshot"
	"github.com/BTreeMap/LineSchedule/internal/store"
	"github.com/BTreeMap/LineSchedule/internal/timewindow"
)

const (
	// DefaultServerAddress is the listen address when none is configured.
	DefaultServerAddress = ":8080"
	// DefaultShutdownTimeout bounds how long in-flight requests may finish after a stop signal.
	DefaultShutdownTimeout = 10 * time.Second
	// MaxCallbackBodyBytes caps the webhook request body.
	MaxCallbackBodyBytes = 1 << 20
	// callbackWriteSlack is the share of the write timeout left for storage
	// and the reply once a report has used its full deadline.
	callbackWriteSlack = 30 * time.Second
)

var (
	// ErrChannelSecretNotSet is returned by Run without a channel secret.
	ErrChannelSecretNotSet = errors.New("LINE channel secret not set")
	// ErrChannelTokenNotSet is returned by Run without a channel access token.
	ErrChannelTokenNotSet = errors.New("LINE channel access token not set")
)

// EventHandler receives the webhook events the server understands.
type EventHandler interface {
	HandleText(ctx context.Context, ev flow.TextEvent)
	HandlePostback(ctx context.Context, ev flow.PostbackEvent)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	handler       EventHandler
	channelSecret string
	addr          string
	writeTimeout  time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithReportDeadline sizes the write timeout so a callback whose report runs
// for the full deadline can still be acknowledged.
func WithReportDeadline(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d + callbackWriteSlack
		}
	}
}

// NewServer creates a Server dispatching verified webhook events to handler.
func NewServer(handler EventHandler, channelSecret, addr string, opts ...ServerOption) *Server {
	if addr == "" {
		addr = DefaultServerAddress
	}
	s := &Server{
		handler:       handler,
		channelSecret: channelSecret,
		addr:          addr,
		writeTimeout:  report.DefaultTimeout + callbackWriteSlack,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteTimeout reports how long a callback may take before its response is cut off.
func (s *Server) WriteTimeout() time.Duration {
	return s.writeTimeout
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.callbackHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.ListenAndServe: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("Server.ListenAndServe: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}

// Opts holds configuration options for the API server and the modules Run wires.
type Opts struct {
	Addr               string
	ChannelSecret      string
	ChannelAccessToken string
	StateDir           string
	QueryTrigger       string
	ReportTrigger      string
	ReportTimeout      time.Duration
	SnapshotEnabled    bool
	OutboxEnabled      bool
	OutboxPollInterval time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithChannelSecret sets the secret webhook signatures are verified with.
func WithChannelSecret(secret string) Option {
	return func(o *Opts) {
		o.ChannelSecret = secret
	}
}

// WithChannelAccessToken sets the Messaging API token.
func WithChannelAccessToken(token string) Option {
	return func(o *Opts) {
		o.ChannelAccessToken = token
	}
}

// WithStateDir sets the directory holding the lock file and the snapshot.
func WithStateDir(dir string) Option {
	return func(o *Opts) {
		o.StateDir = dir
	}
}

// WithTriggers overrides the query and report trigger phrases.
func WithTriggers(query, report string) Option {
	return func(o *Opts) {
		o.QueryTrigger = query
		o.ReportTrigger = report
	}
}

// WithReportTimeout bounds report generation.
func WithReportTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.ReportTimeout = d
	}
}

// WithSnapshot enables rewriting the JSON snapshot after every saved entry.
func WithSnapshot(enabled bool) Option {
	return func(o *Opts) {
		o.SnapshotEnabled = enabled
	}
}

// WithOutbox enables queuing failed picker pushes for retry.
func WithOutbox(enabled bool) Option {
	return func(o *Opts) {
		o.OutboxEnabled = enabled
	}
}

// WithOutboxPollInterval sets how often queued pushes are retried.
func WithOutboxPollInterval(d time.Duration) Option {
	return func(o *Opts) {
		o.OutboxPollInterval = d
	}
}

// Run builds every module from the given options and serves until SIGINT or SIGTERM.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, msgOpts []messaging.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:               DefaultServerAddress,
		ReportTimeout:      report.DefaultTimeout,
		OutboxPollInterval: store.DefaultOutboxPollInterval,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	slog.Debug("api.Run: configuration",
		"addr", cfg.Addr,
		"channel_secret_set", cfg.ChannelSecret != "",
		"channel_token_set", cfg.ChannelAccessToken != "",
		"state_dir", cfg.StateDir,
		"snapshot", cfg.SnapshotEnabled,
		"outbox", cfg.OutboxEnabled,
		"report_timeout", cfg.ReportTimeout)

	if cfg.ChannelSecret == "" {
		return ErrChannelSecretNotSet
	}
	if cfg.ChannelAccessToken == "" {
		return ErrChannelTokenNotSet
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StateDir != "" {
		lock, err := lockfile.AcquireLock(cfg.StateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	backend, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("api.Run: failed to close store", "error", err)
		}
	}()

	deps := flow.Dependencies{
		Store:      backend,
		Resolver:   timewindow.New(timewindow.DefaultLocation),
		Classifier: intent.NewClassifier(cfg.QueryTrigger, cfg.ReportTrigger),
		Dedup:      backend,
	}

	if cfg.SnapshotEnabled {
		exporter, err := openSnapshot(backend, cfg.StateDir)
		if err != nil {
			return err
		}
		deps.Snapshot = exporter
	}

	deps.Formatter = report.NewFormatter(newReportGenerator(genaiOpts), report.WithTimeout(cfg.ReportTimeout))

	lineService, err := messaging.NewLineService(cfg.ChannelAccessToken, msgOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize LINE service: %w", err)
	}
	deps.Messenger = lineService

	if cfg.OutboxEnabled {
		deps.Outbox = backend
		sender := store.NewOutboxSender(backend, messaging.NewOutboxSendFunc(lineService), cfg.OutboxPollInterval)
		if err := sender.RecoverStaleMessages(ctx); err != nil {
			slog.Warn("api.Run: stale outbox recovery failed", "error", err)
		}
		go sender.Run(ctx)
	}

	server := NewServer(flow.NewController(deps), cfg.ChannelSecret, cfg.Addr, WithReportDeadline(cfg.ReportTimeout))
	return server.ListenAndServe(ctx)
}

// openSnapshot prepares the snapshot exporter. An in-memory store is seeded
// from the last snapshot so entries survive restarts.
func openSnapshot(backend store.Backend, stateDir string) (*snapshot.Exporter, error) {
	path := filepath.Join(stateDir, snapshot.DefaultFileName)
	if mem, ok := backend.(*store.InMemoryStore); ok {
		entries, err := snapshot.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		mem.Restore(entries)
		slog.Info("api.Run: in-memory store restored from snapshot", "path", path, "entries", len(entries))
	}
	return snapshot.NewExporter(backend, path), nil
}

// newReportGenerator returns an OpenAI-backed generator, or the null
// generator when no API key is configured.
func newReportGenerator(genaiOpts []genai.Option) report.Generator {
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		if errors.Is(err, genai.ErrAPIKeyNotSet) {
			slog.Info("api.Run: no OpenAI API key, reports fall back to plain listings")
		} else {
			slog.Warn("api.Run: GenAI client unavailable, reports fall back to plain listings", "error", err)
		}
		return report.NullGenerator{}
	}
	return report.NewGenAIGenerator(client)
}

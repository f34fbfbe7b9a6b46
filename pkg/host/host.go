package host

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
	"github.com/richard-senior/mcp-runtime/pkg/resources"
	"github.com/richard-senior/mcp-runtime/pkg/session"
	"github.com/richard-senior/mcp-runtime/pkg/tools"
	"github.com/richard-senior/mcp-runtime/pkg/transport"
)

// TransportKind selects which framing Run serves over.
type TransportKind int

const (
	TransportStdio TransportKind = iota
	TransportHTTP
)

// Host is the C10 façade a caller builds once, populates with tools and
// resources, and then runs. It owns the tool registry, resource registry,
// session manager, and protocol engine — the single host described in
// §5's "Shared resources" paragraph.
type Host struct {
	config Config

	Tools     *tools.Registry
	Resources *resources.Registry
	Sessions  *session.Manager
	Engine    *protocol.Engine

	audit *session.AuditLog

	lastError string
	cancel    context.CancelFunc
}

// New creates a host (the façade's "create" operation). Name and Version
// are required; every other non-boolean Config field defaults per §6 (see
// Config.WithDefaults).
func New(cfg Config) (*Host, error) {
	if cfg.Name == "" || cfg.Version == "" {
		return nil, fmt.Errorf("host config requires Name and Version")
	}
	cfg = cfg.WithDefaults()

	if cfg.Debug {
		logger.SetShowDateTime(true)
	}

	h := &Host{config: cfg}
	h.Tools = tools.NewRegistry(cfg.MaxTools)
	h.Resources = resources.NewRegistry(cfg.MaxTools)

	var audit *session.AuditLog
	if cfg.SessionAuditDB != "" {
		var err error
		audit, err = session.OpenAuditLog(cfg.SessionAuditDB)
		if err != nil {
			return nil, fmt.Errorf("opening session audit db: %w", err)
		}
		h.audit = audit
	}

	if cfg.EnableSessions {
		h.Sessions = session.NewManager(cfg.MaxConnections, cfg.SessionTimeout, cfg.CleanupInterval, audit)
	}

	h.Engine = protocol.NewEngine(
		protocol.ServerInfo{Name: cfg.Name, Version: cfg.Version},
		cfg.Instructions,
		h.Tools,
		h.Resources,
	)

	h.Tools.OnListChanged = func() { h.Engine.NotifyListChanged(protocol.MethodToolsListChanged) }
	h.Resources.OnListChanged = func() { h.Engine.NotifyListChanged(protocol.MethodResourcesListChanged) }

	return h, nil
}

// AddTool registers a tool ahead of Run; see tools.RegisterOptions.
func (h *Host) AddTool(opts tools.RegisterOptions) error {
	if err := h.Tools.Register(opts); err != nil {
		h.lastError = err.Error()
		return err
	}
	return nil
}

// Run starts the session sweeper (if enabled) and blocks serving the given
// transport kind until ctx is cancelled or SIGINT/SIGTERM is received.
func (h *Host) Run(ctx context.Context, kind TransportKind) error {
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	defer cancel()

	if h.Sessions != nil && h.config.AutoCleanup {
		h.Sessions.StartSweeper(runCtx)
	}

	var t transport.Transport
	switch kind {
	case TransportStdio:
		logger.SetMCPMode(true)
		t = transport.NewStdioTransport(os.Stdin, os.Stdout)
	case TransportHTTP:
		t = transport.NewHTTPTransport(h.config.Host, h.config.Port, h.config.Path, h.Sessions)
	default:
		return fmt.Errorf("unknown transport kind %d", kind)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- t.Start(runCtx, h.Engine) }()

	select {
	case err := <-errCh:
		if err != nil {
			h.lastError = err.Error()
		}
		return err
	case sig := <-sigCh:
		logger.Info("received signal %v, shutting down", sig)
		cancel()
		return t.Stop()
	case <-ctx.Done():
		return t.Stop()
	}
}

// Stop cancels a running Run call; safe to call even if Run never started.
func (h *Host) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

// Destroy releases resources Run does not own outright (the session
// manager's sweeper and audit log).
func (h *Host) Destroy() error {
	if h.Sessions != nil {
		h.Sessions.Stop()
	}
	if h.audit != nil {
		return h.audit.Close()
	}
	return nil
}

// LastErrorMessage returns the façade's single textual error slot, per §6's
// "a single textual last_error string is retrievable after any failing call".
func (h *Host) LastErrorMessage() string { return h.lastError }

package was

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/contents"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/pool"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/rules"
)

var ErrNoVirtualHosts = errors.New("no virtual hosts registered")

// Options configures a Listener.
type Options struct {
	MainLogTarget string
	Workers       int
	ReadTimeout   time.Duration // 0 disables the read deadline
	Signature     string

	// OnListening is called once the port is bound, before the first Accept.
	OnListening func(addr net.Addr)
	// OnStopped is called after the accept loop ended and in-flight
	// connections were drained.
	OnStopped func(addr net.Addr)
}

// Listener serves every virtual host sharing one port.
type Listener struct {
	opts     Options
	registry *Registry
	rules    *rules.Chain
	resolver *contents.Resolver
	mainLog  *slog.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	draining bool
}

func NewListener(opts Options, chain *rules.Chain, resolver *contents.Resolver) *Listener {
	return &Listener{
		opts:     opts,
		registry: NewRegistry(),
		rules:    chain,
		resolver: resolver,
		mainLog:  logger.Target(opts.MainLogTarget),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Register adds a virtual host. All hosts must be registered before Start.
func (l *Listener) Register(host *core.VirtualHost) error {
	if err := l.registry.Register(host); err != nil {
		l.mainLog.Error("Failed to register virtual host", "host", host.String(), "error", err)
		return err
	}
	l.mainLog.Info("Registered virtual host", "server_name", host.ServerName, "port", host.PortNumber, "document_root", host.DocumentRoot)
	return nil
}

// Port returns the port shared by the registered hosts.
func (l *Listener) Port() int {
	return l.registry.Port()
}

// Start binds the shared port and serves until ctx is cancelled.
// It returns without serving when no host is registered or the bind fails.
func (l *Listener) Start(ctx context.Context) error {
	if l.registry.Len() == 0 {
		l.mainLog.Error("Listener has no virtual hosts, not starting")
		return ErrNoVirtualHosts
	}

	addr := fmt.Sprintf(":%d", l.registry.Port())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		l.mainLog.Error("Failed to bind listener", "addr", addr, "error", err)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return l.Serve(ctx, ln)
}

// Serve runs the accept loop on an already bound socket. ln is closed when
// Serve returns.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	if l.registry.Len() == 0 {
		l.mainLog.Error("Listener has no virtual hosts, not serving")
		return ErrNoVirtualHosts
	}

	workers, err := pool.NewPool(l.opts.Workers, l.mainLog)
	if err != nil {
		l.mainLog.Error("Failed to create worker pool", "workers", l.opts.Workers, "error", err)
		return err
	}

	l.mu.Lock()
	l.draining = false
	l.mu.Unlock()

	l.mainLog.Info("Listener started", "addr", ln.Addr().String(), "workers", workers.Cap(), "virtual_hosts", l.registry.Len())
	if l.opts.OnListening != nil {
		l.opts.OnListening(ln.Addr())
	}

	server := &core.Server{
		Listener:          ln,
		ConnectionHandler: l,
		Workers:           workers,
		Log:               l.mainLog,
	}
	err = server.Serve(ctx)

	// Unblock workers still reading from idle clients, then wait for them
	l.drain()
	workers.Close()

	l.mainLog.Info("Listener stopped", "addr", ln.Addr().String(), "reason", err)
	if l.opts.OnStopped != nil {
		l.opts.OnStopped(ln.Addr())
	}
	return err
}

// track registers an in-flight connection. It reports false once the
// listener is draining, in which case the caller must drop conn.
func (l *Listener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.draining {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
}

// drain closes every in-flight connection and refuses new ones.
func (l *Listener) drain() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.draining = true
	for conn := range l.conns {
		conn.Close()
	}
}

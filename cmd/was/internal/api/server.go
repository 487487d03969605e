package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

// HealthServer answers liveness and readiness probes on a side port.
// The server is ready while at least one web listener is bound.
type HealthServer struct {
	server *http.Server

	mu        sync.RWMutex
	listeners map[string]struct{}
}

func NewHealthServer(addr string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		listeners: make(map[string]struct{}),
	}

	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)

	return hs
}

func (s *HealthServer) Start() {
	go func() {
		logger.Info("Health server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", "error", err)
		}
	}()
}

func (s *HealthServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ListenerUp records a bound web listener.
func (s *HealthServer) ListenerUp(addr net.Addr) {
	s.mu.Lock()
	s.listeners[addr.String()] = struct{}{}
	s.mu.Unlock()
}

// ListenerDown forgets a listener whose accept loop has ended.
func (s *HealthServer) ListenerDown(addr net.Addr) {
	s.mu.Lock()
	delete(s.listeners, addr.String())
	s.mu.Unlock()
}

// Listening returns the addresses of the bound listeners, sorted.
func (s *HealthServer) Listening() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := make([]string, 0, len(s.listeners))
	for a := range s.listeners {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	addrs := s.Listening()
	if len(addrs) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready: no listener bound"))
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ready: %s", strings.Join(addrs, ","))
}

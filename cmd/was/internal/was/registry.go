package was

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
)

var (
	ErrPortMismatch        = errors.New("virtual host port differs from the listener port")
	ErrDuplicateWildcard   = errors.New("only one wildcard virtual host is allowed per port")
	ErrDuplicateServerName = errors.New("server name already registered")
)

// Registry holds the virtual hosts sharing one port. It is filled before the
// listener starts and only read afterwards.
type Registry struct {
	port     int
	hosts    []*core.VirtualHost
	byName   map[string]*core.VirtualHost // "name" and "name:port"
	fallback *core.VirtualHost
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*core.VirtualHost)}
}

// Register adds host. The first host fixes the port every later host must use.
func (r *Registry) Register(host *core.VirtualHost) error {
	if len(r.hosts) > 0 && host.PortNumber != r.port {
		return fmt.Errorf("%w: %s uses %d, listener uses %d", ErrPortMismatch, host.ServerName, host.PortNumber, r.port)
	}

	if host.IsWildcard() {
		if r.fallback != nil {
			return ErrDuplicateWildcard
		}
		r.fallback = host
	} else {
		if _, ok := r.byName[host.ServerName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateServerName, host.ServerName)
		}
		r.byName[host.ServerName] = host
		r.byName[host.ServerName+":"+strconv.Itoa(host.PortNumber)] = host
	}

	if len(r.hosts) == 0 {
		r.port = host.PortNumber
	}
	r.hosts = append(r.hosts, host)
	return nil
}

// Port returns the shared port, or 0 before the first registration.
func (r *Registry) Port() int {
	return r.port
}

func (r *Registry) Len() int {
	return len(r.hosts)
}

// Hosts returns the registered hosts in registration order.
func (r *Registry) Hosts() []*core.VirtualHost {
	return append([]*core.VirtualHost(nil), r.hosts...)
}

// Resolve finds the host for a Host header value. The header is compared
// verbatim with "serverName" or, when it carries a port, "serverName:port".
// Unmatched headers fall back to the wildcard host if there is one.
func (r *Registry) Resolve(hostHeader string) (*core.VirtualHost, bool) {
	if h, ok := r.byName[hostHeader]; ok {
		return h, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

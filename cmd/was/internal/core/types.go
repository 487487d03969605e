package core

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// WildcardServerName marks the virtual host used when no other name matches.
const WildcardServerName = "*"

// VirtualHost is one configured site. Several virtual hosts share a
// listening port and are told apart by the request's Host header.
// It is built once at startup and never modified afterwards.
type VirtualHost struct {
	ServerName   string
	PortNumber   int
	DocumentRoot string
	LogTarget    string
	IndexPage    string
	ErrorPages   map[int]string // status code -> page relative to DocumentRoot
}

// IsWildcard reports whether this host is the fallback for unmatched names.
func (v *VirtualHost) IsWildcard() bool {
	return v.ServerName == WildcardServerName
}

// ErrorPage returns the configured page for status, if any.
func (v *VirtualHost) ErrorPage(status http1.Status) (string, bool) {
	page, ok := v.ErrorPages[status.Code()]
	return page, ok && page != ""
}

func (v *VirtualHost) String() string {
	return fmt.Sprintf("[ ServerName=%s, PortNumber=%d, DocumentRoot=%s, LogTarget=%s ]",
		v.ServerName, v.PortNumber, v.DocumentRoot, v.LogTarget)
}

// Sites is the full site document: the main log target, the worker count
// and every virtual host regardless of port.
type Sites struct {
	MainLogTarget string
	ThreadCount   int
	Hosts         []*VirtualHost
}

// Ports returns the distinct ports in ascending order.
func (s *Sites) Ports() []int {
	seen := make(map[int]bool)
	var ports []int
	for _, h := range s.Hosts {
		if !seen[h.PortNumber] {
			seen[h.PortNumber] = true
			ports = append(ports, h.PortNumber)
		}
	}
	sort.Ints(ports)
	return ports
}

// ForPort returns the hosts listening on port, in document order.
func (s *Sites) ForPort(port int) []*VirtualHost {
	var hosts []*VirtualHost
	for _, h := range s.Hosts {
		if h.PortNumber == port {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// SiteSource loads the site document.
// It abstracts away the storage mechanism (file, ConfigMap, etc.).
type SiteSource interface {
	Load(ctx context.Context) (*Sites, error)
}

// Handler produces dynamic content for a request. Implementations must be
// safe for concurrent use; every call gets its own Response.
type Handler interface {
	Service(req *http1.Request, res *http1.Response) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *http1.Request, res *http1.Response) error

func (f HandlerFunc) Service(req *http1.Request, res *http1.Response) error {
	return f(req, res)
}

// HandlerRegistry looks up handlers by the identifier derived from a URI.
type HandlerRegistry interface {
	Lookup(name string) (Handler, bool)
}

// ConnectionHandler takes full ownership of an accepted connection.
type ConnectionHandler interface {
	HandleConnection(conn net.Conn)
}

package contents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// Resolver decides what satisfies a response for a virtual host.
// The resolved status may differ from the proposed one: promised content
// that is missing turns 200 into 404.
type Resolver struct {
	handlers core.HandlerRegistry
}

func NewResolver(handlers core.HandlerRegistry) *Resolver {
	return &Resolver{handlers: handlers}
}

// Resolve maps (host, uri, status) to Contents.
//
// With status 200 a registered handler wins, otherwise uri is served from
// the document root, "/" meaning the index page. With any other status the
// host's error page for that status is served. Missing files yield KindNone
// with 404 if 200 was proposed, else the proposed status unchanged.
func (r *Resolver) Resolve(host *core.VirtualHost, uri string, status http1.Status) Contents {
	ok := status == http1.StatusOK

	if ok && r.handlers != nil {
		name := HandlerName(uri)
		if h, found := r.handlers.Lookup(name); found && name != "" {
			return Contents{Kind: KindHandler, Status: http1.StatusOK, Name: name, Handler: h}
		}
	}

	var target string
	var hasTarget bool
	if ok {
		target, hasTarget = uri, true
		if uri == "/" {
			target = "/" + host.IndexPage
		}
	} else {
		target, hasTarget = host.ErrorPage(status)
	}

	if !hasTarget {
		return none(status)
	}

	path := filepath.Join(host.DocumentRoot, target)
	if !within(path, host.DocumentRoot) || !isRegularFile(path) {
		return none(status)
	}

	return Contents{Kind: KindFile, Status: status, Path: path}
}

func none(proposed http1.Status) Contents {
	if proposed == http1.StatusOK {
		return Contents{Kind: KindNone, Status: http1.StatusNotFound}
	}
	return Contents{Kind: KindNone, Status: proposed}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// within reports whether path lies at or below root after cleaning.
func within(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package contents

import (
	"fmt"
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// Kind tells which variant of Contents was resolved.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindHandler
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindHandler:
		return "handler"
	default:
		return "none"
	}
}

// Contents is the outcome of content resolution: nothing, a static file or
// a handler, together with the status the response must carry.
type Contents struct {
	Kind    Kind
	Status  http1.Status
	Path    string       // set for KindFile
	Name    string       // set for KindHandler
	Handler core.Handler // set for KindHandler
}

func (c Contents) String() string {
	switch c.Kind {
	case KindFile:
		return fmt.Sprintf("file(%s, %s)", c.Path, c.Status)
	case KindHandler:
		return fmt.Sprintf("handler(%s, %s)", c.Name, c.Status)
	default:
		return fmt.Sprintf("none(%s)", c.Status)
	}
}

// HandlerName derives the handler identifier from a URI: its last path segment.
func HandlerName(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

// IsHandlerRequest reports whether uri names a registered handler.
// The extension rule and the resolver both decide handler dispatch through it.
func IsHandlerRequest(registry core.HandlerRegistry, uri string) bool {
	if registry == nil {
		return false
	}
	name := HandlerName(uri)
	if name == "" {
		return false
	}
	_, ok := registry.Lookup(name)
	return ok
}

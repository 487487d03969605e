package rules

import (
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// TraversalRule rejects URIs that resolve outside the document root.
// The path is normalized on a segment stack the way filepath.Join would
// normalize it; the filesystem is not touched.
type TraversalRule struct{}

func (TraversalRule) Name() string { return "TraversalRule" }

func (TraversalRule) Check(host *core.VirtualHost, req *http1.Request) Result {
	root := host.DocumentRoot
	stack := strings.Split(root, "/")

	for _, segment := range strings.Split(strings.TrimPrefix(req.URI(), "/"), "/") {
		switch segment {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return Result{false, "attempted to escape above the root directory"}
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, segment)
		}
	}

	if !withinRoot(strings.Join(stack, "/"), root) {
		return Result{false, "path outside the document root"}
	}
	return Result{true, "path inside the document root"}
}

// withinRoot reports whether path is root itself or below it.
func withinRoot(path, root string) bool {
	if path == root {
		return true
	}
	base := strings.TrimSuffix(root, "/")
	return strings.HasPrefix(path, base+"/")
}

package rules

import (
	"fmt"
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/contents"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// ExtensionRule rejects requests for files whose extension is denied.
// Handler requests are never files and always pass.
type ExtensionRule struct {
	handlers core.HandlerRegistry
	denied   map[string]bool
}

func NewExtensionRule(handlers core.HandlerRegistry, denied ...string) *ExtensionRule {
	r := &ExtensionRule{handlers: handlers, denied: make(map[string]bool, len(denied))}
	for _, ext := range denied {
		r.denied[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return r
}

func (r *ExtensionRule) Name() string { return "ExtensionRule" }

func (r *ExtensionRule) Check(_ *core.VirtualHost, req *http1.Request) Result {
	uri := req.URI()

	if contents.IsHandlerRequest(r.handlers, uri) {
		return Result{true, "handler request"}
	}

	last := uri[strings.LastIndex(uri, "/")+1:]
	dot := strings.LastIndex(last, ".")
	if dot == -1 {
		return Result{true, "no file extension"}
	}

	ext := last[dot+1:]
	if r.denied[strings.ToLower(ext)] {
		return Result{false, fmt.Sprintf("denied extension (%s)", ext)}
	}
	return Result{true, fmt.Sprintf("allowed extension (%s)", ext)}
}

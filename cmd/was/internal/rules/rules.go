package rules

import (
	"fmt"
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// Result is the verdict of one rule, or of a whole chain.
type Result struct {
	Valid   bool
	Message string
}

func (r Result) String() string {
	return r.Message
}

// Rule validates a request against the virtual host it was routed to.
// Rules are stateless and shared by every worker.
type Rule interface {
	Name() string
	Check(host *core.VirtualHost, req *http1.Request) Result
}

// Chain runs its rules in order and stops at the first failure.
type Chain struct {
	rules []Rule
}

func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: append([]Rule(nil), rules...)}
}

// Default returns the standard chain: extension filtering, then
// path-traversal checking.
func Default(deniedExtensions []string, handlers core.HandlerRegistry) *Chain {
	return NewChain(
		NewExtensionRule(handlers, deniedExtensions...),
		TraversalRule{},
	)
}

// Check returns a failing Result for the first rule that rejects the request,
// otherwise a passing one. The message lists every rule that ran.
func (c *Chain) Check(host *core.VirtualHost, req *http1.Request) Result {
	var b strings.Builder
	valid := true

	for _, rule := range c.rules {
		res := rule.Check(host, req)
		fmt.Fprintf(&b, "%s : %s\n", rule.Name(), res)
		if !res.Valid {
			valid = false
			break
		}
	}

	return Result{
		Valid:   valid,
		Message: fmt.Sprintf("## request rule check (%t)\n%s", valid, b.String()),
	}
}

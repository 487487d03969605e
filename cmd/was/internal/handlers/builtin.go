package handlers

import (
	"fmt"
	"html"
	"sort"
	"time"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

// TimeStampPage renders the current local time.
type TimeStampPage struct {
	Now func() time.Time
}

func (p *TimeStampPage) Service(_ *http1.Request, res *http1.Response) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	_, err := fmt.Fprintf(res,
		"<html><head><title>TimeStampPage</title></head><body><center><h1>%s</h1></center></body></html>",
		now().Format("2006-01-02 15:04:05"))
	return err
}

// ParamEcho lists the request's query and body parameters.
type ParamEcho struct{}

func (ParamEcho) Service(req *http1.Request, res *http1.Response) error {
	params := req.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res.WriteString("<html><head><title>ParamEcho</title></head><body><ul>")
	for _, k := range keys {
		fmt.Fprintf(res, "<li>%s=%s</li>", html.EscapeString(k), html.EscapeString(params[k]))
	}
	_, err := res.WriteString("</ul></body></html>")
	return err
}

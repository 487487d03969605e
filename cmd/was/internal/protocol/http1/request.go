package http1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
)

// MaxBodySize caps a Content-Length driven body read.
const MaxBodySize = 10 << 20

// ErrMalformedRequest is returned when the request line or scheme does not
// follow METHOD SP URI SP PROTOCOL/VERSION.
var ErrMalformedRequest = errors.New("malformed request")

// Request is a parsed, immutable HTTP request.
type Request struct {
	method   Method
	uri      string
	schema   string
	protocol string
	version  string
	headers  map[HeaderType]string
	params   map[string]string
	body     []byte
}

func (r *Request) Method() Method   { return r.method }
func (r *Request) URI() string      { return r.uri }
func (r *Request) Schema() string   { return r.schema }
func (r *Request) Protocol() string { return r.protocol }
func (r *Request) Version() string  { return r.version }
func (r *Request) Body() []byte     { return r.body }

// Header returns the value of h, or "" when the request did not carry it.
func (r *Request) Header(h HeaderType) string {
	return r.headers[h]
}

// HasHeader reports whether the request carried h.
func (r *Request) HasHeader(h HeaderType) bool {
	_, ok := r.headers[h]
	return ok
}

// Headers returns a copy of the recognized headers.
func (r *Request) Headers() map[HeaderType]string {
	out := make(map[HeaderType]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Param returns the query or body parameter name.
func (r *Request) Param(name string) string {
	return r.params[name]
}

// Params returns a copy of every query and body parameter.
func (r *Request) Params() map[string]string {
	out := make(map[string]string, len(r.params))
	for k, v := range r.params {
		out[k] = v
	}
	return out
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s %s", r.method, r.uri, r.schema)
}

// ReadRequest reads and parses exactly one request from rd.
//
// The body is read up to Content-Length when that header is present and
// valid. Without it, only the bytes already buffered after the header
// block are taken as the body.
func ReadRequest(rd io.Reader) (*Request, error) {
	br, ok := rd.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(rd)
	}

	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read request line: %w", err)
	}

	req := &Request{
		headers: make(map[HeaderType]string),
		params:  make(map[string]string),
	}
	if err := req.parseRequestLine(line); err != nil {
		return nil, err
	}

	if err := req.readHeaders(br); err != nil {
		return nil, err
	}

	if err := req.readBody(br); err != nil {
		return nil, err
	}

	if len(req.body) > 0 && req.hasFormBody() {
		parseParams(strings.TrimRight(string(req.body), "\r\n"), req.params)
	}

	return req, nil
}

func (r *Request) parseRequestLine(line string) error {
	fields := strings.Split(line, " ")
	if len(fields) != 3 {
		return fmt.Errorf("%w: request line has %d fields: %q", ErrMalformedRequest, len(fields), line)
	}

	method, ok := ParseMethod(fields[0])
	if !ok {
		return fmt.Errorf("%w: unsupported method %q", ErrMalformedRequest, fields[0])
	}
	if !strings.Contains(strings.ToLower(fields[2]), "http") {
		return fmt.Errorf("%w: not an http scheme %q", ErrMalformedRequest, fields[2])
	}

	schema := strings.Split(fields[2], "/")
	if len(schema) != 2 {
		return fmt.Errorf("%w: invalid scheme %q", ErrMalformedRequest, fields[2])
	}

	r.method = method
	r.schema = fields[2]
	r.protocol = schema[0]
	r.version = schema[1]

	path, query, hasQuery := strings.Cut(fields[1], "?")
	r.uri = path
	if hasQuery {
		parseParams(query, r.params)
	}
	return nil
}

func (r *Request) readHeaders(br *bufio.Reader) error {
	for {
		line, err := readLine(br)
		if err == io.EOF {
			// peer half-closed without the blank line
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read headers: %w", err)
		}
		if len(line) == 0 {
			return nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			logger.Debug("Dropping header line without colon", "line", line)
			continue
		}
		name = strings.TrimSpace(name)
		h, ok := ParseHeaderType(name)
		if !ok {
			logger.Debug("Dropping unrecognized header", "header", name)
			continue
		}
		r.headers[h] = strings.TrimSpace(value)
	}
}

func (r *Request) readBody(br *bufio.Reader) error {
	if cls, ok := r.headers[HeaderContentLength]; ok {
		cl, err := strconv.Atoi(cls)
		if err == nil && cl >= 0 {
			if cl > MaxBodySize {
				return fmt.Errorf("%w: body of %d bytes exceeds limit", ErrMalformedRequest, cl)
			}
			r.body = make([]byte, cl)
			if _, err := io.ReadFull(br, r.body); err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			return nil
		}
		logger.Debug("Ignoring invalid Content-Length", "value", cls)
	}

	if n := br.Buffered(); n > 0 {
		r.body = make([]byte, n)
		if _, err := io.ReadFull(br, r.body); err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
	}
	return nil
}

// hasFormBody reports whether the body should be merged into the parameters:
// no Content-Type at all, a text or wildcard primary type, or a form post.
func (r *Request) hasFormBody() bool {
	ct, ok := r.headers[HeaderContentType]
	if !ok {
		return true
	}
	mediaType, _, _ := strings.Cut(ct, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "application/x-www-form-urlencoded" {
		return true
	}
	primary, _, _ := strings.Cut(mediaType, "/")
	return primary == "text" || primary == "*"
}

// parseParams splits key=value pairs joined by '&' into dst.
// Pairs without '=' are ignored and later keys overwrite earlier ones.
func parseParams(s string, dst map[string]string) {
	for _, pair := range strings.Split(s, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		dst[k] = v
	}
}

// similar to readLineSlice() in net/textproto/reader.go
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		l, more, err := br.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

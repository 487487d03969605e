package http1

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
)

// DefaultSchema is the protocol written on the status line unless overridden.
const DefaultSchema = "HTTP/1.1"

// Response is a response being assembled in memory. Handlers write the body
// through Write; the whole message is serialized once by Bytes.
type Response struct {
	schema  string
	status  Status
	headers map[HeaderType]string
	body    bytes.Buffer
}

// NewResponse returns a 200 response carrying the default Server and
// Content-Type headers.
func NewResponse(signature string) *Response {
	res := &Response{
		schema:  DefaultSchema,
		status:  StatusOK,
		headers: make(map[HeaderType]string),
	}
	res.SetHeader(HeaderServer, signature)
	res.SetHeader(HeaderContentType, "text/html")
	return res
}

func (r *Response) SetSchema(schema string)          { r.schema = schema }
func (r *Response) SetStatus(status Status)          { r.status = status }
func (r *Response) Status() Status                   { return r.status }
func (r *Response) SetHeader(h HeaderType, v string) { r.headers[h] = v }
func (r *Response) Header(h HeaderType) string       { return r.headers[h] }

// Write appends p to the body.
func (r *Response) Write(p []byte) (int, error) {
	return r.body.Write(p)
}

// WriteString appends s to the body.
func (r *Response) WriteString(s string) (int, error) {
	return r.body.WriteString(s)
}

// BodyLen returns the number of body bytes written so far.
func (r *Response) BodyLen() int {
	return r.body.Len()
}

// WriteBasicPage writes the self-describing status page used when no
// configured content is available.
func (r *Response) WriteBasicPage(signature string) {
	fmt.Fprintf(&r.body,
		"<html><head><title>%s</title></head><body><center><h1>%s</h1></center><hr><center>%s-1.0</center></body></html>",
		r.status, r.status, signature)
}

// WriteFile copies the file at path into the body as UTF-8 text.
// Invalid sequences are replaced with U+FFFD.
func (r *Response) WriteFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	r.body.Write(bytes.ToValidUTF8(data, []byte("�")))
	return nil
}

// Bytes serializes the response. Content-Length is set from the body
// immediately before the headers are written.
func (r *Response) Bytes() []byte {
	r.SetHeader(HeaderContentLength, strconv.Itoa(r.body.Len()))

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s\n", r.schema, r.status)
	for _, h := range responseHeaderOrder {
		if v, ok := r.headers[h]; ok {
			fmt.Fprintf(&b, "%s: %s\n", h, v)
		}
	}
	b.WriteString("\n")
	b.Write(r.body.Bytes())
	return b.Bytes()
}

// WriteTo writes the serialized response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

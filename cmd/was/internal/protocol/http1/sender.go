package http1

import (
	"io"
	"log/slog"
)

// Sender writes responses to one client connection.
// Write failures are logged and swallowed: the connection is closed
// by the caller either way.
type Sender struct {
	w         io.Writer
	signature string
	log       *slog.Logger
}

func NewSender(w io.Writer, signature string, log *slog.Logger) *Sender {
	return &Sender{w: w, signature: signature, log: log}
}

// NewResponse returns an empty response carrying this sender's signature.
func (s *Sender) NewResponse() *Response {
	return NewResponse(s.signature)
}

// SendBasicPage synthesizes and sends the minimal HTML page for status.
func (s *Sender) SendBasicPage(status Status) {
	res := s.NewResponse()
	res.SetStatus(status)
	res.WriteBasicPage(s.signature)
	s.Send(res)
}

// SendFile sends the file at path with the given status. A read failure is
// returned before anything is written so the caller can still answer.
func (s *Sender) SendFile(status Status, path string) error {
	res := s.NewResponse()
	res.SetStatus(status)
	if err := res.WriteFile(path); err != nil {
		return err
	}
	s.Send(res)
	return nil
}

// Send serializes res onto the connection.
func (s *Sender) Send(res *Response) {
	if _, err := res.WriteTo(s.w); err != nil {
		s.log.Error("Failed to send response", "status", res.Status().Code(), "error", err)
		return
	}
	s.log.Debug("Sent response", "status", res.Status().Code(), "content_length", res.BodyLen())
}

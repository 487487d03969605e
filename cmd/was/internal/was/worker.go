package was

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/contents"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/logger"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
)

var ErrHandlerNotFound = errors.New("handler not found")

// HandleConnection serves exactly one request on conn and closes it.
func (l *Listener) HandleConnection(conn net.Conn) {
	defer conn.Close()

	if !l.track(conn) {
		return
	}
	defer l.untrack(conn)

	remote := conn.RemoteAddr()
	mainLog := l.mainLog.With("remote_addr", addrString(remote))
	sender := http1.NewSender(conn, l.opts.Signature, mainLog)

	if l.opts.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(l.opts.ReadTimeout)); err != nil {
			mainLog.Warn("Failed to set read deadline", "error", err)
		}
	}

	// 1. Parse request
	req, err := http1.ReadRequest(conn)
	if err != nil {
		mainLog.Error("Failed to parse request", "error", err)
		sender.SendBasicPage(http1.StatusInternalServerError)
		return
	}

	// 2. Resolve virtual host
	host, ok := l.registry.Resolve(req.Header(http1.HeaderHost))
	if !ok {
		mainLog.Warn("No virtual host for request", "host", req.Header(http1.HeaderHost), "request", req.String())
		sender.SendBasicPage(http1.StatusPreconditionFailed)
		return
	}

	hostLog := logger.Target(host.LogTarget).With("remote_addr", addrString(remote), "server_name", host.ServerName)
	sender = http1.NewSender(conn, l.opts.Signature, hostLog)

	// 3. Validate, resolve contents and respond
	if err := l.serve(host, req, sender, hostLog); err != nil {
		mainLog.Error("Failed to serve request", "server_name", host.ServerName, "request", req.String(), "error", err)
		hostLog.Error("Failed to serve request", "request", req.String(), "error", err)
		l.sendInternalError(host, sender, hostLog)
	}
}

func (l *Listener) serve(host *core.VirtualHost, req *http1.Request, sender *http1.Sender, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while serving: %v", r)
		}
	}()

	status := http1.StatusOK
	result := l.rules.Check(host, req)
	log.Debug("Rule check finished", "valid", result.Valid, "result", result.Message)
	if !result.Valid {
		status = http1.StatusForbidden
	}

	c := l.resolver.Resolve(host, req.URI(), status)
	log.Info("Serving request", "request", req.String(), "contents", c.Kind.String(), "status", c.Status.Code())

	switch c.Kind {
	case contents.KindHandler:
		if c.Handler == nil {
			return fmt.Errorf("%w: %s", ErrHandlerNotFound, c.Name)
		}
		res := sender.NewResponse()
		if err := c.Handler.Service(req, res); err != nil {
			return fmt.Errorf("handler %s failed: %w", c.Name, err)
		}
		sender.Send(res)
		return nil
	case contents.KindFile:
		if err := sender.SendFile(c.Status, c.Path); err != nil {
			return fmt.Errorf("failed to send %s: %w", c.Path, err)
		}
		return nil
	default:
		sender.SendBasicPage(c.Status)
		return nil
	}
}

// sendInternalError answers with the host's 500 page when it has a readable
// one, and with the built-in page otherwise.
func (l *Listener) sendInternalError(host *core.VirtualHost, sender *http1.Sender, log *slog.Logger) {
	c := l.resolver.Resolve(host, "", http1.StatusInternalServerError)
	if c.Kind == contents.KindFile {
		err := sender.SendFile(http1.StatusInternalServerError, c.Path)
		if err == nil {
			return
		}
		log.Error("Failed to send error page", "path", c.Path, "error", err)
	}
	sender.SendBasicPage(http1.StatusInternalServerError)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

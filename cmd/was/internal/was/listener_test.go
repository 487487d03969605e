package was

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hasirciogluhq/simplewas/cmd/was/internal/contents"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/core"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/handlers"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/protocol/http1"
	"github.com/hasirciogluhq/simplewas/cmd/was/internal/rules"
)

// mockConn replays a canned request and records everything written back.
type mockConn struct {
	in     io.Reader
	out    bytes.Buffer
	closed bool
}

func newMockConn(request string) *mockConn {
	return &mockConn{in: strings.NewReader(request)}
}

func (c *mockConn) Read(p []byte) (int, error)         { return c.in.Read(p) }
func (c *mockConn) Write(p []byte) (int, error)        { return c.out.Write(p) }
func (c *mockConn) Close() error                       { c.closed = true; return nil }
func (c *mockConn) LocalAddr() net.Addr                { return mockAddr("127.0.0.1:8080") }
func (c *mockConn) RemoteAddr() net.Addr               { return mockAddr("127.0.0.1:50000") }
func (c *mockConn) SetDeadline(t time.Time) error      { return nil }
func (c *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *mockConn) SetWriteDeadline(t time.Time) error { return nil }

type mockAddr string

func (a mockAddr) Network() string { return "tcp" }
func (a mockAddr) String() string  { return string(a) }

type response struct {
	statusLine string
	headers    map[string]string
	body       string
}

func parseResponse(t *testing.T, raw string) response {
	t.Helper()
	head, body, ok := strings.Cut(raw, "\n\n")
	if !ok {
		t.Fatalf("response has no header terminator: %q", raw)
	}
	lines := strings.Split(head, "\n")
	res := response{statusLine: lines[0], headers: make(map[string]string), body: body}
	for _, line := range lines[1:] {
		k, v, _ := strings.Cut(line, ": ")
		res.headers[k] = v
	}
	if cl := res.headers["Content-Length"]; cl != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length %s does not match body length %d", cl, len(body))
	}
	return res
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestListener(t *testing.T, registry *handlers.Registry) *Listener {
	t.Helper()
	return NewListener(
		Options{Workers: 2, Signature: "SimpleWas"},
		rules.Default([]string{"exe"}, registry),
		contents.NewResolver(registry),
	)
}

func newSite(t *testing.T, name string) *core.VirtualHost {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<h1>index</h1>")
	writeFile(t, filepath.Join(root, "errors", "403.html"), "forbidden page")
	writeFile(t, filepath.Join(root, "errors", "500.html"), "broken page")
	return &core.VirtualHost{
		ServerName:   name,
		PortNumber:   8080,
		DocumentRoot: root,
		IndexPage:    "index.html",
		ErrorPages:   map[int]string{403: "/errors/403.html", 500: "/errors/500.html"},
	}
}

func roundTrip(t *testing.T, l *Listener, request string) response {
	t.Helper()
	conn := newMockConn(request)
	l.HandleConnection(conn)
	if !conn.closed {
		t.Errorf("connection was not closed")
	}
	return parseResponse(t, conn.out.String())
}

func TestHandleConnectionHostResolution(t *testing.T) {
	l := newTestListener(t, handlers.Builtin())
	if err := l.Register(newSite(t, "other.com")); err != nil {
		t.Fatal(err)
	}

	req := "GET /index.html HTTP/1.1\r\nHost: a.com\r\n\r\n"

	res := roundTrip(t, l, req)
	if res.statusLine != "HTTP/1.1 412 Precondition Failed" {
		t.Errorf("Got %q, want 412 for an unknown host", res.statusLine)
	}
	if !strings.Contains(res.body, "412 Precondition Failed") || !strings.Contains(res.body, "SimpleWas-1.0") {
		t.Errorf("unexpected basic page: %q", res.body)
	}

	if err := l.Register(newSite(t, "a.com")); err != nil {
		t.Fatal(err)
	}
	res = roundTrip(t, l, req)
	if res.statusLine != "HTTP/1.1 200 OK" {
		t.Errorf("Got %q, want 200 once a.com is registered", res.statusLine)
	}
	if res.body != "<h1>index</h1>" {
		t.Errorf("Got body %q", res.body)
	}
	if res.headers["Server"] != "SimpleWas" || res.headers["Content-Type"] != "text/html" {
		t.Errorf("unexpected headers: %v", res.headers)
	}
}

func TestHandleConnectionStatuses(t *testing.T) {
	registry := handlers.Builtin()
	registry.MustRegister("Broken", core.HandlerFunc(func(*http1.Request, *http1.Response) error {
		return errors.New("boom")
	}))
	registry.MustRegister("Panics", core.HandlerFunc(func(*http1.Request, *http1.Response) error {
		panic("boom")
	}))

	l := newTestListener(t, registry)
	site := newSite(t, core.WildcardServerName)
	if err := l.Register(site); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(filepath.Dir(site.DocumentRoot), "secret.txt"), "TOP SECRET")

	tests := []struct {
		name       string
		request    string
		statusLine string
		body       string
	}{
		{"index", "GET / HTTP/1.1\r\nHost: any.com\r\n\r\n", "HTTP/1.1 200 OK", "<h1>index</h1>"},
		{"missing file", "GET /nope.html HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found", ""},
		{"denied extension", "GET /setup.exe HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden", "forbidden page"},
		{"traversal", "GET /../../../../../../../../etc/passwd HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden", "forbidden page"},
		{"dot segments", "GET /./../secret.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden", "forbidden page"},
		{"dot segments twice", "GET /./.././../secret.txt HTTP/1.1\r\n\r\n", "HTTP/1.1 403 Forbidden", "forbidden page"},
		{"handler error", "GET /Broken HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error", "broken page"},
		{"handler panic", "GET /Panics HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error", "broken page"},
		{"malformed", "GARBAGE\r\n\r\n", "HTTP/1.1 500 Internal Server Error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := roundTrip(t, l, tt.request)
			if res.statusLine != tt.statusLine {
				t.Errorf("Got %q, want %q", res.statusLine, tt.statusLine)
			}
			if tt.body != "" && res.body != tt.body {
				t.Errorf("Got body %q, want %q", res.body, tt.body)
			}
		})
	}
}

func TestHandleConnectionBuiltinHandlers(t *testing.T) {
	l := newTestListener(t, handlers.Builtin())
	if err := l.Register(newSite(t, "a.com")); err != nil {
		t.Fatal(err)
	}

	res := roundTrip(t, l, "POST /ParamEcho?b=2 HTTP/1.1\r\nHost: a.com\r\nContent-Length: 3\r\n\r\na=1")
	if res.statusLine != "HTTP/1.1 200 OK" {
		t.Fatalf("Got %q", res.statusLine)
	}
	if !strings.Contains(res.body, "<ul><li>a=1</li><li>b=2</li></ul>") {
		t.Errorf("Got body %q", res.body)
	}

	res = roundTrip(t, l, "GET /TimeStampPage HTTP/1.1\r\nHost: a.com\r\n\r\n")
	if res.statusLine != "HTTP/1.1 200 OK" || res.body == "" {
		t.Errorf("Got %q with body %q", res.statusLine, res.body)
	}
}

func TestHandleConnectionMissingErrorPage(t *testing.T) {
	l := newTestListener(t, handlers.Builtin())
	site := newSite(t, "a.com")
	site.ErrorPages = nil
	if err := l.Register(site); err != nil {
		t.Fatal(err)
	}

	res := roundTrip(t, l, "GET /run.exe HTTP/1.1\r\nHost: a.com\r\n\r\n")
	if res.statusLine != "HTTP/1.1 403 Forbidden" {
		t.Errorf("Got %q", res.statusLine)
	}
	if !strings.Contains(res.body, "<h1>403 Forbidden</h1>") {
		t.Errorf("expected the built-in page, got %q", res.body)
	}
}

func TestStartWithoutHosts(t *testing.T) {
	l := newTestListener(t, handlers.Builtin())
	if err := l.Start(context.Background()); !errors.Is(err, ErrNoVirtualHosts) {
		t.Errorf("Got %v, want ErrNoVirtualHosts", err)
	}
}

func TestStartBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	site := newSite(t, "a.com")
	site.PortNumber = busy.Addr().(*net.TCPAddr).Port

	l := newTestListener(t, handlers.Builtin())
	if err := l.Register(site); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Start(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected a bind error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return on bind failure")
	}
}

func TestServeOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	l := newTestListener(t, handlers.Builtin())
	if err := l.Register(newSite(t, "a.com")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, ln) }()

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(conn, "GET / HTTP/1.1\r\nHost: a.com\r\n\r\n"); err != nil {
			t.Fatal(err)
		}
		raw, err := io.ReadAll(conn)
		conn.Close()
		if err != nil {
			t.Fatal(err)
		}
		res := parseResponse(t, string(raw))
		if res.statusLine != "HTTP/1.1 200 OK" || res.body != "<h1>index</h1>" {
			t.Errorf("Got %q with body %q", res.statusLine, res.body)
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func (l *Listener) inFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

func TestServeStopsWithIdleClients(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	stopped := make(chan net.Addr, 1)
	registry := handlers.Builtin()
	l := NewListener(
		Options{Workers: 1, Signature: "SimpleWas", OnStopped: func(addr net.Addr) { stopped <- addr }},
		rules.Default([]string{"exe"}, registry),
		contents.NewResolver(registry),
	)
	if err := l.Register(newSite(t, "a.com")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, ln) }()

	// The first client occupies the only worker without ever sending a
	// request; the second one leaves the accept loop waiting for a worker.
	idle, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer idle.Close()

	deadline := time.Now().Add(5 * time.Second)
	for l.inFlight() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle connection never reached a worker")
		}
		time.Sleep(10 * time.Millisecond)
	}

	waiting, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer waiting.Close()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop while clients were idle")
	}

	select {
	case addr := <-stopped:
		if addr.String() != ln.Addr().String() {
			t.Errorf("OnStopped got %s, want %s", addr, ln.Addr())
		}
	default:
		t.Error("OnStopped was not called")
	}
	if n := l.inFlight(); n != 0 {
		t.Errorf("%d connections still tracked after Serve returned", n)
	}
}

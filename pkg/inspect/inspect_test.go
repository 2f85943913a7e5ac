package inspect

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/loom/pkg/loom"
	"github.com/vango-dev/loom/pkg/vnode"
	"github.com/vango-dev/loom/pkg/wire"
)

type fixture struct {
	rt  *loom.Runtime
	srv *Server
	ts  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	rt := loom.New(loom.Options{
		Config:  loom.ImmediateConfig(),
		Logger:  logger,
		Metrics: loom.NewMetrics(reg),
	})
	srv := New(rt, &Config{Gatherer: reg, Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	go rt.Scheduler().Run(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		cancel()
	})
	return &fixture{rt: rt, srv: srv, ts: ts}
}

// do runs fn on the scheduler goroutine.
func (f *fixture) do(t *testing.T, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.rt.Scheduler().Do(ctx, fn); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func (f *fixture) render(t *testing.T, items ...string) {
	t.Helper()
	children := make([]any, len(items))
	for i, item := range items {
		children[i] = vnode.Construct("li", nil, item)
	}
	f.do(t, func() {
		if _, err := f.rt.Render(context.Background(), f.rt.Document().Body(), vnode.Construct("ul", nil, children...)); err != nil {
			t.Errorf("Render: %v", err)
		}
	})
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(f.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (f *fixture) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	code, body := f.get(t, path)
	if code != http.StatusOK {
		t.Fatalf("GET %s = %d: %s", path, code, body)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("GET %s: decode: %v", path, err)
	}
}

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	f.render(t, "a")

	var stats Stats
	f.getJSON(t, "/stats", &stats)
	if stats.Runtime != f.rt.ID() || stats.Roots != 1 || stats.Commits != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// body, ul, li, text
	if stats.Instances != 4 {
		t.Errorf("instances = %d, want 4", stats.Instances)
	}

	var roots []RootInfo
	f.getJSON(t, "/roots", &roots)
	if len(roots) != 1 || roots[0].Tag != "body" || len(roots[0].Children) != 1 {
		t.Fatalf("roots = %+v", roots)
	}

	code, html := f.get(t, "/roots/"+roots[0].ID.String()+"/html")
	if code != http.StatusOK || html != "<ul><li>a</li></ul>" {
		t.Errorf("html = %d %q", code, html)
	}

	var ul InstanceInfo
	f.getJSON(t, "/instances/"+strconv.FormatUint(roots[0].Children[0], 10), &ul)
	if ul.Name != "ul" || ul.Kind != "host" || ul.Root != roots[0].ID || len(ul.Children) != 1 {
		t.Errorf("instance = %+v", ul)
	}

	tests := []struct {
		path string
		code int
	}{
		{"/instances/abc", http.StatusBadRequest},
		{"/instances/99999", http.StatusNotFound},
		{"/roots/not-a-uuid/html", http.StatusBadRequest},
		{"/roots/" + uuid.NewString() + "/html", http.StatusNotFound},
	}
	for _, tt := range tests {
		if code, _ := f.get(t, tt.path); code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.path, code, tt.code)
		}
	}

	code, metrics := f.get(t, "/metrics")
	if code != http.StatusOK || !strings.Contains(metrics, "loom_instances 4") {
		t.Errorf("metrics = %d, missing loom_instances:\n%s", code, metrics)
	}
}

func TestCommitStream(t *testing.T) {
	f := newFixture(t)
	f.render(t, "a")

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	read := func() []byte {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		typ, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if typ != websocket.BinaryMessage {
			t.Fatalf("message type = %d, want binary", typ)
		}
		return data
	}

	hello, err := wire.DecodeHello(read())
	if err != nil {
		t.Fatal(err)
	}
	if hello.Runtime != f.rt.ID() || hello.Commits != 1 {
		t.Errorf("hello = %+v", hello)
	}

	f.render(t, "a", "b")
	rec, err := wire.DecodeCommit(read())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Seq != 2 || rec.Created != 1 || rec.Runtime != f.rt.ID() {
		t.Errorf("commit = %+v", rec)
	}

	f.srv.Close()
	if f.srv.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", f.srv.ClientCount())
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("stream should end after Close")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	rt := loom.New(loom.Options{Config: loom.ImmediateConfig()})
	srv := New(rt, &Config{SendBuffer: 1, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	server, clientConn := newConnPair(t)
	defer clientConn.Close()
	c := &client{conn: server, send: make(chan []byte, 1), done: make(chan struct{})}
	srv.clients[c] = struct{}{}

	srv.broadcast(loom.CommitRecord{Seq: 1})
	if srv.ClientCount() != 1 {
		t.Fatal("first frame fits the buffer")
	}
	srv.broadcast(loom.CommitRecord{Seq: 2})
	if srv.ClientCount() != 0 {
		t.Error("client with a full buffer should be dropped")
	}
}

// newConnPair returns the server side of a live websocket connection.
func newConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(ts.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	select {
	case conn := <-accepted:
		return conn, clientConn
	case <-time.After(5 * time.Second):
		t.Fatal("upgrade timed out")
		return nil, nil
	}
}

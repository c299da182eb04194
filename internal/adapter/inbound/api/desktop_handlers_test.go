package api

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/plutodesk/plutodesk/internal/adapter/outbound/desktop"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

func waitForSubscribers(t *testing.T, b *desktop.Broker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", b.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// syncRecorder is a ResponseWriter safe to read while a handler writes.
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   strings.Builder
	code   int
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: make(http.Header)}
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func TestHandleEvents_StreamsBrokerEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := desktop.NewBroker(testLogger())
	h := NewHandler(nil, WithEventSource(broker), WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := localRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.handleEvents(rec, req)
	}()

	waitForSubscribers(t, broker, 1)
	broker.Emit(outbound.EventSessionStateChanged, nil)
	broker.Emit(outbound.EventOpenSessionModal, map[string]string{"source": "tray"})

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(rec.String(), `"source":"tray"`) {
		if time.Now().After(deadline) {
			t.Fatalf("events not written:\n%s", rec.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if broker.Subscribers() != 0 {
		t.Errorf("subscription not released: %d", broker.Subscribers())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.String()
	first := strings.Index(body, "event: "+outbound.EventSessionStateChanged+"\n")
	second := strings.Index(body, "event: "+outbound.EventOpenSessionModal+"\n")
	if first < 0 || second < first {
		t.Errorf("events missing or out of order:\n%s", body)
	}
}

func TestHandleEvents_NoSource(t *testing.T) {
	h := NewHandler(nil, WithLogger(testLogger()))
	rec := httptest.NewRecorder()
	h.handleEvents(rec, localRequest(http.MethodGet, "/api/events", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestServer_ShutdownEndsEventStreams(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := desktop.NewBroker(testLogger())
	h := NewHandler(nil, WithEventSource(broker), WithLogger(testLogger()))
	srv := NewServer(h, WithServerLogger(testLogger()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	defer client.CloseIdleConnections()

	resp, err := client.Get("http://" + ln.Addr().String() + "/api/events")
	if err != nil {
		cancel()
		<-served
		t.Fatalf("GET /api/events: %v", err)
	}
	waitForSubscribers(t, broker, 1)

	broker.Emit(outbound.EventProblemSaved, nil)
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || line != "event: "+outbound.EventProblemSaved+"\n" {
		t.Errorf("first line = %q, %v", line, err)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	_ = resp.Body.Close()

	if broker.Subscribers() != 0 {
		t.Errorf("subscribers = %d after shutdown", broker.Subscribers())
	}
}

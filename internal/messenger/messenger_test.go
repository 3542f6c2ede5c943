package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// compile-time checks
var (
	_ Messenger = (*Webhook)(nil)
	_ Messenger = (*Recorder)(nil)
)

type hit struct {
	Method string
	Path   string
	Body   map[string]string
}

func newBridge(t *testing.T) (*httptest.Server, *[]hit) {
	t.Helper()
	var (
		mu   sync.Mutex
		hits []hit
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := hit{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&h.Body)
		}
		mu.Lock()
		hits = append(hits, h)
		mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads/7/messages":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "9001"})
		case r.Method == http.MethodPatch && r.URL.Path == "/threads/7/messages/404":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestWebhook_RoundTrip(t *testing.T) {
	srv, hits := newBridge(t)
	w := NewWebhook(srv.URL+"/", time.Second)
	ctx := context.Background()

	reply := int64(55)
	id, err := w.SendMessage(ctx, 7, "Order!", &reply)
	if err != nil || id != 9001 {
		t.Fatalf("SendMessage = %d, %v", id, err)
	}
	if err := w.EditMessage(ctx, 7, 9001, "edited"); err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if err := w.EditMessage(ctx, 7, 404, "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if err := w.LockThread(ctx, 7); err != nil {
		t.Fatalf("LockThread: %v", err)
	}
	if err := w.UnlockThread(ctx, 7); err != nil {
		t.Fatalf("UnlockThread: %v", err)
	}

	want := []hit{
		{Method: "POST", Path: "/threads/7/messages", Body: map[string]string{"content": "Order!", "reply_to": "55"}},
		{Method: "PATCH", Path: "/threads/7/messages/9001", Body: map[string]string{"content": "edited"}},
		{Method: "PATCH", Path: "/threads/7/messages/404", Body: map[string]string{"content": "x"}},
		{Method: "POST", Path: "/threads/7/lock"},
		{Method: "POST", Path: "/threads/7/unlock"},
	}
	if diff := cmp.Diff(want, *hits); diff != "" {
		t.Fatalf("bridge calls mismatch (-want +got):\n%s", diff)
	}
}

func TestWebhook_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, 0)
	if _, err := w.SendMessage(context.Background(), 1, "x", nil); err == nil || errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected generic delivery error, got %v", err)
	}
}

func TestWebhook_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("traceparent")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	defer span.End()

	w := NewWebhook(srv.URL, time.Second)
	if err := w.LockThread(ctx, 7); err != nil {
		t.Fatalf("lock: %v", err)
	}
	header := <-got
	if want := span.SpanContext().TraceID().String(); len(header) < 35 || header[3:35] != want {
		t.Fatalf("traceparent=%q want trace id %s", header, want)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(100)
	ctx := context.Background()

	id1, _ := r.SendMessage(ctx, 1, "header", nil)
	ref := id1
	id2, _ := r.SendMessage(ctx, 1, "reply", &ref)
	_, _ = r.SendMessage(ctx, 2, "elsewhere", nil)

	if id1 != 100 || id2 != 101 {
		t.Fatalf("ids = %d, %d", id1, id2)
	}
	if err := r.EditMessage(ctx, 1, id1, "header v2"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := r.EditMessage(ctx, 2, id1, "wrong thread"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("edit in wrong thread should fail, got %v", err)
	}
	m, ok := r.Get(id1)
	if !ok || m.Text != "header v2" || m.Edits != 1 {
		t.Fatalf("Get = %+v, %v", m, ok)
	}

	r.Delete(id1)
	if err := r.EditMessage(ctx, 1, id1, "gone"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("edit after delete should fail, got %v", err)
	}
	thread := r.Thread(1)
	if len(thread) != 1 || thread[0].ReplyTo == nil || *thread[0].ReplyTo != id1 {
		t.Fatalf("thread = %+v", thread)
	}

	_ = r.LockThread(ctx, 1)
	_ = r.UnlockThread(ctx, 1)
	_ = r.LockThread(ctx, 1)
	if !r.Locked(1) || r.Locked(2) {
		t.Fatalf("lock state mismatch")
	}
	want := []LockOp{{1, true}, {1, false}, {1, true}}
	if diff := cmp.Diff(want, r.LockOps()); diff != "" {
		t.Fatalf("lock ops mismatch (-want +got):\n%s", diff)
	}
}

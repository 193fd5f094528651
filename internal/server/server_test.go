package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
	"github.com/zupervisor-project/zupervisor-go/internal/runtime"
	"github.com/zupervisor-project/zupervisor-go/internal/store"
)

// fakeFeature stands in for a loaded plugin process. Its handlers mutate the
// response through the same runtime the server dispatches against, so a
// request travels the full handle lifecycle in-process.
type fakeFeature struct {
	name     string
	rt       *runtime.Runtime
	handlers map[uint32]func(req shared.RequestHandle, resp shared.ResponseHandle) int32
}

func (f *fakeFeature) Name() string { return f.name }

func (f *fakeFeature) InvokeHandler(handlerID uint32, request shared.RequestHandle, response shared.ResponseHandle) int32 {
	h, ok := f.handlers[handlerID]
	if !ok {
		return shared.HandlerFailed
	}
	return h(request, response)
}

func newTestServer(t *testing.T) (*Server, *router.Table, *runtime.Runtime) {
	store.InitProvider()
	table := router.NewTable()
	rt := runtime.New()
	zCfg := &config.ZupervisorConfig{ServerPort: "0"}
	return NewServer(zCfg, table, rt), table, rt
}

func TestHandleRequest_Dispatch(t *testing.T) {
	srv, table, rt := newTestServer(t)

	feature := &fakeFeature{
		name: "health",
		rt:   rt,
		handlers: map[uint32]func(shared.RequestHandle, shared.ResponseHandle) int32{
			1: func(req shared.RequestHandle, resp shared.ResponseHandle) int32 {
				builder, ok := rt.Response(resp)
				if !ok {
					return shared.HandlerFailed
				}
				builder.SetStatus(200)
				builder.SetBody([]byte("ok"))
				return shared.ResultOK
			},
		},
	}
	if got := table.Register(shared.MethodGet, "/health", feature, 1); got != router.RegisterOK {
		t.Fatalf("Register = %d", got)
	}

	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}

	// Handles die with the dispatch.
	if reqs, resps := rt.LiveHandles(); reqs != 0 || resps != 0 {
		t.Errorf("handles leaked: %d requests, %d responses", reqs, resps)
	}
}

func TestHandleRequest_UnknownMethod(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("TRACE", "/health", nil))
	if rec.Code != 405 {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleRequest_UnregisteredRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("GET", "/missing", nil))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRequest_HandlerFailure(t *testing.T) {
	srv, table, rt := newTestServer(t)

	feature := &fakeFeature{
		name: "broken",
		rt:   rt,
		handlers: map[uint32]func(shared.RequestHandle, shared.ResponseHandle) int32{
			1: func(req shared.RequestHandle, resp shared.ResponseHandle) int32 {
				// A handler may mutate before failing; the mutations are
				// discarded with the 500.
				if builder, ok := rt.Response(resp); ok {
					builder.SetBody([]byte("partial"))
				}
				return 7
			},
		},
	}
	table.Register(shared.MethodGet, "/broken", feature, 1)

	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("GET", "/broken", nil))
	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "partial") {
		t.Error("partial handler output leaked into the error response")
	}
}

func TestHandleRequest_RequestBodyReachesHandler(t *testing.T) {
	srv, table, rt := newTestServer(t)

	var seenBody string
	feature := &fakeFeature{
		name: "echo",
		rt:   rt,
		handlers: map[uint32]func(shared.RequestHandle, shared.ResponseHandle) int32{
			1: func(req shared.RequestHandle, resp shared.ResponseHandle) int32 {
				reqCtx, ok := rt.Request(req)
				if !ok {
					return shared.HandlerFailed
				}
				seenBody = string(reqCtx.Body)
				builder, _ := rt.Response(resp)
				builder.SetBody(reqCtx.Body)
				return shared.ResultOK
			},
		},
	}
	table.Register(shared.MethodPost, "/echo", feature, 1)

	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("POST", "/echo", strings.NewReader("payload")))

	if seenBody != "payload" {
		t.Errorf("handler saw body %q", seenBody)
	}
	if rec.Body.String() != "payload" {
		t.Errorf("response body = %q", rec.Body.String())
	}
}

func TestHandleRequest_ConcurrencyLimit(t *testing.T) {
	srv, table, rt := newTestServer(t)

	release := make(chan struct{})
	started := make(chan struct{})
	feature := &fakeFeature{
		name: "slow",
		rt:   rt,
		handlers: map[uint32]func(shared.RequestHandle, shared.ResponseHandle) int32{
			1: func(req shared.RequestHandle, resp shared.ResponseHandle) int32 {
				started <- struct{}{}
				<-release
				return shared.ResultOK
			},
		},
	}
	table.Register(shared.MethodGet, "/slow", feature, 1)
	table.SetLimit(shared.MethodGet, "/slow", 1)

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		srv.HandleRequest(rec, httptest.NewRequest("GET", "/slow", nil))
		firstDone <- rec
	}()
	<-started

	// With one dispatch in flight at limit 1, the next is rejected.
	rec := httptest.NewRecorder()
	srv.HandleRequest(rec, httptest.NewRequest("GET", "/slow", nil))
	if rec.Code != 429 {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	close(release)
	first := <-firstDone
	if first.Code != 200 {
		t.Errorf("in-flight dispatch status = %d, want 200", first.Code)
	}

	// The slot is free again once the dispatch completes.
	go func() {
		rec := httptest.NewRecorder()
		srv.HandleRequest(rec, httptest.NewRequest("GET", "/slow", nil))
		firstDone <- rec
	}()
	<-started
	last := <-firstDone
	if last.Code != 200 {
		t.Errorf("post-release dispatch status = %d, want 200", last.Code)
	}
}

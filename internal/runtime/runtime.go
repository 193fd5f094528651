package runtime

import (
	"net/http"
	"os"
	"strconv"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

const defaultMaxBodySize = 10 * 1024 * 1024

// Runtime owns the live request and response state hidden behind the
// boundary's opaque handles. Handles are valid only for the duration of the
// single handler call they were allocated for; EndExchange kills them.
type Runtime struct {
	requests    *handleTable
	responses   *handleTable
	maxBodySize int
}

func New() *Runtime {
	maxBody := defaultMaxBodySize
	if v := os.Getenv("ZUPERVISOR_MAX_BODY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxBody = n
		}
	}
	return &Runtime{
		requests:    newHandleTable(),
		responses:   newHandleTable(),
		maxBodySize: maxBody,
	}
}

// BeginExchange allocates the handle pair for one dispatch.
func (rt *Runtime) BeginExchange(method shared.HttpMethod, r *http.Request, body []byte) (shared.RequestHandle, shared.ResponseHandle) {
	reqCtx := NewRequestContext(method, r, body)
	builder := newResponseBuilder(rt.maxBodySize)
	return shared.RequestHandle(rt.requests.put(reqCtx)), shared.ResponseHandle(rt.responses.put(builder))
}

// EndExchange releases the handle pair; any later use of either handle fails
// with ErrInvalidHandle.
func (rt *Runtime) EndExchange(req shared.RequestHandle, resp shared.ResponseHandle) {
	rt.requests.release(uint64(req))
	rt.responses.release(uint64(resp))
}

// Request resolves a live request handle.
func (rt *Runtime) Request(h shared.RequestHandle) (*RequestContext, bool) {
	v, ok := rt.requests.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*RequestContext), true
}

// Response resolves a live response handle.
func (rt *Runtime) Response(h shared.ResponseHandle) (*ResponseBuilder, bool) {
	v, ok := rt.responses.get(uint64(h))
	if !ok {
		return nil, false
	}
	return v.(*ResponseBuilder), true
}

// LiveHandles reports the number of outstanding request and response
// handles, for teardown diagnostics.
func (rt *Runtime) LiveHandles() (int, int) {
	return rt.requests.size(), rt.responses.size()
}

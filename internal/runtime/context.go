package runtime

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

// RequestContext is the host-owned representation of one in-flight request.
// Plugins only ever see its handle; reads go through the runtime service's
// RequestInfo extension.
type RequestContext struct {
	ID      string
	Method  shared.HttpMethod
	Path    string
	Query   map[string][]string
	Headers map[string]string
	Body    []byte
}

// NewRequestContext captures the parts of an inbound request that plugins
// may inspect. The body must already have been read.
func NewRequestContext(method shared.HttpMethod, r *http.Request, body []byte) *RequestContext {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return &RequestContext{
		ID:      uuid.NewString(),
		Method:  method,
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Headers: headers,
		Body:    body,
	}
}

// Info renders the context in the boundary's wire shape.
func (c *RequestContext) Info() *shared.RequestInfo {
	return &shared.RequestInfo{
		Method:  c.Method,
		Path:    c.Path,
		Query:   c.Query,
		Headers: c.Headers,
		Body:    c.Body,
	}
}

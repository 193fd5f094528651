package runtime

import (
	"net/http"
	"strings"
	"sync"
)

// Mutation result codes returned to plugins through the response endpoints.
// Zero is success; the non-zero meanings are defined by this runtime.
const (
	MutateOK             int32 = 0
	ErrInvalidHandle     int32 = 1
	ErrInvalidHeaderName int32 = 2
	ErrBodyTooLarge      int32 = 3
)

// ResponseBuilder accumulates the status, headers and body for one request.
// Mutations are strictly additive; a failed mutation does not roll back
// earlier ones. The builder is owned by the runtime and plugins mutate it
// only through its handle.
type ResponseBuilder struct {
	mu          sync.Mutex
	statusCode  int
	headers     map[string]string
	body        []byte
	maxBodySize int
}

func newResponseBuilder(maxBodySize int) *ResponseBuilder {
	return &ResponseBuilder{
		statusCode:  http.StatusOK,
		headers:     make(map[string]string),
		maxBodySize: maxBodySize,
	}
}

// SetStatus sets the response status code. Always succeeds.
func (b *ResponseBuilder) SetStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCode = status
}

// SetHeader sets one header, replacing any prior value for the same name.
func (b *ResponseBuilder) SetHeader(name, value []byte) int32 {
	if !validHeaderName(name) {
		return ErrInvalidHeaderName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headers[string(name)] = string(value)
	return MutateOK
}

// SetBody replaces the response body.
func (b *ResponseBuilder) SetBody(body []byte) int32 {
	if b.maxBodySize > 0 && len(body) > b.maxBodySize {
		return ErrBodyTooLarge
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.body = body
	return MutateOK
}

// Snapshot returns the accumulated status, headers and body.
func (b *ResponseBuilder) Snapshot() (int, map[string]string, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	headers := make(map[string]string, len(b.headers))
	for k, v := range b.headers {
		headers[k] = v
	}
	return b.statusCode, headers, b.body
}

// WriteTo writes the final state to the http.ResponseWriter.
func (b *ResponseBuilder) WriteTo(w http.ResponseWriter) {
	status, headers, body := b.Snapshot()
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(status)
	if body != nil {
		w.Write(body)
	}
}

// validHeaderName checks the RFC 7230 token grammar. Raw bytes cross the
// boundary, so this is where NULs and separators get rejected.
func validHeaderName(name []byte) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}

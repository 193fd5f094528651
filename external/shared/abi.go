package shared

import (
	"encoding/gob"
	"unsafe"
)

// This file defines the wire contract between the Zupervisor host and every
// feature plugin binary. The host and plugins are built and shipped
// independently, so everything here is frozen: enum values are never
// renumbered, the adapter layout never changes shape, and argument structs
// only ever gain fields in a new contract version.

// HttpMethod identifies an HTTP request method crossing the plugin boundary.
// The integer values are part of the wire contract and must never be
// renumbered or reordered; new methods are appended only.
type HttpMethod int32

const (
	MethodGet     HttpMethod = 0
	MethodPost    HttpMethod = 1
	MethodPut     HttpMethod = 2
	MethodPatch   HttpMethod = 3
	MethodDelete  HttpMethod = 4
	MethodHead    HttpMethod = 5
	MethodOptions HttpMethod = 6
)

var methodNames = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

func (m HttpMethod) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// Known reports whether the value names a method in the current contract
// version.
func (m HttpMethod) Known() bool {
	return m >= 0 && int(m) < len(methodNames)
}

// MethodForName resolves an HTTP method name to its wire value. The second
// return value is false for methods outside the contract.
func MethodForName(name string) (HttpMethod, bool) {
	for i, n := range methodNames {
		if n == name {
			return HttpMethod(i), true
		}
	}
	return 0, false
}

// RequestHandle refers to one in-flight HTTP request owned by the host
// runtime. A plugin receives a handle for the duration of a single handler
// call and must not retain it past return. Zero is never a live handle.
type RequestHandle uint64

// ResponseHandle refers to the response builder for one in-flight request.
// Same lifetime rules as RequestHandle; mutations go through the adapter's
// SetStatus/SetHeader/SetBody endpoints only.
type ResponseHandle uint64

// ServerAdapter is the aggregate handed to a plugin's featureInit. Router is
// an opaque host token the plugin passes back verbatim on registration calls.
// RuntimeResources names the brokered endpoint carrying the host's runtime
// resources; the remaining four name the brokered endpoints serving route
// registration and response mutation. Field order and width are frozen: any
// addition is a breaking contract version.
type ServerAdapter struct {
	Router           uint64
	RuntimeResources uint64
	AddRoute         uint64
	SetStatus        uint64
	SetHeader        uint64
	SetBody          uint64
}

// The adapter's in-memory shape is pinned so that a rebuild of either side
// cannot silently drift: 6 fields * 8 bytes at 8-byte alignment on 64-bit
// targets. A mismatch is a compile error, never a runtime surprise.
const adapterSize = 48

var _ [adapterSize]byte = [unsafe.Sizeof(ServerAdapter{})]byte{}
var _ [8]byte = [unsafe.Alignof(ServerAdapter{})]byte{}

// Result codes shared by every boundary call. Zero is success; positive
// values are private to the side that produced them; negative values are
// reserved for the host bridge and call shims.
const (
	ResultOK int32 = 0

	// InitFailed is returned by the bridge when featureInit could not be
	// invoked at all, and by the call shim when the transport failed.
	InitFailed int32 = -1

	// HandlerFailed is produced host-side when a handler could not be
	// reached; a handler's own non-zero codes pass through unchanged.
	HandlerFailed int32 = -1
)

// VersionUnknown is returned for plugins that do not export a version.
const VersionUnknown = "unknown"

// InitArgs carries the adapter to the plugin's featureInit.
type InitArgs struct {
	Adapter ServerAdapter
}

// InitReply carries featureInit's result code back verbatim.
type InitReply struct {
	Result int32
}

// VersionReply carries the plugin-supplied version string, unmodified.
type VersionReply struct {
	Version string
}

// AddRouteArgs registers a handler for (Method, Path). Router must be the
// token from the adapter; HandlerID is the plugin-side brokered endpoint the
// host dials to invoke the handler. Registration is only valid while the
// plugin's featureInit is on the stack.
type AddRouteArgs struct {
	Router    uint64
	Method    HttpMethod
	Path      string
	HandlerID uint32
}

// AddRouteReply carries the router's result code; non-zero meaning is
// defined by the router, not by this contract.
type AddRouteReply struct {
	Result int32
}

// SetStatusArgs sets the response status. Always succeeds; no reply beyond
// transport acknowledgement.
type SetStatusArgs struct {
	Response ResponseHandle
	Status   int32
}

// SetHeaderArgs sets one response header. Name and value are raw bytes;
// embedded NULs are legal at this layer.
type SetHeaderArgs struct {
	Response ResponseHandle
	Name     []byte
	Value    []byte
}

// SetBodyArgs replaces the response body.
type SetBodyArgs struct {
	Response ResponseHandle
	Body     []byte
}

// MutateReply carries the runtime's result for a header or body mutation.
// Each mutation is independent; a failure does not roll back earlier ones.
type MutateReply struct {
	Result int32
}

// HandleArgs invokes a registered handler with the request/response pair for
// one dispatch. Both handles are dead as soon as the call returns.
type HandleArgs struct {
	Request  RequestHandle
	Response ResponseHandle
}

// HandleReply carries the handler's result code.
type HandleReply struct {
	Result int32
}

// RequestInfoArgs and RequestInfo expose read access to an in-flight request.
// This is a runtime-side addition layered on the RuntimeResources endpoint;
// it is not part of the frozen adapter contract.
type RequestInfoArgs struct {
	Resources uint64
	Request   RequestHandle
}

type RequestInfo struct {
	Method  HttpMethod
	Path    string
	Query   map[string][]string
	Headers map[string]string
	Body    []byte
}

// StoreGetArgs, StoreGetReply and StoreSetArgs expose the host's shared
// store to plugins. Runtime-side addition, same caveat as RequestInfo.
type StoreGetArgs struct {
	Resources uint64
	Store     string
	Key       string
}

type StoreGetReply struct {
	Value interface{}
	Found bool
}

type StoreSetArgs struct {
	Resources uint64
	Store     string
	Key       string
	Value     interface{}
}

type StoreSetReply struct {
	Result int32
}

func init() {
	// Register value types for gob encoding across the plugin boundary.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register([]string{})
	gob.Register(map[string]string{})
}

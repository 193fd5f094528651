package shared

import (
	"fmt"
	"net/rpc"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"
)

// HandlerFunc handles one dispatched request. The request handle and the
// response writer are valid only until the function returns. Returns 0 on
// success; a non-zero result tells the host the handler failed to produce a
// valid response.
type HandlerFunc func(request RequestHandle, response *ResponseWriter) int32

// Adapter is the plugin-side view of the ServerAdapter a feature receives in
// FeatureInit. It lazily dials the host's brokered endpoints and keeps one
// RPC client per endpoint for the life of the plugin.
type Adapter struct {
	wire   ServerAdapter
	broker *goplugin.MuxBroker

	mu      sync.Mutex
	clients map[uint64]*rpc.Client
}

// NewAdapter wraps a wire adapter. Called by the plugin-side RPC server
// before handing the adapter to the feature implementation.
func NewAdapter(wire ServerAdapter, broker *goplugin.MuxBroker) *Adapter {
	return &Adapter{
		wire:    wire,
		broker:  broker,
		clients: make(map[uint64]*rpc.Client),
	}
}

// Wire returns a copy of the raw adapter aggregate.
func (a *Adapter) Wire() ServerAdapter {
	return a.wire
}

// AddRoute registers handler for requests matching method and the exact
// path. Only valid while FeatureInit is on the stack; the host rejects later
// attempts. Returns 0 on success; non-zero is a router-defined registration
// failure, or negative if the host could not be reached.
func (a *Adapter) AddRoute(method HttpMethod, path string, handler HandlerFunc) int32 {
	if handler == nil {
		return InitFailed
	}

	id := a.broker.NextId()
	go a.broker.AcceptAndServe(id, &handlerServer{fn: handler, adapter: a})

	client, err := a.endpoint(a.wire.AddRoute)
	if err != nil {
		return InitFailed
	}
	args := AddRouteArgs{
		Router:    a.wire.Router,
		Method:    method,
		Path:      path,
		HandlerID: id,
	}
	var reply AddRouteReply
	if err := client.Call("Plugin.AddRoute", &args, &reply); err != nil {
		return InitFailed
	}
	return reply.Result
}

// Runtime returns a client for the host's runtime-resource extensions
// (request inspection, shared store). These ride the RuntimeResources
// endpoint and sit outside the frozen adapter contract.
func (a *Adapter) Runtime() *RuntimeClient {
	return &RuntimeClient{adapter: a}
}

// endpoint returns the cached RPC client for one of the adapter's brokered
// stream ids, dialing on first use.
func (a *Adapter) endpoint(stream uint64) (*rpc.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[stream]; ok {
		return c, nil
	}
	conn, err := a.broker.Dial(uint32(stream))
	if err != nil {
		return nil, fmt.Errorf("dial adapter endpoint %d: %w", stream, err)
	}
	c := rpc.NewClient(conn)
	a.clients[stream] = c
	return c, nil
}

// handlerServer serves one registered handler over the plugin's side of the
// broker. The host dials the handler's stream id and calls Handle once per
// matching request.
type handlerServer struct {
	fn      HandlerFunc
	adapter *Adapter
}

func (h *handlerServer) Handle(args *HandleArgs, reply *HandleReply) error {
	w := &ResponseWriter{adapter: h.adapter, handle: args.Response}
	reply.Result = h.fn(args.Request, w)
	return nil
}

// ResponseWriter mutates the response builder for one in-flight request.
// Write-only and additive: there is no read-back, and a failed mutation does
// not roll back earlier ones. Must not be retained past the handler call.
type ResponseWriter struct {
	adapter *Adapter
	handle  ResponseHandle
}

// Handle returns the underlying response handle.
func (w *ResponseWriter) Handle() ResponseHandle {
	return w.handle
}

// SetStatus sets the response status code. Status is always settable; no
// failure is signalled.
func (w *ResponseWriter) SetStatus(status int) {
	client, err := w.adapter.endpoint(w.adapter.wire.SetStatus)
	if err != nil {
		return
	}
	var reply MutateReply
	_ = client.Call("Plugin.SetStatus", &SetStatusArgs{Response: w.handle, Status: int32(status)}, &reply)
}

// SetHeader sets one response header. Returns 0 on success; non-zero is a
// runtime-defined failure such as an invalid header name.
func (w *ResponseWriter) SetHeader(name, value string) int32 {
	client, err := w.adapter.endpoint(w.adapter.wire.SetHeader)
	if err != nil {
		return HandlerFailed
	}
	args := SetHeaderArgs{Response: w.handle, Name: []byte(name), Value: []byte(value)}
	var reply MutateReply
	if err := client.Call("Plugin.SetHeader", &args, &reply); err != nil {
		return HandlerFailed
	}
	return reply.Result
}

// SetBody replaces the response body. Returns 0 on success; non-zero is a
// runtime-defined failure such as the body size limit being exceeded.
func (w *ResponseWriter) SetBody(body []byte) int32 {
	client, err := w.adapter.endpoint(w.adapter.wire.SetBody)
	if err != nil {
		return HandlerFailed
	}
	var reply MutateReply
	if err := client.Call("Plugin.SetBody", &SetBodyArgs{Response: w.handle, Body: body}, &reply); err != nil {
		return HandlerFailed
	}
	return reply.Result
}

// RuntimeClient exposes the runtime-side additions the host layers on the
// RuntimeResources endpoint. Unlike the adapter's four frozen calls these may
// grow over time.
type RuntimeClient struct {
	adapter *Adapter
}

// RequestInfo reads the method, path, query, headers and body of an
// in-flight request. Valid only during the handler call that received the
// handle.
func (rc *RuntimeClient) RequestInfo(request RequestHandle) (*RequestInfo, error) {
	client, err := rc.adapter.endpoint(rc.adapter.wire.RuntimeResources)
	if err != nil {
		return nil, err
	}
	args := RequestInfoArgs{Resources: rc.adapter.wire.RuntimeResources, Request: request}
	var info RequestInfo
	if err := client.Call("Plugin.RequestInfo", &args, &info); err != nil {
		return nil, fmt.Errorf("request info: %w", err)
	}
	return &info, nil
}

// StoreGet retrieves a value from the host's shared store.
func (rc *RuntimeClient) StoreGet(store, key string) (interface{}, bool, error) {
	client, err := rc.adapter.endpoint(rc.adapter.wire.RuntimeResources)
	if err != nil {
		return nil, false, err
	}
	args := StoreGetArgs{Resources: rc.adapter.wire.RuntimeResources, Store: store, Key: key}
	var reply StoreGetReply
	if err := client.Call("Plugin.StoreGet", &args, &reply); err != nil {
		return nil, false, fmt.Errorf("store get: %w", err)
	}
	return reply.Value, reply.Found, nil
}

// StoreSet writes a value to the host's shared store.
func (rc *RuntimeClient) StoreSet(store, key string, value interface{}) error {
	client, err := rc.adapter.endpoint(rc.adapter.wire.RuntimeResources)
	if err != nil {
		return err
	}
	args := StoreSetArgs{Resources: rc.adapter.wire.RuntimeResources, Store: store, Key: key, Value: value}
	var reply StoreSetReply
	if err := client.Call("Plugin.StoreSet", &args, &reply); err != nil {
		return fmt.Errorf("store set: %w", err)
	}
	return nil
}

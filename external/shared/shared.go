package shared

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// PluginName is the dispense key every feature plugin serves under.
const PluginName = "feature"

// HandshakeConfig is used to do a basic handshake between a plugin and host.
// If the handshake fails, a user-friendly error is shown. This prevents users
// from executing bad plugins or executing a plugin directory. It is a UX
// feature, not a security feature.
var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "FEATURE_PLUGIN",
	MagicCookieValue: "zupervisor",
}

// Feature is the interface a plugin binary implements: the three lifecycle
// entry points the host resolves after loading the plugin.
type Feature interface {
	// FeatureInit is called once after load with the server adapter.
	// Route registration is only valid while this call is on the stack.
	// Returns 0 on success; any non-zero result discards the plugin.
	FeatureInit(adapter *Adapter) int32

	// FeatureShutdown is called once before unload, after all in-flight
	// handler calls have completed. It must not call back into the adapter.
	FeatureShutdown()

	// FeatureVersion returns the plugin's version string.
	FeatureVersion() string
}

// FeatureClient is the host's view of a loaded plugin's entry points.
type FeatureClient interface {
	FeatureInit(adapter *ServerAdapter) int32
	FeatureShutdown()
	FeatureVersion() string
}

// FeatureRPC is the host-side RPC client for a plugin's lifecycle entry
// points. Transport failures degrade to the contract's sentinel values; they
// never propagate as errors or panics.
type FeatureRPC struct {
	client *rpc.Client
	broker *goplugin.MuxBroker
}

func (f *FeatureRPC) FeatureInit(adapter *ServerAdapter) int32 {
	var reply InitReply
	if err := f.client.Call("Plugin.FeatureInit", &InitArgs{Adapter: *adapter}, &reply); err != nil {
		return InitFailed
	}
	return reply.Result
}

func (f *FeatureRPC) FeatureShutdown() {
	var reply struct{}
	// A transport error here means the plugin process is already gone;
	// shutdown never fails loudly.
	_ = f.client.Call("Plugin.FeatureShutdown", struct{}{}, &reply)
}

func (f *FeatureRPC) FeatureVersion() string {
	var reply VersionReply
	if err := f.client.Call("Plugin.FeatureVersion", struct{}{}, &reply); err != nil {
		return VersionUnknown
	}
	return reply.Version
}

// Broker exposes the session's stream broker so the host can serve the
// adapter endpoints and dial registered handlers.
func (f *FeatureRPC) Broker() *goplugin.MuxBroker {
	return f.broker
}

// FeatureRPCServer is the plugin-side RPC server that FeatureRPC talks to,
// conforming to the requirements of net/rpc.
type FeatureRPCServer struct {
	Impl   Feature
	broker *goplugin.MuxBroker
}

func (s *FeatureRPCServer) FeatureInit(args *InitArgs, reply *InitReply) error {
	reply.Result = s.Impl.FeatureInit(NewAdapter(args.Adapter, s.broker))
	return nil
}

func (s *FeatureRPCServer) FeatureShutdown(args struct{}, reply *struct{}) error {
	s.Impl.FeatureShutdown()
	return nil
}

func (s *FeatureRPCServer) FeatureVersion(args struct{}, reply *VersionReply) error {
	reply.Version = s.Impl.FeatureVersion()
	return nil
}

// FeaturePlugin is the implementation of plugin.Plugin
//
// This must have two methods:
//
// 1. Server must return an RPC server for this plugin
// type. We construct a FeatureRPCServer for this.
//
// 2. Client must return an implementation of our interface that communicates
// over an RPC client. We return FeatureRPC for this.
type FeaturePlugin struct {
	// Impl Injection
	Impl Feature
}

func (p *FeaturePlugin) Server(b *goplugin.MuxBroker) (interface{}, error) {
	return &FeatureRPCServer{Impl: p.Impl, broker: b}, nil
}

func (FeaturePlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &FeatureRPC{client: c, broker: b}, nil
}

// PluginMap builds the dispense map for one feature implementation.
func PluginMap(impl Feature) map[string]goplugin.Plugin {
	return map[string]goplugin.Plugin{
		PluginName: &FeaturePlugin{Impl: impl},
	}
}

// ServeFeature blocks serving the given feature to the host process. Plugin
// binaries call this from main.
func ServeFeature(impl Feature) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(impl),
	})
}

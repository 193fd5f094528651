package external

import (
	"encoding/binary"
	"net/rpc"
	"os"
	"os/exec"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
	"github.com/zupervisor-project/zupervisor-go/internal/runtime"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// PluginState tracks where a plugin is in its lifecycle. Registration is
// only accepted in StateInitializing; handlers are only dispatched in
// StateActive; after StateShuttingDown begins the plugin is never called
// into again except for its shutdown entry point.
type PluginState int32

const (
	StateUnloaded PluginState = iota
	StateInitializing
	StateActive
	StateShuttingDown
)

// LoadedPlugin is one running feature plugin process.
type LoadedPlugin struct {
	name    string
	version string

	client  *goplugin.Client
	feature shared.FeatureClient
	broker  *goplugin.MuxBroker

	routerToken uint64
	resourcesID uint64

	state    atomic.Int32
	inflight sync.WaitGroup

	mu       sync.Mutex
	handlers map[uint32]*rpc.Client
}

func (p *LoadedPlugin) Name() string {
	return p.name
}

func (p *LoadedPlugin) Version() string {
	return p.version
}

func (p *LoadedPlugin) State() PluginState {
	return PluginState(p.state.Load())
}

func (p *LoadedPlugin) setState(s PluginState) {
	p.state.Store(int32(s))
}

// InvokeHandler calls a registered handler inside the plugin with the handle
// pair for one dispatch. The call blocks until the handler returns; the
// handler's own non-zero result codes pass through unchanged.
func (p *LoadedPlugin) InvokeHandler(handlerID uint32, request shared.RequestHandle, response shared.ResponseHandle) int32 {
	// Join the in-flight count before checking state: a dispatch that has
	// passed the state check must be visible to the stop path's Wait, or
	// shutdown could run while this call is still on its way into the plugin.
	p.inflight.Add(1)
	defer p.inflight.Done()
	if p.State() != StateActive {
		logger.Warnf("dropping dispatch to plugin %s in state %d", p.name, p.State())
		return shared.HandlerFailed
	}

	client, err := p.handlerClient(handlerID)
	if err != nil {
		logger.Errorf("failed to reach handler %d of plugin %s: %v", handlerID, p.name, err)
		return shared.HandlerFailed
	}
	var reply shared.HandleReply
	if err := client.Call("Plugin.Handle", &shared.HandleArgs{Request: request, Response: response}, &reply); err != nil {
		logger.Errorf("handler %d of plugin %s failed: %v", handlerID, p.name, err)
		return shared.HandlerFailed
	}
	return reply.Result
}

// handlerClient returns the cached RPC client for a handler's brokered
// stream id, dialing on first use.
func (p *LoadedPlugin) handlerClient(id uint32) (*rpc.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.handlers[id]; ok {
		return c, nil
	}
	conn, err := p.broker.Dial(id)
	if err != nil {
		return nil, err
	}
	c := rpc.NewClient(conn)
	p.handlers[id] = c
	return c, nil
}

var (
	hasPlugins bool
	loaded     []*LoadedPlugin
)

// StartFeaturePlugins launches every enabled plugin from the host
// configuration, drives its init entry point through the bridge, and applies
// the configured route concurrency limits.
func StartFeaturePlugins(cfg *config.Config, zCfg *config.ZupervisorConfig, table *router.Table, rt *runtime.Runtime) {
	var enabled []config.PluginRef
	for _, ref := range cfg.Plugins {
		if ref.IsEnabled() {
			enabled = append(enabled, ref)
		}
	}
	hasPlugins = len(enabled) > 0
	if !hasPlugins {
		logger.Tracef("no feature plugins configured")
		return
	}

	hclogger := hclog.New(&hclog.LoggerOptions{
		Name:   "feature",
		Output: os.Stdout,
		Level:  hclog.Debug,
	})

	for _, ref := range enabled {
		start(ref, hclogger, zCfg, table, rt)
	}

	applyLimits(cfg, table)
}

// applyLimits attaches the configured per-route concurrency limits to the
// routes plugins registered during init. Method names match
// case-insensitively.
func applyLimits(cfg *config.Config, table *router.Table) {
	for _, l := range cfg.Limits {
		method, ok := shared.MethodForName(strings.ToUpper(l.Method))
		if !ok {
			logger.Warnf("ignoring concurrency limit for unknown method %q", l.Method)
			continue
		}
		table.SetLimit(method, l.Path, l.Limit)
	}
}

func start(ref config.PluginRef, hclogger hclog.Logger, zCfg *config.ZupervisorConfig, table *router.Table, rt *runtime.Runtime) {
	pluginName := ref.Name
	logger.Debugf("loading feature plugin: %s", pluginName)
	pluginPath := path.Join(zCfg.PluginDir, "plugin-"+pluginName)

	// We're a host! Start by launching the plugin process.
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  shared.HandshakeConfig,
		Plugins:          shared.PluginMap(nil),
		Cmd:              exec.Command(pluginPath),
		Logger:           hclogger,
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	// Connect via RPC
	rpcClient, err := client.Client()
	if err != nil {
		logger.Errorf("failed to connect to plugin %s: %v", pluginName, err)
		client.Kill()
		return
	}

	// Request the plugin
	raw, err := rpcClient.Dispense(shared.PluginName)
	if err != nil {
		logger.Errorf("failed to dispense plugin %s: %v", pluginName, err)
		client.Kill()
		return
	}

	// Resolve the plugin's three lifecycle entry points. This feels like a
	// normal interface implementation but is in fact over an RPC connection.
	feature, ok := raw.(*shared.FeatureRPC)
	if !ok {
		logger.Errorf("plugin %s served an unexpected type %T", pluginName, raw)
		client.Kill()
		return
	}

	lp := &LoadedPlugin{
		name:        pluginName,
		client:      client,
		feature:     feature,
		broker:      feature.Broker(),
		routerToken: mintToken(),
		handlers:    make(map[uint32]*rpc.Client),
	}
	lp.setState(StateInitializing)

	adapter := serveAdapter(lp, table, rt)

	result := CallInit(feature.FeatureInit, adapter)
	if result != shared.ResultOK {
		// A failed init discards the plugin without calling its shutdown.
		logger.Errorf("plugin %s failed to initialise (result %d)", pluginName, result)
		table.RemovePlugin(pluginName)
		client.Kill()
		return
	}

	lp.version = CallVersion(feature.FeatureVersion)
	if ref.Version != "" && !strings.HasPrefix(lp.version, ref.Version) {
		logger.Warnf("plugin %s reports version %s, expected %s", pluginName, lp.version, ref.Version)
	}
	lp.setState(StateActive)
	loaded = append(loaded, lp)
	logger.Infof("loaded feature plugin %s (version %s)", pluginName, lp.version)
}

// serveAdapter allocates and serves the brokered endpoints for one plugin
// and returns the populated adapter aggregate.
func serveAdapter(lp *LoadedPlugin, table *router.Table, rt *runtime.Runtime) *shared.ServerAdapter {
	routerSvc := &routerService{plugin: lp, table: table}
	runtimeSvc := &runtimeService{plugin: lp, rt: rt}

	addRouteID := lp.broker.NextId()
	go lp.broker.AcceptAndServe(addRouteID, routerSvc)

	resourcesID := lp.broker.NextId()
	go lp.broker.AcceptAndServe(resourcesID, runtimeSvc)
	lp.resourcesID = uint64(resourcesID)

	statusID := lp.broker.NextId()
	go lp.broker.AcceptAndServe(statusID, runtimeSvc)
	headerID := lp.broker.NextId()
	go lp.broker.AcceptAndServe(headerID, runtimeSvc)
	bodyID := lp.broker.NextId()
	go lp.broker.AcceptAndServe(bodyID, runtimeSvc)

	return &shared.ServerAdapter{
		Router:           lp.routerToken,
		RuntimeResources: uint64(resourcesID),
		AddRoute:         uint64(addRouteID),
		SetStatus:        uint64(statusID),
		SetHeader:        uint64(headerID),
		SetBody:          uint64(bodyID),
	}
}

// StopFeaturePlugins shuts every plugin down in load order: flip the state
// so no new dispatches start, wait for in-flight handler calls to drain,
// drive the shutdown entry point, then release the process.
func StopFeaturePlugins(table *router.Table) {
	if !hasPlugins {
		return
	}
	for _, lp := range loaded {
		logger.Debugf("unloading feature plugin: %s", lp.name)
		lp.setState(StateShuttingDown)
		lp.inflight.Wait()
		CallShutdown(lp.feature.FeatureShutdown)
		lp.client.Kill()
		lp.setState(StateUnloaded)
		table.RemovePlugin(lp.name)
	}
	loaded = nil
	hasPlugins = false
}

// LoadedPlugins returns the currently loaded plugins.
func LoadedPlugins() []*LoadedPlugin {
	return loaded
}

// mintToken mints the opaque per-plugin token carried in the adapter's
// Router field.
func mintToken() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[:8])
}

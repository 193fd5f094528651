package router

import (
	"sync"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// Registration result codes returned to plugins through the addRoute
// endpoint. Zero is success; the non-zero meanings below are defined by this
// router, not by the boundary contract.
const (
	RegisterOK            int32 = 0
	ErrInvalidMethod      int32 = 1
	ErrEmptyPath          int32 = 2
	ErrDuplicateRoute     int32 = 3
	ErrRegistrationClosed int32 = 4
	ErrInvalidRouter      int32 = 5
)

// HandlerInvoker dispatches a registered handler inside the plugin that owns
// it. Implemented by the plugin loader.
type HandlerInvoker interface {
	Name() string
	InvokeHandler(handlerID uint32, request shared.RequestHandle, response shared.ResponseHandle) int32
}

// Route is one registered (method, path) binding.
type Route struct {
	Method    shared.HttpMethod
	Path      string
	Plugin    HandlerInvoker
	HandlerID uint32

	// Limit caps concurrent handler calls for this route; 0 is unlimited.
	Limit int
}

type routeKey struct {
	method shared.HttpMethod
	path   string
}

// Table is the exact-match route table. Registration happens on plugin init
// call stacks while lookups come from request dispatch, so all access is
// serialised here.
type Table struct {
	mu     sync.RWMutex
	routes map[routeKey]*Route
}

func NewTable() *Table {
	return &Table{routes: make(map[routeKey]*Route)}
}

// Register binds a handler to (method, path). Paths match exactly; there is
// no pattern syntax.
func (t *Table) Register(method shared.HttpMethod, path string, plugin HandlerInvoker, handlerID uint32) int32 {
	if !method.Known() {
		logger.Warnf("rejecting route with unknown method %d from plugin %s", method, plugin.Name())
		return ErrInvalidMethod
	}
	if path == "" {
		logger.Warnf("rejecting route with empty path from plugin %s", plugin.Name())
		return ErrEmptyPath
	}

	key := routeKey{method: method, path: path}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.routes[key]; ok {
		logger.Warnf("duplicate route %s %s from plugin %s (already registered by %s)",
			method, path, plugin.Name(), existing.Plugin.Name())
		return ErrDuplicateRoute
	}

	t.routes[key] = &Route{
		Method:    method,
		Path:      path,
		Plugin:    plugin,
		HandlerID: handlerID,
	}
	logger.Debugf("registered route %s %s -> plugin %s (handler %d)", method, path, plugin.Name(), handlerID)
	return RegisterOK
}

// Lookup finds the route for an exact (method, path) match.
func (t *Table) Lookup(method shared.HttpMethod, path string) (*Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[routeKey{method: method, path: path}]
	return r, ok
}

// SetLimit sets the concurrency limit for an already-registered route.
func (t *Table) SetLimit(method shared.HttpMethod, path string, limit int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.routes[routeKey{method: method, path: path}]; ok {
		r.Limit = limit
	}
}

// RemovePlugin drops every route owned by the named plugin. Called after the
// plugin has been shut down.
func (t *Table) RemovePlugin(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, r := range t.routes {
		if r.Plugin.Name() == name {
			delete(t.routes, key)
		}
	}
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

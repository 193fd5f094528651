package server

import (
	"io"
	"net/http"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/internal/ratelimiter"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
	"github.com/zupervisor-project/zupervisor-go/internal/runtime"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// Server dispatches inbound HTTP requests to plugin-registered routes.
type Server struct {
	Addr  string
	table *router.Table
	rt    *runtime.Runtime
}

// NewServer creates a new instance of Server.
func NewServer(zCfg *config.ZupervisorConfig, table *router.Table, rt *runtime.Runtime) *Server {
	return &Server{
		Addr:  ":" + zCfg.ServerPort,
		table: table,
		rt:    rt,
	}
}

// Start begins listening for HTTP requests. Blocks until the listener
// fails.
func (s *Server) Start() error {
	logger.Infof("server is listening on %s", s.Addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HandleRequest)
	return http.ListenAndServe(s.Addr, mux)
}

// HandleRequest services one request: resolve the route, allocate the
// handle pair, invoke the plugin handler, and write out the accumulated
// response. Handles die when this function returns.
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	method, ok := shared.MethodForName(r.Method)
	if !ok {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	route, ok := s.table.Lookup(method, r.URL.Path)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	if route.Limit > 0 {
		routeKey := method.String() + " " + route.Path
		if !ratelimiter.Global().CheckAndIncrement(routeKey, route.Limit) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		defer ratelimiter.Global().Decrement(routeKey)
	}

	request, response := s.rt.BeginExchange(method, r, body)
	defer s.rt.EndExchange(request, response)

	logger.Tracef("dispatching %s %s to plugin %s", method, r.URL.Path, route.Plugin.Name())
	result := route.Plugin.InvokeHandler(route.HandlerID, request, response)
	if result != shared.ResultOK {
		logger.Errorf("handler for %s %s returned %d", method, r.URL.Path, result)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	builder, ok := s.rt.Response(response)
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	builder.WriteTo(w)
}

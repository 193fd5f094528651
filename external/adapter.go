package external

import (
	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
	"github.com/zupervisor-project/zupervisor-go/internal/runtime"
	"github.com/zupervisor-project/zupervisor-go/internal/store"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// Host-side implementations of the adapter's brokered endpoints. One
// instance of each service exists per loaded plugin, so registration and
// resource calls can be attributed and phase-checked per plugin.

// routerService serves the adapter's addRoute endpoint.
type routerService struct {
	plugin *LoadedPlugin
	table  *router.Table
}

func (s *routerService) AddRoute(args *shared.AddRouteArgs, reply *shared.AddRouteReply) error {
	if args.Router != s.plugin.routerToken {
		logger.Warnf("plugin %s passed a bad router token", s.plugin.name)
		reply.Result = router.ErrInvalidRouter
		return nil
	}
	if s.plugin.State() != StateInitializing {
		logger.Warnf("plugin %s attempted registration outside its init phase", s.plugin.name)
		reply.Result = router.ErrRegistrationClosed
		return nil
	}
	reply.Result = s.table.Register(args.Method, args.Path, s.plugin, args.HandlerID)
	return nil
}

// runtimeService serves the adapter's three response-mutation endpoints plus
// the runtime-resource extensions (request inspection, shared store).
type runtimeService struct {
	plugin *LoadedPlugin
	rt     *runtime.Runtime
}

func (s *runtimeService) SetStatus(args *shared.SetStatusArgs, reply *shared.MutateReply) error {
	builder, ok := s.rt.Response(args.Response)
	if !ok {
		// Status is always settable within a handle's lifetime; a dead
		// handle means the plugin broke the lifetime rules.
		logger.Warnf("plugin %s set status on dead response handle %d", s.plugin.name, args.Response)
		return nil
	}
	builder.SetStatus(int(args.Status))
	return nil
}

func (s *runtimeService) SetHeader(args *shared.SetHeaderArgs, reply *shared.MutateReply) error {
	builder, ok := s.rt.Response(args.Response)
	if !ok {
		logger.Warnf("plugin %s set header on dead response handle %d", s.plugin.name, args.Response)
		reply.Result = runtime.ErrInvalidHandle
		return nil
	}
	reply.Result = builder.SetHeader(args.Name, args.Value)
	return nil
}

func (s *runtimeService) SetBody(args *shared.SetBodyArgs, reply *shared.MutateReply) error {
	builder, ok := s.rt.Response(args.Response)
	if !ok {
		logger.Warnf("plugin %s set body on dead response handle %d", s.plugin.name, args.Response)
		reply.Result = runtime.ErrInvalidHandle
		return nil
	}
	reply.Result = builder.SetBody(args.Body)
	return nil
}

func (s *runtimeService) RequestInfo(args *shared.RequestInfoArgs, reply *shared.RequestInfo) error {
	if args.Resources != s.plugin.resourcesID {
		logger.Warnf("plugin %s passed a bad resources token", s.plugin.name)
		return nil
	}
	reqCtx, ok := s.rt.Request(args.Request)
	if !ok {
		logger.Warnf("plugin %s inspected dead request handle %d", s.plugin.name, args.Request)
		return nil
	}
	*reply = *reqCtx.Info()
	return nil
}

func (s *runtimeService) StoreGet(args *shared.StoreGetArgs, reply *shared.StoreGetReply) error {
	if args.Resources != s.plugin.resourcesID {
		logger.Warnf("plugin %s passed a bad resources token", s.plugin.name)
		return nil
	}
	reply.Value, reply.Found = store.Open(args.Store).GetValue(args.Key)
	return nil
}

func (s *runtimeService) StoreSet(args *shared.StoreSetArgs, reply *shared.StoreSetReply) error {
	if args.Resources != s.plugin.resourcesID {
		logger.Warnf("plugin %s passed a bad resources token", s.plugin.name)
		reply.Result = runtime.ErrInvalidHandle
		return nil
	}
	store.Open(args.Store).StoreValue(args.Key, args.Value)
	reply.Result = runtime.MutateOK
	return nil
}

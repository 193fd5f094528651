package external

import (
	"testing"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
)

func TestInvokeHandler_RequiresActiveState(t *testing.T) {
	for _, state := range []PluginState{StateUnloaded, StateInitializing, StateShuttingDown} {
		lp := newTestPlugin("test", state)
		if got := lp.InvokeHandler(1, 1, 2); got != shared.HandlerFailed {
			t.Errorf("state %d: InvokeHandler = %d, want %d", state, got, shared.HandlerFailed)
		}
	}
}

func TestApplyLimits(t *testing.T) {
	table := router.NewTable()
	lp := newTestPlugin("test", StateInitializing)
	svc := &routerService{plugin: lp, table: table}
	var reply shared.AddRouteReply
	_ = svc.AddRoute(&shared.AddRouteArgs{Router: 42, Method: shared.MethodGet, Path: "/health", HandlerID: 1}, &reply)

	cfg := &config.Config{Limits: []config.ConcurrencyLimit{
		{Method: "get", Path: "/health", Limit: 3},
		{Method: "BREW", Path: "/health", Limit: 9},
	}}
	applyLimits(cfg, table)

	route, ok := table.Lookup(shared.MethodGet, "/health")
	if !ok {
		t.Fatal("route not registered")
	}
	if route.Limit != 3 {
		t.Errorf("Limit = %d, want 3", route.Limit)
	}
}

func TestMintToken(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		tok := mintToken()
		if tok == 0 {
			t.Fatal("minted a zero token")
		}
		if seen[tok] {
			t.Fatal("minted a duplicate token")
		}
		seen[tok] = true
	}
}

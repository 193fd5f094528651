package router

import (
	"testing"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

type stubInvoker struct {
	name string
}

func (s *stubInvoker) Name() string { return s.name }

func (s *stubInvoker) InvokeHandler(handlerID uint32, request shared.RequestHandle, response shared.ResponseHandle) int32 {
	return shared.ResultOK
}

func TestRegisterAndLookup(t *testing.T) {
	table := NewTable()
	p := &stubInvoker{name: "health"}

	if got := table.Register(shared.MethodGet, "/health", p, 7); got != RegisterOK {
		t.Fatalf("Register = %d, want %d", got, RegisterOK)
	}
	route, ok := table.Lookup(shared.MethodGet, "/health")
	if !ok {
		t.Fatal("Lookup failed for registered route")
	}
	if route.HandlerID != 7 || route.Plugin != p {
		t.Errorf("route = %+v", route)
	}
}

func TestRegisterRejectsUnknownMethod(t *testing.T) {
	table := NewTable()
	p := &stubInvoker{name: "health"}
	if got := table.Register(shared.HttpMethod(42), "/health", p, 1); got != ErrInvalidMethod {
		t.Errorf("Register = %d, want %d", got, ErrInvalidMethod)
	}
	if got := table.Register(shared.HttpMethod(-1), "/health", p, 1); got != ErrInvalidMethod {
		t.Errorf("Register = %d, want %d", got, ErrInvalidMethod)
	}
	if table.Len() != 0 {
		t.Error("rejected routes must not be stored")
	}
}

func TestRegisterRejectsEmptyPath(t *testing.T) {
	table := NewTable()
	p := &stubInvoker{name: "health"}
	if got := table.Register(shared.MethodGet, "", p, 1); got != ErrEmptyPath {
		t.Errorf("Register = %d, want %d", got, ErrEmptyPath)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	table := NewTable()
	first := &stubInvoker{name: "first"}
	second := &stubInvoker{name: "second"}

	if got := table.Register(shared.MethodGet, "/health", first, 1); got != RegisterOK {
		t.Fatalf("Register = %d", got)
	}
	if got := table.Register(shared.MethodGet, "/health", second, 2); got != ErrDuplicateRoute {
		t.Errorf("duplicate Register = %d, want %d", got, ErrDuplicateRoute)
	}

	// The first registration wins.
	route, _ := table.Lookup(shared.MethodGet, "/health")
	if route.Plugin.Name() != "first" {
		t.Errorf("route owner = %s, want first", route.Plugin.Name())
	}

	// Same path, different method is a distinct route.
	if got := table.Register(shared.MethodPost, "/health", second, 2); got != RegisterOK {
		t.Errorf("Register with different method = %d, want %d", got, RegisterOK)
	}
}

func TestLookupIsExactMatch(t *testing.T) {
	table := NewTable()
	p := &stubInvoker{name: "health"}
	table.Register(shared.MethodGet, "/health", p, 1)

	for _, path := range []string{"/health/", "/Health", "/health/live", "/"} {
		if _, ok := table.Lookup(shared.MethodGet, path); ok {
			t.Errorf("Lookup(%q) matched, want miss", path)
		}
	}
	if _, ok := table.Lookup(shared.MethodPost, "/health"); ok {
		t.Error("Lookup with wrong method matched")
	}
}

func TestRemovePlugin(t *testing.T) {
	table := NewTable()
	keep := &stubInvoker{name: "keep"}
	drop := &stubInvoker{name: "drop"}

	table.Register(shared.MethodGet, "/keep", keep, 1)
	table.Register(shared.MethodGet, "/drop", drop, 2)
	table.Register(shared.MethodPost, "/drop", drop, 3)

	table.RemovePlugin("drop")

	if table.Len() != 1 {
		t.Fatalf("Len = %d, want 1", table.Len())
	}
	if _, ok := table.Lookup(shared.MethodGet, "/keep"); !ok {
		t.Error("surviving plugin's route was removed")
	}
	if _, ok := table.Lookup(shared.MethodGet, "/drop"); ok {
		t.Error("removed plugin's route still resolves")
	}
}

func TestSetLimit(t *testing.T) {
	table := NewTable()
	p := &stubInvoker{name: "health"}
	table.Register(shared.MethodGet, "/health", p, 1)

	table.SetLimit(shared.MethodGet, "/health", 5)
	route, _ := table.Lookup(shared.MethodGet, "/health")
	if route.Limit != 5 {
		t.Errorf("Limit = %d, want 5", route.Limit)
	}

	// Limits for unregistered routes are ignored.
	table.SetLimit(shared.MethodGet, "/missing", 5)
	if table.Len() != 1 {
		t.Error("SetLimit must not create routes")
	}
}

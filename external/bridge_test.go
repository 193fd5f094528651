package external

import (
	"testing"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

func TestCallInit_AbsentInitFn(t *testing.T) {
	adapter := &shared.ServerAdapter{}
	if result := CallInit(nil, adapter); result != shared.InitFailed {
		t.Errorf("CallInit(nil, adapter) = %d, want %d", result, shared.InitFailed)
	}
}

func TestCallInit_AbsentAdapter(t *testing.T) {
	calls := 0
	initFn := func(adapter *shared.ServerAdapter) int32 {
		calls++
		return 0
	}
	if result := CallInit(initFn, nil); result != shared.InitFailed {
		t.Errorf("CallInit(fn, nil) = %d, want %d", result, shared.InitFailed)
	}
	if calls != 0 {
		t.Errorf("init invoked %d times with absent adapter, want 0", calls)
	}
}

func TestCallInit_InvokesExactlyOnce(t *testing.T) {
	adapter := &shared.ServerAdapter{Router: 0xdead, AddRoute: 7}

	for _, want := range []int32{0, 1, -1} {
		calls := 0
		var received *shared.ServerAdapter
		initFn := func(a *shared.ServerAdapter) int32 {
			calls++
			received = a
			return want
		}

		if result := CallInit(initFn, adapter); result != want {
			t.Errorf("CallInit = %d, want %d", result, want)
		}
		if calls != 1 {
			t.Errorf("init invoked %d times, want 1", calls)
		}
		if received != adapter {
			t.Error("adapter pointer was not passed through unchanged")
		}
	}
}

func TestCallInit_ContainsPanic(t *testing.T) {
	initFn := func(adapter *shared.ServerAdapter) int32 {
		panic("misbehaving plugin")
	}
	if result := CallInit(initFn, &shared.ServerAdapter{}); result != shared.InitFailed {
		t.Errorf("CallInit with panicking fn = %d, want %d", result, shared.InitFailed)
	}
}

func TestCallShutdown_Absent(t *testing.T) {
	// Must not panic or fail the calling goroutine.
	CallShutdown(nil)
}

func TestCallShutdown_InvokesExactlyOnce(t *testing.T) {
	calls := 0
	CallShutdown(func() { calls++ })
	if calls != 1 {
		t.Errorf("shutdown invoked %d times, want 1", calls)
	}
}

func TestCallShutdown_ContainsPanic(t *testing.T) {
	CallShutdown(func() { panic("teardown crash") })
}

func TestCallVersion_Absent(t *testing.T) {
	if version := CallVersion(nil); version != shared.VersionUnknown {
		t.Errorf("CallVersion(nil) = %q, want %q", version, shared.VersionUnknown)
	}
}

func TestCallVersion_ReturnsSuppliedStringUnmodified(t *testing.T) {
	for _, want := range []string{"1.0.0", "", "2.3.4-rc.1+meta", "v\x00null"} {
		got := CallVersion(func() string { return want })
		if got != want {
			t.Errorf("CallVersion = %q, want %q", got, want)
		}
	}
}

func TestCallVersion_ContainsPanic(t *testing.T) {
	if version := CallVersion(func() string { panic("no version") }); version != shared.VersionUnknown {
		t.Errorf("CallVersion with panicking fn = %q, want %q", version, shared.VersionUnknown)
	}
}

package external

import (
	"github.com/zupervisor-project/zupervisor-go/external/shared"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// The bridge is the single indirection point through which the host invokes
// a plugin's three lifecycle entry points. Every call site goes through here
// so that pointer validation, diagnostics and panic containment live in one
// place: no panic ever crosses into or out of a plugin through the bridge,
// and every failure is an integer or sentinel value, never an abnormal
// control transfer.

// InitFunc, ShutdownFunc and VersionFunc are the resolved forms of a
// plugin's exported lifecycle entry points. They reference code, not state,
// and are safely copyable.
type (
	InitFunc     func(adapter *shared.ServerAdapter) int32
	ShutdownFunc func()
	VersionFunc  func() string
)

// CallInit invokes a plugin's featureInit with the given adapter. If either
// argument is absent nothing is invoked and the failure sentinel is
// returned; otherwise the function runs exactly once and its result is
// returned verbatim for the loader to interpret.
func CallInit(initFn InitFunc, adapter *shared.ServerAdapter) (result int32) {
	if initFn == nil {
		logger.Errorf("bridge: featureInit is absent")
		return shared.InitFailed
	}
	if adapter == nil {
		logger.Errorf("bridge: adapter is absent")
		return shared.InitFailed
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("bridge: panic during featureInit: %v", r)
			result = shared.InitFailed
		}
	}()

	logger.Debugf("bridge: calling featureInit (router=%#x addRoute=%d)", adapter.Router, adapter.AddRoute)
	result = initFn(adapter)
	logger.Debugf("bridge: featureInit returned %d", result)
	return result
}

// CallShutdown invokes a plugin's featureShutdown. An absent function is a
// diagnostic-only no-op: shutdown typically runs during host teardown, where
// failing loudly would itself be harmful.
func CallShutdown(shutdownFn ShutdownFunc) {
	if shutdownFn == nil {
		logger.Warnf("bridge: featureShutdown is absent")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("bridge: panic during featureShutdown: %v", r)
		}
	}()

	logger.Debugf("bridge: calling featureShutdown")
	shutdownFn()
}

// CallVersion invokes a plugin's featureVersion, returning the supplied
// string unmodified. An absent function yields the "unknown" sentinel.
func CallVersion(versionFn VersionFunc) (version string) {
	if versionFn == nil {
		logger.Warnf("bridge: featureVersion is absent")
		return shared.VersionUnknown
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("bridge: panic during featureVersion: %v", r)
			version = shared.VersionUnknown
		}
	}()

	logger.Debugf("bridge: calling featureVersion")
	version = versionFn()
	logger.Debugf("bridge: featureVersion returned %q", version)
	return version
}

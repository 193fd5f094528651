package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

var Version = "1.1.0"

const storeName = "echo"

var logger = hclog.New(&hclog.LoggerOptions{
	Level:      hclog.Trace,
	Output:     os.Stderr,
	JSONFormat: true,
})

// EchoFeature mirrors request bodies back to the caller and keeps a running
// count of served requests in the host's shared store.
type EchoFeature struct {
	logger  hclog.Logger
	runtime *shared.RuntimeClient
}

func main() {
	logger.Trace("echo plugin initialising", "version", Version)
	shared.ServeFeature(&EchoFeature{logger: logger})
}

func (e *EchoFeature) FeatureInit(adapter *shared.Adapter) int32 {
	e.runtime = adapter.Runtime()

	if result := adapter.AddRoute(shared.MethodPost, "/echo", e.handleEcho); result != shared.ResultOK {
		e.logger.Error("failed to register echo route", "result", result)
		return result
	}
	if result := adapter.AddRoute(shared.MethodGet, "/echo/stats", e.handleStats); result != shared.ResultOK {
		e.logger.Error("failed to register stats route", "result", result)
		return result
	}
	return shared.ResultOK
}

func (e *EchoFeature) FeatureShutdown() {
	e.logger.Info("echo plugin shutting down")
}

func (e *EchoFeature) FeatureVersion() string {
	return Version
}

func (e *EchoFeature) handleEcho(request shared.RequestHandle, response *shared.ResponseWriter) int32 {
	info, err := e.runtime.RequestInfo(request)
	if err != nil {
		e.logger.Error("failed to read request", "error", err)
		return 1
	}

	response.SetStatus(200)
	if contentType, ok := info.Headers["Content-Type"]; ok {
		if result := response.SetHeader("Content-Type", contentType); result != shared.ResultOK {
			return result
		}
	}
	if result := response.SetHeader("X-Echo-Path", info.Path); result != shared.ResultOK {
		return result
	}
	if result := response.SetBody(info.Body); result != shared.ResultOK {
		return result
	}

	e.bumpCount()
	return shared.ResultOK
}

func (e *EchoFeature) handleStats(request shared.RequestHandle, response *shared.ResponseWriter) int32 {
	count := e.currentCount()
	response.SetStatus(200)
	if result := response.SetHeader("Content-Type", "text/plain"); result != shared.ResultOK {
		return result
	}
	return response.SetBody([]byte(fmt.Sprintf("served %d", count)))
}

func (e *EchoFeature) currentCount() int {
	raw, found, err := e.runtime.StoreGet(storeName, "served")
	if err != nil || !found {
		return 0
	}
	// Numbers round-trip the store as float64.
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (e *EchoFeature) bumpCount() {
	if err := e.runtime.StoreSet(storeName, "served", e.currentCount()+1); err != nil {
		e.logger.Warn("failed to update served count", "error", err)
	}
}

package main

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/zupervisor-project/zupervisor-go/external/shared"
)

var Version = "1.0.0"

var logger = hclog.New(&hclog.LoggerOptions{
	Level:      hclog.Trace,
	Output:     os.Stderr,
	JSONFormat: true,
})

// HealthFeature serves a liveness endpoint for the host.
type HealthFeature struct {
	logger hclog.Logger
}

func main() {
	logger.Trace("health plugin initialising", "version", Version)
	shared.ServeFeature(&HealthFeature{logger: logger})
}

func (h *HealthFeature) FeatureInit(adapter *shared.Adapter) int32 {
	if result := adapter.AddRoute(shared.MethodGet, "/health", handleHealth); result != shared.ResultOK {
		h.logger.Error("failed to register health route", "result", result)
		return result
	}
	h.logger.Info("health endpoint registered", "path", "/health")
	return shared.ResultOK
}

func (h *HealthFeature) FeatureShutdown() {
	h.logger.Info("health plugin shutting down")
}

func (h *HealthFeature) FeatureVersion() string {
	return Version
}

func handleHealth(request shared.RequestHandle, response *shared.ResponseWriter) int32 {
	response.SetStatus(200)
	return response.SetBody([]byte("ok"))
}

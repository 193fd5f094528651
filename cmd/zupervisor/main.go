package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/zupervisor-project/zupervisor-go/external"
	"github.com/zupervisor-project/zupervisor-go/internal/config"
	"github.com/zupervisor-project/zupervisor-go/internal/router"
	"github.com/zupervisor-project/zupervisor-go/internal/runtime"
	"github.com/zupervisor-project/zupervisor-go/internal/server"
	"github.com/zupervisor-project/zupervisor-go/internal/store"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

func main() {
	logger.Infof("starting zupervisor")

	zCfg := config.LoadZupervisorConfig()

	if len(os.Args) < 2 {
		logger.Errorf("config directory path must be provided as the first argument")
		os.Exit(1)
	}
	configDir := os.Args[1]
	if info, err := os.Stat(configDir); os.IsNotExist(err) || (info != nil && !info.IsDir()) {
		logger.Errorf("specified path is not a valid directory: %s", configDir)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	store.InitProvider()
	store.Preload(configDir, cfg)

	table := router.NewTable()
	rt := runtime.New()

	external.StartFeaturePlugins(cfg, zCfg, table, rt)
	logger.Infof("registered %d routes from %d plugins", table.Len(), len(external.LoadedPlugins()))

	// Plugins must be shut down in an orderly fashion before the process
	// exits, so the server runs aside a signal wait.
	srv := server.NewServer(zCfg, table, rt)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Errorf("server error: %v", err)
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	}

	external.StopFeaturePlugins(table)
}

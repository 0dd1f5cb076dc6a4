// Main package for the abci-hub reference server: the four-queue dispatch
// core fronting an in-memory key-value store application.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sessamekesh/abci-hub/internal"
	"github.com/sessamekesh/abci-hub/internal/config"
	"github.com/sessamekesh/abci-hub/internal/kvstore"
	"github.com/sessamekesh/abci-hub/pkg/buffer"
	"github.com/sessamekesh/abci-hub/pkg/metrics"
	"github.com/sessamekesh/abci-hub/pkg/middleware"
	"github.com/sessamekesh/abci-hub/pkg/server"
)

func main() {
	logger := zap.Must(zap.NewProduction())
	if os.Getenv("APP_ENV") != "production" {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	//
	// Flags
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	tcpAddress := flag.String("tcp", "", "TCP address to listen on (overrides config)")
	unixSocketPath := flag.String("unix", "", "Unix domain socket path to listen on (overrides config)")
	metricsAddress := flag.String("metrics", "", "Address for the prometheus /metrics endpoint (overrides config)")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		logger.Error("Failed to load config", zap.Error(cfgErr))
		return
	}
	if *unixSocketPath != "" {
		cfg.UnixSocketPath = *unixSocketPath
		cfg.TcpAddress = ""
	}
	if *tcpAddress != "" {
		cfg.TcpAddress = *tcpAddress
		cfg.UnixSocketPath = ""
	}
	if *metricsAddress != "" {
		cfg.MetricsAddress = *metricsAddress
	}

	//
	// Dispatch engine over the sample application
	registry := prometheus.NewRegistry()

	engine := buffer.CreateEngine(kvstore.CreateStore(), buffer.EngineConfig{
		ConsensusQueueLength: cfg.Queues.Consensus,
		MempoolQueueLength:   cfg.Queues.Mempool,
		SnapshotQueueLength:  cfg.Queues.Snapshot,
		InfoQueueLength:      cfg.Queues.Info,
		Logger:               logger,
		Metrics:              metrics.NewEngineMetrics(registry),
	})
	consensus, mempool, snapshot, info := engine.Split()

	// Mirror the usual composition: consensus traffic is never shed or
	// limited, mempool admission sheds under saturation, info traffic sheds
	// and is rate limited.
	submitters := server.Submitters{
		Consensus: consensus,
		Mempool:   middleware.CreateLoadShed(mempool, cfg.Mempool.MaxPending),
		Snapshot:  snapshot,
		Info: middleware.CreateRateLimit(
			middleware.CreateLoadShed(info, cfg.Info.MaxPending),
			cfg.Info.RatePerSecond, cfg.Info.RateBurst, false),
	}

	connStore := internal.CreateConnStore(cfg.MaxConnections)
	serverMetrics := metrics.NewServerMetrics(registry)

	streamServer, serverErr := server.CreateStreamServer(submitters, server.StreamServerParams{
		TcpAddress:     cfg.TcpAddress,
		UnixSocketPath: cfg.UnixSocketPath,
		MaxFrameSize:   cfg.MaxFrameSize,
		MaxConnections: cfg.MaxConnections,
		Logger:         logger,
		Metrics:        serverMetrics,
		ConnStore:      connStore,
	})
	if serverErr != nil {
		logger.Error("Failed to create stream server", zap.Error(serverErr))
		return
	}

	shutdownCtx, shutdownRelease := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer shutdownRelease()

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(shutdownCtx); err != nil {
			logger.Error("Dispatch engine terminated with application error", zap.Error(err))
			shutdownRelease()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		streamServer.Start(shutdownCtx)
	}()

	if cfg.Websocket.Enabled {
		wsServer, wsErr := server.CreateWebsocketServer(submitters, server.WebsocketServerParams{
			ListenAddress:      cfg.Websocket.ListenAddress,
			ListenEndpoint:     cfg.Websocket.Endpoint,
			AllowAllHosts:      true,
			MaxReadMessageSize: cfg.MaxFrameSize,
			Logger:             logger,
			Metrics:            serverMetrics,
			ConnStore:          connStore,
		})
		if wsErr != nil {
			logger.Error("Failed to create WebSocket server", zap.Error(wsErr))
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			wsServer.Start(shutdownCtx)
		}()
	}

	if cfg.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddress,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Serving prometheus metrics", zap.String("address", cfg.MetricsAddress))
			metricsServer.ListenAndServe()
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-shutdownCtx.Done()
			metricsServer.Close()
		}()
	}

	wg.Wait()
}

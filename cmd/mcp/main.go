package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/elC0mpa/aws-spot/cmd/mcp/tools"
	"github.com/elC0mpa/aws-spot/internal/logging"
	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/service/properties"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := LoadConfig()

	spotCfg, err := cfg.Spot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, logs go to stderr
	logger := logging.New(spotCfg.Logging.Level, spotCfg.Logging.Format, os.Stderr)

	reg := prometheus.NewRegistry()
	spotMetrics := metrics.NewSpot(reg)
	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Warn().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	store, err := properties.Open(context.Background(), spotCfg.Store.Driver, spotCfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open runtime property store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	s := server.NewMCPServer(
		"aws-spot-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	tools.RegisterSpotTools(s, tools.Options{
		Config:      spotCfg,
		DefaultNode: cfg.DefaultNode,
		Logger:      logger,
		Metrics:     spotMetrics,
		Store:       store,
	})

	if err := server.ServeStdio(s); err != nil {
		store.Close()
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

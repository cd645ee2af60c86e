package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/elC0mpa/aws-spot/internal/config"
	"github.com/elC0mpa/aws-spot/internal/logging"
	"github.com/elC0mpa/aws-spot/internal/metrics"
	"github.com/elC0mpa/aws-spot/model"
	awsconfig "github.com/elC0mpa/aws-spot/service/aws/config"
	awsec2 "github.com/elC0mpa/aws-spot/service/aws/ec2"
	awssts "github.com/elC0mpa/aws-spot/service/aws/sts"
	"github.com/elC0mpa/aws-spot/service/flag"
	"github.com/elC0mpa/aws-spot/service/orchestrator"
	"github.com/elC0mpa/aws-spot/service/properties"
	"github.com/elC0mpa/aws-spot/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	flagService := flag.NewService()
	flags, err := flagService.GetParsedFlags()
	if errors.Is(err, flag.ErrNoCommand) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		bootLogger := logging.New("info", "console", os.Stderr)
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyFlagOverrides(cfg, flags)

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr).
		With().Str("node", flags.Node).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Output == model.OutputTable {
		utils.DrawBanner(os.Stdout)
		utils.StartSpinner(os.Stderr, "working on "+flags.Command)
	}

	cfgService := awsconfig.NewService(cfg.AWS.MaxAttempts)
	awsCfg, err := cfgService.GetAWSCfg(ctx, cfg.AWS.Region, cfg.AWS.Profile)
	if err != nil {
		utils.StopSpinner()
		logger.Fatal().Err(err).Msg("Failed to configure AWS")
	}

	store, err := properties.Open(ctx, cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		utils.StopSpinner()
		logger.Fatal().Err(err).Msg("Failed to open runtime property store")
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	spotMetrics := metrics.NewSpot(reg)
	if cfg.Metrics.Address != "" {
		go serveMetrics(cfg.Metrics.Address, reg, logger)
	}

	ec2Service := awsec2.NewService(awsCfg, cfg.AWS.ProductDescription)
	stsService := awssts.NewService(awsCfg)
	nodeProperties := store.Node(flags.Node)

	provisioner := orchestrator.NewProvisioner(cfg, ec2Service, ec2Service, stsService, nodeProperties, logger, spotMetrics)
	orchestratorService := orchestrator.NewService(stsService, provisioner, nodeProperties, cfg, logger, os.Stdout)

	if err := orchestratorService.Orchestrate(ctx, flags); err != nil {
		utils.StopSpinner()
		store.Close()
		logger.Fatal().Err(err).Str("command", flags.Command).Msg("Command failed")
	}
}

// applyFlagOverrides lets the command line win over the configuration file
func applyFlagOverrides(cfg *config.Config, flags model.Flags) {
	if flags.Region != "" {
		cfg.AWS.Region = flags.Region
	}
	if flags.Profile != "" {
		cfg.AWS.Profile = flags.Profile
	}
}

func serveMetrics(address string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	logger.Debug().Str("address", address).Msg("Serving metrics")
	if err := http.ListenAndServe(address, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn().Err(err).Msg("Metrics endpoint stopped")
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"netmon/internal/classify"
	"netmon/internal/cli"
	"netmon/internal/config"
	"netmon/internal/logging"
	"netmon/internal/metrics"
	"netmon/internal/monitor"
	"netmon/internal/probe"
	"netmon/internal/statusapi"
	"netmon/internal/transport"
	"netmon/internal/ui"
)

const version = "0.1.0"

func main() {
	var (
		flagHosts         cli.OptionalStringList
		flagInterval      cli.OptionalDuration
		flagTimeout       cli.OptionalDuration
		flagProbeMode     cli.OptionalString
		flagMetricsListen cli.OptionalString
		flagStatusListen  cli.OptionalString
		flagNoUI          cli.OptionalBool
		flagLogLevel      cli.OptionalString
		flagVersion       bool
		flagVersionShort  bool
	)

	flag.Var(&flagHosts, "hosts", "comma-separated probe hosts (override config)")
	flag.Var(&flagInterval, "interval", "check interval (override config)")
	flag.Var(&flagInterval, "i", "check interval (override config)")
	flag.Var(&flagTimeout, "timeout", "probe timeout (override config)")
	flag.Var(&flagTimeout, "t", "probe timeout (override config)")
	flag.Var(&flagProbeMode, "probe-mode", "probe mode: http|tcp|icmp")
	flag.Var(&flagMetricsListen, "metrics-listen", "metrics listen address (e.g. :9100)")
	flag.Var(&flagStatusListen, "status-listen", "status API listen address (e.g. :8080)")
	flag.Var(&flagNoUI, "no-ui", "disable TUI (log only)")
	flag.Var(&flagLogLevel, "log-level", "log level: debug|info|warn|error")
	flag.BoolVar(&flagVersion, "version", false, "show version")
	flag.BoolVar(&flagVersionShort, "v", false, "show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] [config-file]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flagVersion || flagVersionShort {
		fmt.Fprintf(os.Stdout, "netmon version %s\n", version)
		return
	}

	configPath := ""
	if args := flag.Args(); len(args) > 0 {
		configPath = args[0]
	}

	overrides := buildOverrides(flagHosts, flagInterval, flagTimeout, flagProbeMode, flagMetricsListen, flagStatusListen, flagNoUI, flagLogLevel)

	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("monitor exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	hosts, err := probe.NewHostSet(cfg.Hosts)
	if err != nil {
		return err
	}

	watcher := transport.NewInterfaceWatcher(cfg.TransportPoll.Duration(), logger.Named("transport"))
	watcher.Start()
	defer watcher.Stop()

	opts := monitor.Options{
		Interval: cfg.Interval.Duration(),
		Timeout:  cfg.Timeout.Duration(),
		Thresholds: classify.Thresholds{
			Slow:     cfg.SlowThreshold.Duration(),
			Unstable: cfg.UnstableThreshold,
		},
		Logger: logger.Named("monitor"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		opts.Recorder = metrics.NewRecorder(registry)
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsListen, registry); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	coord := monitor.New(buildProber(cfg.ProbeMode), hosts, watcher, opts)
	if err := coord.Start(); err != nil {
		return err
	}
	defer coord.Stop()

	if cfg.StatusListen != "" {
		api := statusapi.New(coord, logger.Named("statusapi"))
		go func() {
			if err := statusapi.Serve(ctx, cfg.StatusListen, api); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
	}

	if !cfg.UIDisable {
		return ui.New(coord, hosts.Hosts()).Run(ctx)
	}

	sub := coord.Subscribe(func(status classify.Status) {
		logger.Info("status changed", zap.String("status", string(status)))
	})
	defer coord.Unsubscribe(sub)

	<-ctx.Done()
	return ctx.Err()
}

func buildProber(mode config.ProbeMode) probe.Prober {
	switch mode {
	case config.ProbeModeTCP:
		return probe.NewTCPProber()
	case config.ProbeModeICMP:
		// Raw sockets need privileges; degrade to HTTP when denied.
		return probe.NewFallbackProber(probe.NewICMPProber(), probe.NewHTTPProber())
	default:
		return probe.NewHTTPProber()
	}
}

func buildOverrides(
	hosts cli.OptionalStringList,
	interval cli.OptionalDuration,
	timeout cli.OptionalDuration,
	probeMode cli.OptionalString,
	metricsListen cli.OptionalString,
	statusListen cli.OptionalString,
	noUI cli.OptionalBool,
	logLevel cli.OptionalString,
) config.CLIOverrides {
	overrides := config.CLIOverrides{}

	if v, ok := hosts.Value(); ok && len(v) > 0 {
		overrides.Hosts = v
	}
	if v, ok := interval.Value(); ok {
		value := v
		overrides.Interval = &value
	}
	if v, ok := timeout.Value(); ok {
		value := v
		overrides.Timeout = &value
	}
	if v, ok := probeMode.Value(); ok && v != "" {
		value := config.ProbeMode(v)
		overrides.ProbeMode = &value
	}
	if v, ok := metricsListen.Value(); ok && v != "" {
		value := v
		overrides.MetricsListen = &value
	}
	if v, ok := statusListen.Value(); ok && v != "" {
		value := v
		overrides.StatusListen = &value
	}
	if v, ok := noUI.Value(); ok {
		value := v
		overrides.UIDisable = &value
	}
	if v, ok := logLevel.Value(); ok && v != "" {
		value := v
		overrides.LogLevel = &value
	}

	return overrides
}

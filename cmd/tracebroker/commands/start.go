package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/tracebroker/internal/logger"
	"github.com/marmos91/tracebroker/internal/operator"
	"github.com/marmos91/tracebroker/internal/session"
	"github.com/marmos91/tracebroker/internal/telemetry"
	"github.com/marmos91/tracebroker/pkg/config"
	"github.com/marmos91/tracebroker/pkg/metrics"
	promMetrics "github.com/marmos91/tracebroker/pkg/metrics/prometheus"
	"github.com/marmos91/tracebroker/pkg/server"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tracebroker server",
	Long: `Start the tracebroker server in the foreground.

tracebroker has no daemon mode: it reads operator commands (connect, list,
kick, config, stop) from its own stdin and writes tagged output lines to
stdout until a stop command or SIGINT/SIGTERM is received.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/tracebroker/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = "tracebroker"
	telemetryCfg.ServiceVersion = Version
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := cfg.Profiling
	profilingCfg.ServiceName = "tracebroker"
	profilingCfg.ServiceVersion = Version
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Profiling.Endpoint)
	}

	metricsShutdown := startMetrics(cfg.Metrics)
	defer metricsShutdown()

	emit := operator.NewWriter(os.Stdout)
	srv := server.New(cfg.DataDir, emit, cfg.Session.ToSessionConfig())

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Run(ctx)
	}()

	go readOperatorCommands(srv, cfg.Session.ToSessionConfig())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("tracebroker running", "data_dir", cfg.DataDir)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	logger.Info("tracebroker stopped")
	return nil
}

// readOperatorCommands drains stdin for operator commands and submits
// each to srv until EOF (treated as an implicit stop) or a `stop` line
// arrives. cur tracks the server's current default config, so a partial
// `config` line can be layered onto it (spec.md §4.11).
func readOperatorCommands(srv *server.Server, cur session.Config) {
	reader := operator.NewReader(os.Stdin)
	for {
		line, ok := reader.Next()
		if !ok {
			srv.Submit(server.Command{Kind: server.CmdStop})
			return
		}

		cmd, err := server.FromParsedLine(line, cur)
		if err != nil {
			logger.Warn("operator command rejected", "name", line.Name, "error", err)
			continue
		}
		if cmd.Kind == server.CmdConfig {
			cur = cmd.Config
		}

		srv.Submit(cmd)
		if cmd.Kind == server.CmdStop {
			return
		}
	}
}

func startMetrics(cfg config.MetricsConfig) func() {
	if !cfg.Enabled {
		return func() {}
	}

	reg := metrics.InitRegistry()
	metrics.SetCollector(promMetrics.New(reg))

	addr := fmt.Sprintf(":%d", cfg.Port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics server listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}
}

// Package commands implements CLI command handlers for sifter.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sifterlab/sifter/internal/config"
	"github.com/sifterlab/sifter/pkg/analysis"
	_ "github.com/sifterlab/sifter/pkg/analysis/parserfrequency"
	"github.com/sifterlab/sifter/pkg/containers"
	"github.com/sifterlab/sifter/pkg/engine"
	"github.com/sifterlab/sifter/pkg/observability"
	"github.com/sifterlab/sifter/pkg/parsers"
	_ "github.com/sifterlab/sifter/pkg/parsers/filestat"
	_ "github.com/sifterlab/sifter/pkg/parsers/syslog"
	"github.com/sifterlab/sifter/pkg/storage/file"
	"github.com/sifterlab/sifter/pkg/version"
)

// productName is recorded in the session start container.
const productName = "sifter"

const metricsReadHeaderTimeout = 5 * time.Second

// ExtractCommand holds configuration for the extract command.
type ExtractCommand struct {
	configPath  string
	storageDir  string
	workers     int
	parserNames []string
	pluginNames []string
	metricsAddr string
	logLevel    string
	debug       bool
}

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	ec := &ExtractCommand{}

	cmd := &cobra.Command{
		Use:   "extract <source>",
		Short: "Extract events from a source into a session store",
		Long:  "Walk a file or directory, run the enabled parsers over every regular file, and write the resulting events into a session store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ec.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&ec.configPath, "config", "c", "", "Config file path (default: .sifter.yaml in the working directory)")
	cmd.Flags().StringVar(&ec.storageDir, "storage", "", "Session store directory (overrides config)")
	cmd.Flags().IntVar(&ec.workers, "workers", 0, "Number of extraction workers (0 = config value)")
	cmd.Flags().StringSliceVarP(&ec.parserNames, "parsers", "p", nil, "Parser names to enable (overrides config)")
	cmd.Flags().StringSliceVarP(&ec.pluginNames, "plugins", "a", nil, "Analysis plugin names to run (overrides config)")
	cmd.Flags().StringVar(&ec.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().StringVar(&ec.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.Flags().BoolVar(&ec.debug, "debug", false, "Shorthand for --log-level=debug, recorded in the session")

	return cmd
}

func (ec *ExtractCommand) run(cmd *cobra.Command, source string) error {
	cfg, err := config.Load(ec.configPath)
	if err != nil {
		return err
	}

	ec.applyOverrides(cfg)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	parserList, err := parsers.ByNames(cfg.Parsers)
	if err != nil {
		return err
	}

	plugins, err := resolvePlugins(cfg.Plugins)
	if err != nil {
		return err
	}

	pollInterval, err := cfg.Pipeline.PollIntervalDuration()
	if err != nil {
		return err
	}

	metrics, err := ec.setupMetrics(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := file.NewStore(cfg.Storage.Dir)

	session := containers.NewSession(productName, version.Version)
	session.EnabledParsers = cfg.Parsers
	session.WorkerCount = cfg.Pipeline.Workers
	session.DebugMode = ec.debug

	eng := engine.New(logger, metrics, engine.Options{
		Workers:      cfg.Pipeline.Workers,
		PollInterval: pollInterval,
	})

	result, err := eng.ProcessSource(ctx, session, source, store, parserList, plugins)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s: %d sources, %d events, %d warnings across %d tasks\n",
		session.Identifier, result.Sources, result.Events, result.Warnings, result.Tasks)
	fmt.Fprintf(out, "store written to %s\n", store.Dir())

	return nil
}

// applyOverrides layers explicit flag values over the loaded config.
func (ec *ExtractCommand) applyOverrides(cfg *config.Config) {
	if ec.storageDir != "" {
		cfg.Storage.Dir = ec.storageDir
	}

	if ec.workers > 0 {
		cfg.Pipeline.Workers = ec.workers
	}

	if len(ec.parserNames) > 0 {
		cfg.Parsers = ec.parserNames
	}

	if len(ec.pluginNames) > 0 {
		cfg.Plugins = ec.pluginNames
	}

	if ec.metricsAddr != "" {
		cfg.Metrics.Addr = ec.metricsAddr
	}

	if ec.logLevel != "" {
		cfg.Log.Level = ec.logLevel
	}

	if ec.debug {
		cfg.Log.Level = "debug"
	}
}

// setupMetrics builds the pipeline instruments and starts the scrape
// endpoint when an address is configured. Returns nil metrics when
// metrics are disabled.
func (ec *ExtractCommand) setupMetrics(cfg *config.Config, logger *slog.Logger) (*observability.PipelineMetrics, error) {
	if cfg.Metrics.Addr == "" {
		return nil, nil
	}

	exporter, err := observability.NewMetricsExporter()
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewPipelineMetrics(exporter.Meter())
	if err != nil {
		return nil, err
	}

	go serveMetrics(cfg.Metrics.Addr, exporter, logger)

	return metrics, nil
}

func serveMetrics(addr string, exporter *observability.MetricsExporter, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	logger.Info("serving metrics", "addr", addr)

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "error", err)
	}
}

func resolvePlugins(names []string) ([]analysis.Plugin, error) {
	plugins := make([]analysis.Plugin, 0, len(names))

	for _, name := range names {
		plugin, err := analysis.ByName(name)
		if err != nil {
			return nil, err
		}

		plugins = append(plugins, plugin)
	}

	return plugins, nil
}

// xpum-datalogic is the standalone daemon around the GPU-telemetry
// data-logic pipeline: handler registry, raw-trace manager, query
// facade and CSV dump-file writer.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/intel/xpum/config"
	"github.com/intel/xpum/datalogic"
	"github.com/intel/xpum/devices"
	"github.com/intel/xpum/dumpfile"
	"github.com/intel/xpum/enablement"
	"github.com/intel/xpum/logger"
	"github.com/intel/xpum/metrics"
	"github.com/intel/xpum/query"
	"github.com/intel/xpum/rawtrace"
	"github.com/intel/xpum/session"
)

const (
	appName    = "xpum-datalogic"
	appVersion = "1.0.0"
)

// Application holds all application components.
type Application struct {
	config    *config.Config
	configMgr *config.Manager
	log       *logger.Logger

	registry *datalogic.Registry
	sessions *session.Tables
	traces   *rawtrace.Manager
	dumps    *dumpfile.Writer
	facade   *query.Facade
	metrics  *metrics.Metrics
	httpSrv  *http.Server

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "xpum",
		Short: "GPU telemetry data-logic daemon",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the data-logic daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := &Application{}
			if err := app.init(configPath, debug); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			app.run()
			return nil
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	}

	root.AddCommand(serveCmd, versionCmd)
	return root
}

// init initializes all application components.
func (app *Application) init(configPath string, debug bool) error {
	var err error

	app.ctx, app.cancel = context.WithCancel(context.Background())

	app.log = logger.Get()
	app.configMgr = config.GetManager()

	if configPath == "" {
		configPath, err = config.GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := app.configMgr.Load(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.config = app.configMgr.Get()

	if debug {
		app.config.Logging.Level = "debug"
	}

	configDir := filepath.Dir(configPath)
	if err := app.log.Init(&app.config.Logging, configDir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Infof("starting %s v%s", appName, appVersion)
	app.log.Infof("config loaded from: %s", configPath)

	if errs := app.config.Validate(); len(errs) > 0 {
		for _, err := range errs {
			app.log.Warnf("config validation warning: %v", err)
		}
	}

	metricsSpec := app.config.Enablement.Metrics
	if metricsSpec == "" {
		metricsSpec = os.Getenv("XPUM_METRICS")
	}
	enable := enablement.New(metricsSpec, nil)

	app.metrics = metrics.New()
	reg := prometheus.NewRegistry()
	app.metrics.MustRegister(reg)

	app.traces = rawtrace.NewManagerWithCacheLimit(app.config.RawTrace.CacheSizeLimit)
	app.sessions = session.NewTables()
	app.registry = datalogic.NewRegistry(datalogic.NoopSink{}, enable, app.traces)
	app.registry.OnSample = app.metrics.OnSample
	app.registry.OnSinkError = app.metrics.OnSinkError

	deviceIndex := devices.NewIndex(app.config.Daemon.DeviceCount, nil)
	app.facade = query.NewFacade(app.registry, app.sessions, enable, deviceIndex)
	app.dumps = dumpfile.NewWriter(app.facade, app.config.Daemon.SampleInterval)

	if app.config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		app.httpSrv = &http.Server{Addr: app.config.Metrics.ListenAddress, Handler: mux}
	}

	return nil
}

// run starts all components and blocks until a shutdown signal arrives.
func (app *Application) run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	app.dumps.Run()

	if app.httpSrv != nil {
		go func() {
			app.log.Infof("metrics endpoint listening on %s", app.httpSrv.Addr)
			if err := app.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				app.log.Errorf("metrics server: %v", err)
			}
		}()
	}

	app.log.Info("daemon started")

	<-sigCh
	app.log.Info("received shutdown signal")
	app.shutdown()
}

// shutdown gracefully shuts down all components.
func (app *Application) shutdown() {
	app.shutdownOnce.Do(func() {
		app.log.Info("shutting down...")
		app.cancel()

		done := make(chan struct{})
		go func() {
			app.dumps.Close()
			if app.httpSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				app.httpSrv.Shutdown(ctx)
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			app.log.Warn("shutdown timeout, forcing exit")
		}

		app.log.Close()
	})
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhinos0608/skyrimnet-proxy/internal/app"
	"github.com/rhinos0608/skyrimnet-proxy/internal/config"
	"github.com/rhinos0608/skyrimnet-proxy/internal/dash"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/version"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to the configuration file")
		showVersion   = flag.Bool("version", false, "print version information and exit")
		showDashboard = flag.Bool("dashboard", false, "attach the status dashboard to a running proxy")
	)
	flag.Parse()

	vlog := log.New(log.Writer(), "", 0)
	if *showVersion {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *showDashboard {
		runDashboard(cfg)
		return
	}

	version.PrintVersionInfo(false, vlog)

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(&logger.Config{
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.LogDir,
		Theme:      cfg.Logging.Theme,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		FileOutput: cfg.Logging.FileOutput,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())
	if cfg.Filename != "" {
		styledLogger.Info("Loaded configuration", "file", cfg.Filename)
	}

	application, err := app.New(cfg, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	application.Start()

	select {
	case sig := <-sigCh:
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-application.Errors():
		styledLogger.Error("Server failed", "error", err)
	}

	if err := application.Stop(ctx); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	styledLogger.Info("Goodbye, dragonborn")
}

// runDashboard attaches the TUI to an already-running proxy instance
func runDashboard(cfg *config.Config) {
	baseURL := fmt.Sprintf("http://%s", cfg.Server.GetAddress())
	program := dash.NewProgram(baseURL, os.Stdin, os.Stdout)
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Dashboard error: %v\n", err)
		os.Exit(1)
	}
}

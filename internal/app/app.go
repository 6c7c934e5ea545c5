package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rhinos0608/skyrimnet-proxy/internal/app/handlers"
	"github.com/rhinos0608/skyrimnet-proxy/internal/app/middleware"
	"github.com/rhinos0608/skyrimnet-proxy/internal/config"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/router"
	"github.com/rhinos0608/skyrimnet-proxy/internal/transform"
	"github.com/rhinos0608/skyrimnet-proxy/internal/upstream"
)

// Application owns the proxy's long-lived state: the routing tables, the
// per-origin connection pools, the per-provider permit pools and the HTTP
// server. Everything is constructed here and torn down in Stop; no package
// level singletons.
type Application struct {
	config  *config.Config
	logger  *logger.StyledLogger
	server  *http.Server
	router  *router.Router
	pools   *upstream.PoolManager
	limiter *upstream.Limiter
	errCh   chan error
}

// New builds the full pipeline from an already-loaded configuration
func New(cfg *config.Config, styledLogger *logger.StyledLogger) (*Application, error) {
	providers, err := cfg.BuildProviderTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build provider table: %w", err)
	}

	routes, warnings := cfg.BuildRoutingTable()
	for _, warning := range warnings {
		styledLogger.Warn("Routing configuration issue", "detail", warning)
	}

	modelRouter := router.New(providers, routes, styledLogger)
	pools := upstream.NewPoolManager(cfg.Proxy, styledLogger)
	limiter := upstream.NewLimiter()

	application, err := handlers.NewApplication(
		cfg,
		modelRouter,
		transform.New(styledLogger),
		upstream.NewDispatcher(pools, limiter, styledLogger),
		upstream.NewRelay(pools, limiter, cfg.Proxy.StreamBufferSize, styledLogger),
		limiter,
		pools,
		styledLogger,
	)
	if err != nil {
		pools.CloseAll()
		return nil, fmt.Errorf("failed to build handlers: %w", err)
	}

	mux := http.NewServeMux()
	application.RegisterRoutes(mux)

	var handler http.Handler = mux
	if cfg.Server.RequestLogging {
		handler = middleware.RequestLogging(styledLogger)(handler)
	}

	app := &Application{
		config:  cfg,
		logger:  styledLogger,
		router:  modelRouter,
		pools:   pools,
		limiter: limiter,
		errCh:   make(chan error, 1),
		server: &http.Server{
			Addr:         cfg.Server.GetAddress(),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	// Only the routing table is hot-swappable. Provider and server changes
	// need a restart; a broken edit must never take down in-flight traffic.
	config.Watch(func(fresh *config.Config) {
		freshRoutes, freshWarnings := fresh.BuildRoutingTable()
		for _, warning := range freshWarnings {
			styledLogger.Warn("Routing configuration issue after reload", "detail", warning)
		}
		modelRouter.Reload(freshRoutes)
		styledLogger.Info("Reloaded routing table", "slots", len(freshRoutes.Slots),
			"fallback_to_default", freshRoutes.FallbackToDefault)
	})

	return app, nil
}

// Start begins serving and returns immediately; fatal listener errors arrive
// on Errors()
func (a *Application) Start() {
	a.logger.Info("Proxy listening", "address", a.server.Addr,
		"providers", len(a.config.Providers), "slots", len(a.config.Routing.Slots))

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- err
		}
	}()
}

// Errors delivers a fatal server error, if one occurs
func (a *Application) Errors() <-chan error {
	return a.errCh
}

// Stop drains the HTTP server within the configured shutdown budget, then
// closes every connection pool
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.pools.CloseAll()

	if err != nil {
		return fmt.Errorf("server shutdown incomplete: %w", err)
	}
	a.logger.Info("Proxy stopped cleanly")
	return nil
}

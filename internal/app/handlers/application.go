package handlers

import (
	"net/http"
	"time"

	"github.com/docker/go-units"

	"github.com/rhinos0608/skyrimnet-proxy/internal/config"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/router"
	"github.com/rhinos0608/skyrimnet-proxy/internal/transform"
	"github.com/rhinos0608/skyrimnet-proxy/internal/upstream"
)

// Application holds the dependencies the HTTP handlers need
type Application struct {
	Config      *config.Config
	StartTime   time.Time
	logger      *logger.StyledLogger
	router      *router.Router
	transformer *transform.Transformer
	dispatcher  *upstream.Dispatcher
	relay       *upstream.Relay
	limiter     *upstream.Limiter
	pools       *upstream.PoolManager

	maxBodyBytes int64
}

func NewApplication(
	cfg *config.Config,
	rt *router.Router,
	transformer *transform.Transformer,
	dispatcher *upstream.Dispatcher,
	relay *upstream.Relay,
	limiter *upstream.Limiter,
	pools *upstream.PoolManager,
	styledLogger *logger.StyledLogger,
) (*Application, error) {
	maxBody, err := units.RAMInBytes(cfg.Server.MaxBodySize)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:       cfg,
		StartTime:    time.Now(),
		logger:       styledLogger,
		router:       rt,
		transformer:  transformer,
		dispatcher:   dispatcher,
		relay:        relay,
		limiter:      limiter,
		pools:        pools,
		maxBodyBytes: maxBody,
	}, nil
}

// RegisterRoutes sets up the complete HTTP routing table
func (a *Application) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat/completions", a.chatCompletionsHandler)
	mux.HandleFunc("GET /v1/models", a.modelsHandler)
	mux.HandleFunc("GET /healthz", a.healthHandler)
	mux.HandleFunc("GET /internal/status", a.statusHandler)
	mux.HandleFunc("/", a.notFoundHandler)
}

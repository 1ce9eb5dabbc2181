package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slok/gsx/internal/app/command"
	"github.com/slok/gsx/internal/app/create"
	"github.com/slok/gsx/internal/app/kill"
	"github.com/slok/gsx/internal/app/list"
	"github.com/slok/gsx/internal/app/logs"
	"github.com/slok/gsx/internal/app/remove"
	"github.com/slok/gsx/internal/app/restart"
	"github.com/slok/gsx/internal/app/start"
	"github.com/slok/gsx/internal/app/stats"
	"github.com/slok/gsx/internal/app/status"
	"github.com/slok/gsx/internal/app/stop"
	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/sandbox"
	"github.com/slok/gsx/internal/storage"
)

// HandlerConfig is the configuration for the HTTP control API.
type HandlerConfig struct {
	Engine          sandbox.Engine
	Repository      storage.Repository
	MetricsRecorder metrics.Recorder
	// MetricsGatherer is served on /metrics, disabled when nil.
	MetricsGatherer prometheus.Gatherer
	Logger          log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "http.API"})
	return nil
}

type handler struct {
	create  *create.Service
	start   *start.Service
	stop    *stop.Service
	restart *restart.Service
	kill    *kill.Service
	remove  *remove.Service
	list    *list.Service
	status  *status.Service
	logs    *logs.Service
	stats   *stats.Service
	command *command.Service
	engine  sandbox.Engine
	logger  log.Logger
}

// NewHandler returns the HTTP control API handler.
// Every route is a thin adapter over the lifecycle services.
func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h, err := newHandler(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLog(cfg.Logger))

	router.GET("/health", h.health)
	if cfg.MetricsGatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1/instances")
	v1.POST("", h.createInstance)
	v1.GET("", h.listInstances)
	v1.GET("/:ref", h.getInstance)
	v1.DELETE("/:ref", h.removeInstance)
	v1.POST("/:ref/start", h.startInstance)
	v1.POST("/:ref/stop", h.stopInstance)
	v1.POST("/:ref/restart", h.restartInstance)
	v1.POST("/:ref/kill", h.killInstance)
	v1.GET("/:ref/logs", h.instanceLogs)
	v1.GET("/:ref/stats", h.instanceStats)
	v1.POST("/:ref/command", h.instanceCommand)

	return router, nil
}

func newHandler(cfg HandlerConfig) (*handler, error) {
	h := &handler{engine: cfg.Engine, logger: cfg.Logger}
	var err error

	h.create, err = create.NewService(create.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create create service: %w", err)
	}
	h.start, err = start.NewService(start.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create start service: %w", err)
	}
	h.stop, err = stop.NewService(stop.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create stop service: %w", err)
	}
	h.restart, err = restart.NewService(restart.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create restart service: %w", err)
	}
	h.kill, err = kill.NewService(kill.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create kill service: %w", err)
	}
	h.remove, err = remove.NewService(remove.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create remove service: %w", err)
	}
	h.list, err = list.NewService(list.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create list service: %w", err)
	}
	h.status, err = status.NewService(status.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create status service: %w", err)
	}
	h.logs, err = logs.NewService(logs.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create logs service: %w", err)
	}
	h.stats, err = stats.NewService(stats.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create stats service: %w", err)
	}
	h.command, err = command.NewService(command.ServiceConfig{Engine: cfg.Engine, Repository: cfg.Repository, MetricsRecorder: cfg.MetricsRecorder, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create command service: %w", err)
	}

	return h, nil
}

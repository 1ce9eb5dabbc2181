package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/slok/gsx/internal/http/api"
	metricsprometheus "github.com/slok/gsx/internal/metrics/prometheus"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr      string
	shutdownTimeout time.Duration
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Serve the HTTP control API and the Prometheus metrics.")
	c.Cmd.Flag("listen-address", "Address the HTTP server listens on.").Envar("GSX_LISTEN_ADDRESS").Default(":8080").StringVar(&c.listenAddr)
	c.Cmd.Flag("shutdown-timeout", "Grace period for in flight requests on shutdown.").Default("10s").DurationVar(&c.shutdownTimeout)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if !c.rootCmd.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Engine:          d.engine,
		Repository:      d.repo,
		MetricsRecorder: metricsprometheus.NewRecorder(reg),
		MetricsGatherer: reg,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create HTTP handler: %w", err)
	}

	server := &http.Server{
		Addr:              c.listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var g run.Group

	// HTTP server.
	g.Add(
		func() error {
			logger.Infof("HTTP server listening on %s", c.listenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		},
		func(_ error) {
			sctx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(sctx); err != nil {
				logger.Errorf("Could not shut down HTTP server: %v", err)
			}
		},
	)

	// Command context.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/gsx/internal/boot"
	"github.com/slok/gsx/internal/log"
	loglogrus "github.com/slok/gsx/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"

	loggerTypeDefault = "default"
	loggerTypeJSON    = "json"
)

type flags struct {
	Debug      bool
	NoColor    bool
	LoggerType string
	DryRun     bool
}

// Run runs the boot sequence. When it succeeds outside dry-run mode the process
// image is replaced by the game server and it never returns.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app := kingpin.New("gsboot", "Game server sandbox bootstrap.")
	app.DefaultEnvars()

	f := flags{}
	app.Flag("debug", "Enable debug mode.").BoolVar(&f.Debug)
	app.Flag("no-color", "Disable logger color.").BoolVar(&f.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(loggerTypeDefault).EnumVar(&f.LoggerType, loggerTypeDefault, loggerTypeJSON)
	app.Flag("dry-run", "Prepare the working directory and print the server command instead of launching it.").BoolVar(&f.DryRun)

	if _, err := app.Parse(args[1:]); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	logger := getLogger(f, stderr)

	cfg, err := boot.LoadConfig()
	if err != nil {
		return err
	}

	b, err := boot.NewBootstrapper(boot.BootstrapperConfig{
		Config:     *cfg,
		DryRun:     f.DryRun,
		Out:        stdout,
		ErrOut:     stderr,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create bootstrapper: %w", err)
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Infof("Termination signal received, aborting boot")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Boot.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				_, err := b.Run(ctx)
				return err
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func getLogger(f flags, out io.Writer) log.Logger {
	logrusLog := logrus.New()
	logrusLog.Out = out
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if f.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch f.LoggerType {
	case loggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !f.NoColor,
			DisableColors: f.NoColor,
		})
	case loggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"app":     "gsboot",
		"version": Version,
	})
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ExitPulse/internal/handler/api"
	mid "ExitPulse/internal/middleware"
	"ExitPulse/internal/usecase"
	pkgch "ExitPulse/pkg/clickhouse"
	"ExitPulse/pkg/config"
	xhttp "ExitPulse/pkg/http"
	httpmid "ExitPulse/pkg/http/middleware"
	pkgkafka "ExitPulse/pkg/kafka"
	applogger "ExitPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	pipe        *mid.ArchivePipeline
	eval        *usecase.EvaluateUseCase
	opt         *usecase.OptimizeUseCase
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	stats       *api.StatsHandler
	ArchiveProc *usecase.ArchiveProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	pipe *mid.ArchivePipeline,
	eval *usecase.EvaluateUseCase,
	opt *usecase.OptimizeUseCase,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		pipe:     pipe,
		eval:     eval,
		opt:      opt,
		consumer: consumer,
		kh:       kh,
		chClient: chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetStatsHandler mounts the plain net/http stats surface under /internal.
func (a *App) SetStatsHandler(h *api.StatsHandler) { a.stats = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.eval != nil {
		a.eval.SetLogger(l)
		if a.opt != nil {
			a.opt.SetLogger(l)
		}
		httpHandler = api.NewExitSignalsEchoHandler(l, a.eval, a.opt)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)

	// Read-only engine state endpoints, rate-limited and cached separately
	// from the main API group
	if a.stats != nil {
		a.stats.SetLogger(l)
		instrument := httpmid.Metrics(l, time.Second)
		e := a.httpServer.Echo()
		e.GET("/internal/signal-stats", echo.WrapHandler(instrument(a.stats.SignalStats())))
		e.GET("/internal/thresholds", echo.WrapHandler(instrument(a.stats.Thresholds())))
	}

	// Start archive pipeline flusher
	if a.pipe != nil {
		a.pipe.Start(ctx)
		l.Info("archive pipeline started")
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop pipeline first so no new records reach a closing backend
	if a.pipe != nil {
		a.pipe.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Close archive processor resources (publisher/archive)
	if a.ArchiveProc != nil {
		a.ArchiveProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}

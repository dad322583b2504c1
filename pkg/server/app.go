package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SectorFlow/internal/domain/models"
	"SectorFlow/internal/usecase"
	"SectorFlow/pkg/config"
	xhttp "SectorFlow/pkg/http"
	applogger "SectorFlow/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	controller *usecase.RefreshController
	httpServer *xhttp.Server
	loc        *time.Location
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	controller *usecase.RefreshController,
	httpServer *xhttp.Server,
	loc *time.Location,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		httpServer: httpServer,
		loc:        loc,
	}
}

// Location returns the display time zone.
func (a *App) Location() *time.Location { return a.loc }

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.logger }

// Run starts the refresh scheduler and the HTTP server and blocks until ctx
// is cancelled, SIGINT/SIGTERM arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("sectorflow starting",
		applogger.String("env", a.cfg.Environment),
		applogger.String("addr", a.httpServer.Addr()),
		applogger.Int("workers", a.cfg.Refresh.Workers),
	)
	a.controller.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.controller.Stop()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	return errors.Join(runErr, a.shutdown())
}

// RefreshOnce runs a single cycle in the foreground and returns its result.
func (a *App) RefreshOnce(ctx context.Context) (*models.AggregationResult, error) {
	if err := a.controller.Refresh(ctx); err != nil {
		return nil, err
	}
	res := a.controller.Latest()
	if res == nil {
		msg := a.controller.LastError()
		if msg == "" {
			msg = "no result produced"
		}
		return nil, errors.New(msg)
	}
	return res, nil
}

// shutdown stops the HTTP server first so no request observes a stopped scheduler.
func (a *App) shutdown() error {
	a.logger.Info("shutting down")

	var errs []error
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	a.controller.Stop()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

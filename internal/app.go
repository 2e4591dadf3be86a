// Package internal contains core application functionality
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	v1 "hsrelay/api/v1"
	"hsrelay/internal/config"
	"hsrelay/internal/database"
	"hsrelay/internal/deliveries"
	"hsrelay/internal/http"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/jobs"
	"hsrelay/internal/outbound"
)

// Application wraps cartridge.Application with the relay's components: the
// tracking component, the outbound dispatcher, the delivery journal and the
// maintenance jobs.
type Application struct {
	*cartridge.Application
	Config     *config.Config
	DBManager  *database.DBManager // Relay-specific DB manager with migration methods
	Deliveries *deliveries.Store
	Component  *hubspot.Component
	Dispatcher *outbound.Dispatcher
	Scheduler  *jobs.Scheduler

	workers []cartridge.BackgroundWorker
}

type appOptions struct {
	logger    *slog.Logger
	transport outbound.Transport
	clock     func() time.Time
}

// Option customises NewAppWithConfig.
type Option func(*appOptions)

// WithLogger replaces the configured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// WithTransport replaces the HTTP transport of the outbound dispatcher.
func WithTransport(transport outbound.Transport) Option {
	return func(o *appOptions) {
		o.transport = transport
	}
}

// WithClock overrides the tracking component's time source.
func WithClock(now func() time.Time) Option {
	return func(o *appOptions) {
		o.clock = now
	}
}

// NewApp creates a new application instance with default settings
func NewApp(opts ...Option) (*Application, error) {
	return NewAppWithConfig(config.GetConfig(), opts...)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config, opts ...Option) (*Application, error) {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = cartridge.NewLogger(cfg, nil)
	}

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := deliveries.NewStore(dbManager.GetConnection())

	dispatchOpts := outbound.Options{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueueSize,
		Timeout:   cfg.DispatchTimeout(),
		Transport: o.transport,
	}
	if cfg.DeliveryLog {
		dispatchOpts.Journal = store
	}
	dispatcher := outbound.NewDispatcher(dispatchOpts, logger)

	var componentOpts []hubspot.Option
	if o.clock != nil {
		componentOpts = append(componentOpts, hubspot.WithClock(o.clock))
	}
	component := hubspot.NewComponent(cfg.HubSpotSettings(), logger, componentOpts...)

	scheduler := jobs.NewScheduler(store, cfg, logger)
	workers := []cartridge.BackgroundWorker{
		outbound.NewWorker(dispatcher, 2*cfg.DispatchTimeout()),
		scheduler,
	}

	handlers := Handlers{
		Events:  v1.NewEventsHandler(component, dispatcher, cfg, logger),
		Visitor: v1.NewVisitorHandler(cfg, logger),
		SDK:     v1.NewSDKHandler(logger),
		Health:  http.NewHealthHandler(dbManager, store, dispatcher.Pending, logger),
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:       cfg,
		Logger:       logger,
		DBManager:    dbManager,
		ServerConfig: serverConfig(logger),
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutes(srv, cfg, handlers)
		},
		BackgroundWorkers: workers,
	})
	if err != nil {
		dbManager.Close()
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		Config:      cfg,
		DBManager:   dbManager,
		Deliveries:  store,
		Component:   component,
		Dispatcher:  dispatcher,
		Scheduler:   scheduler,
		workers:     workers,
	}, nil
}

// serverConfig starts from cartridge's defaults. The relay renders no
// templates and serves no static files, and browsers post events cross-site.
func serverConfig(logger *slog.Logger) *cartridge.ServerConfig {
	cfg := cartridge.DefaultServerConfig()
	cfg.ReadTimeout = 10 * time.Second
	cfg.WriteTimeout = 10 * time.Second
	cfg.EnableTemplates = false
	cfg.EnableStaticAssets = false
	cfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}
	cfg.ErrorHandler = errorHandler(logger)
	return cfg
}

// StartWorkers launches the dispatcher and the background jobs without
// binding the HTTP listener.
func (a *Application) StartWorkers() error {
	for i, w := range a.workers {
		if err := w.Start(); err != nil {
			for _, started := range a.workers[:i] {
				started.Stop()
			}
			return fmt.Errorf("failed to start worker: %w", err)
		}
	}
	return nil
}

// Shutdown drains queued deliveries, stops the HTTP server and closes the
// database, bounded by ctx.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Application.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.DBManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error": statusMessage(code, err),
		})
	}
}

func statusMessage(code int, err error) string {
	if code >= fiber.StatusInternalServerError {
		return "Internal Server Error"
	}
	return err.Error()
}

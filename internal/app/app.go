package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"loandash/internal/config"
	"loandash/internal/dataprocessing"
	apierrors "loandash/internal/errors"
	"loandash/internal/files"
	"loandash/internal/infrastructure"
	customMiddleware "loandash/internal/middleware"
	"loandash/internal/security"
	"loandash/internal/services"
	handlers "loandash/internal/transport/http"
	ws "loandash/internal/websocket"
	"loandash/pkg/contracts"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// AppName is shown in startup logs.
const AppName = "Loan Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler

	Source       dataprocessing.Source
	Dataset      *services.DatasetService
	Health       *services.HealthService
	WebSocketHub *ws.Hub
	Watcher      *files.Watcher

	listener net.Listener
	stopHub  context.CancelFunc
	serveErr chan error
}

// New loads configuration from the environment and builds the application.
func New(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplication(ctx, cfg, logger)
}

// NewApplication wires every component from cfg. Nothing is loaded or
// served until Start.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.GetVersionString()))

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	src, watchPath, err := a.newSource(ctx)
	if err != nil {
		return err
	}
	a.Source = src

	a.WebSocketHub = ws.NewHub(ws.HubOptions{
		Config:         a.Config.WebSocket,
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		DevMode:        a.Config.Logging.Development,
		Dataset:        a.currentDataset,
		Metrics:        a.Metrics,
		Logger:         a.Logger,
	})

	a.Dataset = services.NewDatasetService(src, dataprocessing.NewCache(a.Logger, a.Metrics), services.DatasetServiceOptions{
		Export:      a.Config.Export,
		LoadTimeout: a.Config.Dataset.LoadTimeout,
		Hub:         a.WebSocketHub,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	})

	a.Health = services.NewHealthService(contracts.GetVersionInfo(), a.Paths, a.Dataset, a.WebSocketHub, a.Logger)

	if a.Config.Dataset.Watch && watchPath != "" {
		a.Watcher, err = files.NewWatcher(watchPath, a.Config.Dataset.Debounce, func(ctx context.Context) error {
			_, err := a.Dataset.Reload(ctx, events.TriggerWatcher)
			return err
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create dataset watcher: %w", err)
		}
	}
	return nil
}

// newSource builds the configured dataset source. For file sources it also
// returns the file to watch.
func (a *Application) newSource(ctx context.Context) (dataprocessing.Source, string, error) {
	ds := a.Config.Dataset
	kind := ds.Kind
	if kind == config.SourceAuto || kind == "" {
		kind = config.SourceXLSX
		if ds.SpreadsheetID != "" {
			kind = config.SourceGSheet
		}
	}

	if kind == config.SourceGSheet {
		creds := a.Paths.Resolve(ds.CredentialsFile)
		svc, err := security.NewSheetsService(ctx, creds, a.Logger)
		if err != nil {
			return nil, "", apierrors.NewConfigError("google sheets source", err).
				WithContext("credentials_file", creds)
		}
		src := &dataprocessing.SheetsSource{Service: svc, SpreadsheetID: ds.SpreadsheetID, Range: ds.Range}
		a.Logger.InfoContext(ctx, "Dataset source configured", slog.String("source", src.String()))
		return src, "", nil
	}

	path, err := files.NewDiscovery(a.Paths.BaseDir).ResolveDataset(ds.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Served as not loaded until the file appears.
		path = a.Paths.Resolve(ds.Path)
		a.Logger.WarnContext(ctx, "Dataset file not found", slog.String("path", path))
	case err != nil:
		return nil, "", fmt.Errorf("failed to resolve dataset: %w", err)
	}
	src, err := dataprocessing.NewFileSource(path, ds.Sheet)
	if err != nil {
		return nil, "", apierrors.NewConfigError("dataset file", err).WithContext("path", path)
	}
	a.Logger.InfoContext(ctx, "Dataset source configured",
		slog.String("source", src.String()),
		slog.String("kind", ds.Kind))
	return src, path, nil
}

func (a *Application) currentDataset() *domain.DatasetInfo {
	if a.Dataset == nil {
		return nil
	}
	info, err := a.Dataset.Dataset()
	if err != nil {
		return nil
	}
	return &info
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that does not wrap the ResponseWriter, so the
	// WebSocket upgrade can hijack the connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
	r.Use(customMiddleware.StripSlashes)

	r.Get("/ws", a.WebSocketHub.ServeHTTP)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		if a.OTelProviders.TracerProvider != nil {
			r.Use(customMiddleware.Tracing(a.OTelProviders.TracerProvider))
		}
		r.Use(customMiddleware.Metrics(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.Config.Logging.Development
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.ErrorHandler).Handler)
		}
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.Dataset, a.Logger, a.ErrorHandler)
		r.Mount("/dashboard", dashboardHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the dataset, starts the background services and begins
// serving. A failed initial load is logged and the API answers 503 until a
// reload succeeds.
func (a *Application) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = listener

	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	a.stopHub = stopHub
	go a.WebSocketHub.Run(hubCtx)

	if _, err := a.Dataset.Reload(ctx, events.TriggerStartup); err != nil {
		a.Logger.ErrorContext(ctx, "Initial dataset load failed, serving without data",
			slog.String("source", a.Source.String()),
			slog.String("error", err.Error()))
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(hubCtx); err != nil {
			a.Logger.WarnContext(ctx, "Dataset watcher disabled", slog.String("error", err.Error()))
			a.Watcher = nil
		}
	}

	a.serveErr = make(chan error, 1)
	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+a.Addr()),
		slog.Bool("watching", a.Watcher != nil))
	return nil
}

// Addr returns the address the server listens on once started.
func (a *Application) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.stopHub != nil {
		a.stopHub()
		select {
		case <-a.WebSocketHub.Done():
		case <-shutdownCtx.Done():
		}
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted or the server fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	case serveErr = <-a.serveErr:
		a.Logger.Error("Server error", slog.Any("error", serveErr))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return errors.Join(serveErr, a.Stop(stopCtx))
}

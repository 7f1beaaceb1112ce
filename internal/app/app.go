package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/repository/sqlite"
	"crowdwatch/internal/route"
	"crowdwatch/internal/service/ai"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/library"
	"crowdwatch/internal/service/metrics"
	"crowdwatch/internal/service/pipeline"
	"crowdwatch/internal/service/session"
	"crowdwatch/internal/service/settings"
	"crowdwatch/internal/service/tracker"
	"crowdwatch/internal/service/vision"
	"crowdwatch/internal/service/websocket"
)

// CameraName names the live camera pipeline in logs.
const CameraName = "camera"

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   *ai.DetectorService
	renderer   *ai.RendererService
	metrics    *metrics.Metrics
	thresholds *analytics.ThresholdCell
	settings   *settings.Service
	library    *library.Library
	hub        *websocket.HubService
	sessions   *session.Store
	camera     *pipeline.Pipeline
}

// NewApp opens the database and the model and builds the camera pipeline. The camera itself is
// opened when Run starts the pipeline.
func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	a := &App{
		config:   cfg,
		logger:   logger,
		metrics:  metrics.New(),
		library:  library.New(cfg.VideoDirectory),
		sessions: session.NewStore(session.DefaultTTL),
	}

	thresholds, err := analytics.NewThresholdCell(cfg.Thresholds())
	if err != nil {
		return nil, err
	}
	a.thresholds = thresholds

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	a.db, err = sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	a.settings = settings.NewService(thresholds, sqlite.NewSettingsRepository(a.db), logger)
	if err := a.settings.Restore(); err != nil {
		logger.Warning("Failed to restore saved thresholds: %v", err)
	}

	a.detector, err = ai.NewDetectorService(cfg, logger)
	if err != nil {
		a.db.Close()
		return nil, err
	}
	a.renderer = ai.NewRendererService(cfg.JPEGQuality, logger)
	a.hub = websocket.NewHubService(logger, a.metrics)

	a.camera, err = a.newPipeline(CameraName, capture.NewPump(CameraName, vision.CameraOpener(cfg.CameraIndex), logger, a.metrics))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.camera.Store().OnPublish(a.hub.Publish)
	a.camera.Store().OnPublish(a.metrics.ObserveSnapshot)

	return a, nil
}

// newPipeline gives each source its own tracker and snapshot store. Thresholds are shared.
func (a *App) newPipeline(name string, pump *capture.Pump) (*pipeline.Pipeline, error) {
	tr, err := tracker.New(a.config.Tracker())
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker for %s: %w", name, err)
	}
	aggregator := analytics.NewAggregator(tr, analytics.NewStore(), a.thresholds)
	return pipeline.New(name, pump, a.detector, a.renderer, aggregator, a.logger, a.metrics), nil
}

// filePipeline builds the looping pipeline for a file in the video directory. Files are played at
// their own frame rate and every frame is analysed, so the pump waits for the pipeline.
func (a *App) filePipeline(name string) (*pipeline.Pipeline, error) {
	path, err := a.library.Resolve(name)
	if err != nil {
		return nil, err
	}
	return a.newPipeline(name, capture.NewOrderedPump(name, vision.FileOpener(path), a.logger, a.metrics))
}

// Run serves HTTP until ctx is cancelled or the listener fails, then stops every pipeline and
// drains the server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)

	go func() {
		if err := a.camera.Run(ctx); err != nil {
			a.logger.Error("Camera pipeline stopped: %v", err)
		}
	}()

	registry := pipeline.NewRegistry(ctx, a.filePipeline, a.logger)
	router := route.SetupRoutes(route.Services{
		Camera:   a.camera,
		Registry: registry,
		Library:  a.library,
		Hub:      a.hub,
		Settings: a.settings,
		Sessions: a.sessions,
		Metrics:  a.metrics,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	t := a.thresholds.Load()
	fmt.Printf("🚀 Crowd Watch Server\n")
	fmt.Printf("📍 URL: http://%s\n", a.config.Addr())
	fmt.Printf("📷 Camera: %d\n", a.config.CameraIndex)
	fmt.Printf("🎞️  Videos: %s\n", a.config.VideoDirectory)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)
	fmt.Printf("📊 Thresholds: %.1f%% / %.1f%%\n", t.Low, t.High)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	}

	// Streams only end when their pipelines close, so stop those before draining.
	cancel()
	<-a.camera.Done()
	registry.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("Server shutdown: %v", err)
	}
	return runErr
}

// Close releases the model and the database.
func (a *App) Close() {
	if a.detector != nil {
		a.detector.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
}

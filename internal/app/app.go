// Package app wires the document-store orchestrator together: backend
// selection, the shared retry policy, the scheduled reaper and the
// diagnostics HTTP listener, with graceful shutdown on OS signals.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lingodocs/docstore/internal/config"
	"github.com/lingodocs/docstore/internal/documents"
	"github.com/lingodocs/docstore/internal/folders"
	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/metrics"
	"github.com/lingodocs/docstore/internal/payments"
	"github.com/lingodocs/docstore/internal/reaper"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/driveapi"
	"github.com/lingodocs/docstore/internal/storage/memstore"
	"github.com/lingodocs/docstore/internal/storage/retryx"
	"github.com/lingodocs/docstore/internal/storage/s3api"
)

// App owns every component of the orchestrator. The exported fields are
// the operations an external request handler may call.
type App struct {
	Trees    *folders.TreeBuilder
	Uploader *documents.Uploader
	Metadata *documents.Metadata
	Payments *payments.Orchestrator
	Reaper   *reaper.Reaper

	config    *config.Config
	logger    logging.Logger
	scheduler *reaper.Scheduler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSON(cfg.LogLevel)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	bounded := storage.Bound(store, int64(cfg.MaxInFlight))

	policy := retryx.Policy{
		MaxRetries:    cfg.RetryMaxRetries,
		InitialDelay:  cfg.RetryInitialDelay,
		BackoffFactor: cfg.RetryBackoffFactor,
		MaxDelay:      cfg.RetryMaxDelay,
	}

	resolver := folders.NewResolver(bounded, policy, logger)
	trees := folders.NewTreeBuilder(resolver, cfg.RootFolderName)
	rp := reaper.New(bounded, policy, logger)

	scheduler, err := reaper.NewScheduler(rp, cfg.ReapSchedule, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Trees:     trees,
		Uploader:  documents.NewUploader(bounded, policy, logger),
		Metadata:  documents.NewMetadata(bounded, policy),
		Payments:  payments.New(bounded, trees, policy, logger),
		Reaper:    rp,
		config:    cfg,
		logger:    logger,
		scheduler: scheduler,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendDrive:
		return driveapi.New(driveapi.Config{
			BaseURL:             cfg.StoreBaseURL,
			TokenEndpoint:       cfg.TokenEndpoint,
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			ServiceSecret:       cfg.ServiceSecret,
		}), nil
	case config.BackendS3:
		return s3api.New(ctx, s3api.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case config.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// diagnosticsHandler serves /metrics plus the externally-triggerable reap.
func (app *App) diagnosticsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/internal/reap", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		res, err := app.Reaper.Run(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})
	return mux
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.MetricsAddr,
		Handler: app.diagnosticsHandler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "diagnostics listener starting", "addr", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

// Run starts the scheduler and the diagnostics listener and blocks until a
// shutdown signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting docstore orchestrator",
		"backend", app.config.Backend, "reap_schedule", app.config.ReapSchedule)

	app.initSignalHandler(cancelFunc)
	app.scheduler.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	app.scheduler.Stop()
	wg.Wait()

	app.logger.Info(context.Background(), "docstore orchestrator stopped")
}

// Package app wires the collector's components together from a Config and
// serves its HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"heartrate-go/internal/auth"
	"heartrate-go/internal/config"
	"heartrate-go/internal/scheduler"
	"heartrate-go/internal/secrets"
	"heartrate-go/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Application holds all the major components of the collector.
type Application struct {
	Config     *config.Config
	Logger     *slog.Logger
	Blobs      storage.BlobStore
	Tokens     *storage.TokenStore
	Archive    *storage.Archive
	Auth       *auth.OAuthManager
	Job        *scheduler.CollectJob
	Scheduler  *scheduler.Scheduler
	HTTPServer *http.Server
}

// New creates and initializes a new Application instance. The returned
// application owns an open blob store and must be closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// Setup: Auth Manager
	clientSecret, err := secrets.ResolveClientSecret(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client secret: %w", err)
	}
	oauthManager, err := auth.NewOAuthManager(
		auth.CredentialsFromConfig(cfg.Auth, clientSecret),
		auth.NewInMemoryStateStore(auth.StateTTL),
		logger,
	)
	if err != nil {
		return nil, err
	}
	oauthManager.SetHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout.Duration})

	// Setup: Storage
	blobs, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	var encryptionKey []byte
	if cfg.Storage.EncryptionKey != "" {
		encryptionKey = []byte(cfg.Storage.EncryptionKey)
	}
	tokenStore, err := storage.NewTokenStore(blobs, cfg.Storage.TokenKey, encryptionKey)
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("%w: token store: %w", config.ErrConfiguration, err)
	}
	archive := storage.NewArchive(blobs)

	// Setup: Collect job and scheduler
	job := scheduler.NewCollectJob(tokenStore, oauthManager, archive, scheduler.FetchOptions{
		BaseURL:     cfg.Fitbit.BaseURL,
		DetailLevel: cfg.Fitbit.DetailLevel,
		Timeout:     cfg.HTTPTimeout.Duration,
	}, location, logger)

	sched, err := scheduler.NewScheduler(cfg.Scheduler.Schedule, job, location, logger)
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		Blobs:     blobs,
		Tokens:    tokenStore,
		Archive:   archive,
		Auth:      oauthManager,
		Job:       job,
		Scheduler: sched,
	}

	// Setup: HTTP server, disabled by a zero port
	if cfg.MetricsPort > 0 {
		server := NewServer(oauthManager, tokenStore, sched, logger)
		app.HTTPServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}

	return app, nil
}

// RunOnce executes a single collect run for the day before now.
func (a *Application) RunOnce(ctx context.Context, now time.Time) (scheduler.RunResult, error) {
	return a.Job.Run(ctx, now)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
// Without a configured port it just waits for ctx.
func (a *Application) Serve(ctx context.Context) error {
	if a.HTTPServer == nil {
		<-ctx.Done()
		return nil
	}

	ln, err := net.Listen("tcp", a.HTTPServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.HTTPServer.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *Application) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("starting HTTP server", "addr", ln.Addr().String())
		errCh <- a.HTTPServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.Logger.Info("HTTP server stopped")
	return nil
}

// Close releases the blob store.
func (a *Application) Close() error {
	if a.Blobs == nil {
		return nil
	}
	if err := a.Blobs.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

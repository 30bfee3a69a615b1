// Package server wires configuration, storage, the reward service and its
// transports together and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/classmint/internal/buildinfo"
	"github.com/dmitrijs2005/classmint/internal/cryptox"
	"github.com/dmitrijs2005/classmint/internal/logging"
	"github.com/dmitrijs2005/classmint/internal/server/archive"
	"github.com/dmitrijs2005/classmint/internal/server/codec"
	"github.com/dmitrijs2005/classmint/internal/server/config"
	"github.com/dmitrijs2005/classmint/internal/server/metrics"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/classmint/internal/server/services"

	gs "github.com/dmitrijs2005/classmint/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rewards  *services.RewardService
	registry *prometheus.Registry
	jwtKey   []byte
}

// NewApp opens the database, applies migrations and builds the reward
// service. The caller owns the App and must Run it to release the database.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.Debug)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	secret := []byte(c.SecretKey)
	macKey, err := cryptox.DeriveKey(secret, cryptox.InfoTokenMAC)
	if err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	jwtKey, err := cryptox.DeriveKey(secret, cryptox.InfoAdminJWT)
	if err != nil {
		return nil, fmt.Errorf("derive admin key: %w", err)
	}

	cdc, err := codec.New(macKey, c.VerifyCacheSize)
	cryptox.Wipe(macKey)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(metrics.New(registry)),
		services.WithRecentBlocks(c.RecentBlocksLimit),
	}

	if c.ExportEnabled() {
		exporter, err := archive.NewS3Exporter(ctx, archive.Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("ledger export init error: %w", err)
		}
		opts = append(opts, services.WithExporter(exporter))
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		rewards:  services.NewRewardService(db, rm, cdc, opts...),
		registry: registry,
		jwtKey:   jwtKey,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.rewards, app.jwtKey)
	return s.Run(ctx)
}

func (app *App) startMetricsServer(ctx context.Context) error {
	lis, err := net.Listen("tcp", app.config.MetricsAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(app.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", lis.Addr().String())
	if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves gRPC and, when configured, metrics until ctx is done, a
// termination signal arrives or a server fails. The database is closed on
// return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version, "driver", app.config.DatabaseDriver)

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name+" failed", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	start("grpc server", app.startGRPCServer)
	if app.config.MetricsAddr != "" {
		start("metrics server", app.startMetricsServer)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}

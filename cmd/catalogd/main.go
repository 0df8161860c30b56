// Command catalogd watches an inbox directory and imports every spreadsheet dropped
// into it. It serves Prometheus metrics over HTTP and a gRPC health service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/catalog-ingest/internal/app"
	"github.com/joseph-ayodele/catalog-ingest/internal/async"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/ingest"
	"github.com/joseph-ayodele/catalog-ingest/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("catalogd.exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.HealthCheck(ctx, 5*time.Second); err != nil {
		return common.NewAppError(common.CodeStore, "ping catalog store", err)
	}
	if err := a.Store.Migrate(ctx); err != nil {
		return common.NewAppError(common.CodeStore, "migrate catalog store", err)
	}

	queue := async.NewImportQueue(a.Importer, logger,
		async.WithWorkers(cfg.Import.Workers),
		async.WithQueueSize(cfg.Import.QueueSize),
		async.WithImportTimeout(cfg.Import.Timeout),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Import.WatchDir != "" {
		paths, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
			Roots:       []string{cfg.Import.WatchDir},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			queue.Shutdown(context.Background())
			return common.NewAppError(common.CodeConfig, "watch "+cfg.Import.WatchDir, err)
		}
		g.Go(func() error {
			err := ingest.Feed(gctx, queue, paths, false, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			for err := range errs {
				logger.Warn("watcher.error", "error", err)
			}
			return nil
		})
		logger.Info("watcher.started", "dir", cfg.Import.WatchDir)
	} else {
		logger.Warn("watcher.disabled", "reason", "WATCH_DIR not set")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           server.NewRouter(a.Store, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http.listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		cancel()
		_ = g.Wait()
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		queue.Shutdown(sctx)
		return common.NewAppError(common.CodeConfig, "listen "+cfg.Server.GRPCAddr, err)
	}
	grpcSrv, hs := server.NewGRPCServer()
	g.Go(func() error {
		logger.Info("grpc.listening", "addr", cfg.Server.GRPCAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcSrv.GracefulStop()
		return nil
	})
	g.Go(func() error {
		server.WatchHealth(gctx, hs, a.Store, 15*time.Second, logger)
		return nil
	})

	err = g.Wait()
	logger.Info("catalogd.shutdown")

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	queue.Shutdown(sctx)
	return err
}

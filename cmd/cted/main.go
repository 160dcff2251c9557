package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/extract"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/export"
	repo "github.com/joseph-ayodele/cte-extractor/internal/repository"
	svc "github.com/joseph-ayodele/cte-extractor/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := extract.NewExtractor(fields.CTE(), logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	db, err := repo.Init(ctx, repo.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	opts := []core.Option{core.WithWorkers(cfg.Processing.Workers)}
	var runs repo.RunRepository
	var dbCheck svc.HealthChecker
	if db != nil {
		defer db.Close()
		runs = repo.NewRunRepository(db, logger)
		opts = append(opts, core.WithStore(runs))
		dbCheck = func(ctx context.Context) error { return db.HealthCheck(ctx, cfg.Database.DialTimeout) }
	} else {
		logger.Info("run history disabled (DB_URL not set)")
	}

	processor := core.NewProcessor(extractor, logger, opts...)
	api := svc.NewServer(processor, export.NewService(logger), runs, logger, svc.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Region:         cfg.Region(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Processing.ProcessTimeout + 30*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.Server.GRPCAddr != "" {
		g.Go(func() error {
			return svc.ServeGRPCHealth(gctx, cfg.Server.GRPCAddr, dbCheck, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

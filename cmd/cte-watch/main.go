package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/async"
	"github.com/joseph-ayodele/cte-extractor/internal/core/extract"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/export"
	"github.com/joseph-ayodele/cte-extractor/internal/ingest"
	"github.com/joseph-ayodele/cte-extractor/internal/profiles"
	repo "github.com/joseph-ayodele/cte-extractor/internal/repository"
)

func main() {
	cfg := common.LoadConfig()

	var (
		roots       = flag.String("roots", "", "comma-separated directories to watch (required)")
		out         = flag.String("out", constants.RecordsFileName, "records XLSX written on shutdown")
		profilePath = flag.String("profile", "", "JSON or YAML selection profile")
		initialScan = flag.Bool("initial-scan", true, "process files already present at startup")
		workers     = flag.Int("workers", 4, "queue workers")
	)
	flag.Parse()

	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	var rootList []string
	for _, r := range strings.Split(*roots, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rootList = append(rootList, r)
		}
	}
	if len(rootList) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --roots is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := fields.CTE()
	extractor, err := extract.NewExtractor(table, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	req := core.Request{Origin: "watch:" + *roots}
	if *profilePath != "" {
		ps, err := profiles.NewService(table, logger)
		if err != nil {
			logger.Error("failed to build profile schema", "error", err)
			os.Exit(1)
		}
		p, err := ps.LoadFile(*profilePath)
		if err != nil {
			logger.Error("invalid profile", "path", *profilePath, "error", err)
			os.Exit(1)
		}
		req = p.Request(req.Origin)
	}
	if req.Filters.Region == "" {
		req.Filters.Region = cfg.Region()
	}

	processor := core.NewProcessor(extractor, logger)
	sel, err := processor.Select(req.Fields)
	if err != nil {
		logger.Error("invalid field selection", "error", err)
		os.Exit(1)
	}

	queueOpts := []async.Option{
		async.WithWorkers(*workers),
		async.WithProcessTimeout(cfg.Processing.ProcessTimeout),
		async.WithDebug(req.Debug),
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
	var runs repo.RunRepository
	runID := uuid.Nil
	if db != nil {
		defer db.Close()
		runs = repo.NewRunRepository(db, logger)
		if runID, err = runs.CreateRun(ctx, req.Origin); err != nil {
			logger.Error("failed to create run", "error", err)
			os.Exit(1)
		}
		queueOpts = append(queueOpts, async.WithRun(runs, runID))
	}

	loader := ingest.NewFSLoader(logger)
	loader.MaxBytes = cfg.Server.MaxUploadBytes
	queue := async.NewProcessorQueue(processor, loader, sel, logger, queueOpts...)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       rootList,
		InitialScan: *initialScan,
		Debounce:    cfg.Processing.WatchDebounce,
		SkipHidden:  true,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching", "roots", rootList, "run_id", runID)

loop:
	for {
		select {
		case p, ok := <-events:
			if !ok {
				break loop
			}
			if err := queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
				logger.Warn("failed to enqueue", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Processing.ProcessTimeout+5*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	stats := queue.Stats()
	if runs != nil {
		if err := runs.FinishRun(shutdownCtx, runID, stats, constants.RunStatusFinished); err != nil {
			logger.Error("failed to finish run", "run_id", runID, "error", err)
		}
	}

	res := core.Assemble(sel.Names(), queue.Outcomes(), req)
	exporter := export.NewService(logger)
	data, err := exporter.RecordsXLSX(res.Table)
	if err == nil {
		err = os.WriteFile(*out, data, 0o644)
	}
	if err != nil {
		logger.Error("failed to write records", "output", *out, "error", err)
		os.Exit(1)
	}
	writeSide := func(name string, data []byte, err error) {
		path := filepath.Join(filepath.Dir(*out), name)
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			logger.Error("failed to write workbook", "output", path, "error", err)
		}
	}
	if req.Debug {
		data, err := exporter.DebugXLSX(res.Debug)
		writeSide(constants.DebugFileName, data, err)
	}
	if len(res.Errors) > 0 {
		data, err := exporter.ErrorsXLSX(res.Errors)
		writeSide(constants.ErrorsFileName, data, err)
	}
	logger.Info("watch stopped",
		"documents", stats.Documents,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"rows", res.Table.Len(),
		"output", *out,
	)
}

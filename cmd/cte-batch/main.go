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

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/extract"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/export"
	"github.com/joseph-ayodele/cte-extractor/internal/ingest"
	"github.com/joseph-ayodele/cte-extractor/internal/profiles"
	repo "github.com/joseph-ayodele/cte-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	var (
		dir         = flag.String("dir", "", "directory with CT-e XML files (required)")
		out         = flag.String("out", "", "records XLSX path (default: <dir>/../"+constants.RecordsFileName+")")
		debugOut    = flag.String("debug-out", "", "debug XLSX path (written when -debug is set)")
		errorsOut   = flag.String("errors-out", "", "errors XLSX path (written when any document fails)")
		fieldList   = flag.String("fields", "", "comma-separated field names (default: all)")
		profilePath = flag.String("profile", "", "JSON or YAML selection profile")
		debug       = flag.Bool("debug", false, "record per-field lookup traces")
		exclIssuer  = flag.Bool("exclude-issuer-region", false, "drop rows whose issuer region equals -region")
		originOnly  = flag.Bool("origin-region-only", false, "keep rows whose origin region equals -region")
		region      = flag.String("region", cfg.Processing.FilterRegion, "anchor UF for filters and tax")
		computeTax  = flag.Bool("tax", false, "add the computed ICMS column")
		workers     = flag.Int("workers", cfg.Processing.Workers, "documents processed concurrently")
		skipHidden  = flag.Bool("skip-hidden", true, "skip hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), constants.RecordsFileName)
	}
	if *debugOut == "" {
		*debugOut = filepath.Join(filepath.Dir(*out), constants.DebugFileName)
	}
	if *errorsOut == "" {
		*errorsOut = filepath.Join(filepath.Dir(*out), constants.ErrorsFileName)
	}
	anchor, ok := constants.Canonicalize(*region)
	if !ok {
		printError("Error: unknown --region %q\n", *region)
		os.Exit(1)
	}

	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := fields.CTE()
	extractor, err := extract.NewExtractor(table, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	req := core.Request{Origin: *dir}
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
		req = p.Request(*dir)
	}
	// Explicit flags override the profile.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fields":
			req.Fields = splitFields(*fieldList)
		case "debug":
			req.Debug = *debug
		case "exclude-issuer-region":
			req.Filters.ExcludeIssuerRegion = *exclIssuer
		case "origin-region-only":
			req.Filters.OriginRegionOnly = *originOnly
		case "region":
			req.Filters.Region = anchor
		case "tax":
			req.ComputeTax = *computeTax
		}
	})
	if req.Filters.Region == "" {
		req.Filters.Region = anchor
	}

	opts := []core.Option{core.WithWorkers(*workers)}
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
	if db != nil {
		defer db.Close()
		opts = append(opts, core.WithStore(repo.NewRunRepository(db, logger)))
	}
	processor := core.NewProcessor(extractor, logger, opts...)

	loader := ingest.NewFSLoader(logger)
	loader.MaxBytes = cfg.Server.MaxUploadBytes
	docs, files, stats, err := loader.LoadDirectory(ctx, *dir, *skipHidden)
	if err != nil {
		logger.Error("failed to load directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		logger.Warn("no CT-e documents found", "dir", *dir, "scanned", stats.Scanned)
	}

	res, err := processor.ProcessBatch(ctx, docs, req)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
	parseFailures := len(res.Errors)
	// Files that could not be read are reported alongside parse failures.
	res.Errors = append(res.Errors, ingest.FailedRecords(*dir, files)...)

	exporter := export.NewService(logger)
	write := func(path string, data []byte, err error) {
		if err != nil {
			logger.Error("failed to build workbook", "output", path, "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Error("failed to write output file", "output", path, "error", err)
			os.Exit(1)
		}
	}
	data, err := exporter.RecordsXLSX(res.Table)
	write(*out, data, err)
	if req.Debug {
		data, err = exporter.DebugXLSX(res.Debug)
		write(*debugOut, data, err)
	}
	if len(res.Errors) > 0 {
		data, err = exporter.ErrorsXLSX(res.Errors)
		write(*errorsOut, data, err)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Run: %s\n", res.RunID)
	fmt.Printf("- Files loaded: %d (failed to read: %d)\n", stats.Succeeded, stats.Failed)
	fmt.Printf("- Documents extracted: %d\n", res.Succeeded())
	fmt.Printf("- Parse failures: %d\n", parseFailures)
	fmt.Printf("- Rows after filters: %d\n", res.Table.Len())
	fmt.Printf("- Output: %s\n", *out)
	if len(res.Errors) > 0 {
		fmt.Printf("- Errors: %s\n", *errorsOut)
	}
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = profiles.NormalizeName(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

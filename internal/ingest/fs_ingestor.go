package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
)

// FSLoader reads CT-e documents from the local filesystem.
type FSLoader struct {
	logger *slog.Logger
	// MaxBytes rejects larger files; 0 means no limit.
	MaxBytes int64
}

var _ Loader = (*FSLoader)(nil)

func NewFSLoader(logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{logger: logger}
}

// LoadPath reads one file. The source is named after the file's base name.
func (l *FSLoader) LoadPath(ctx context.Context, path string) (core.Source, error) {
	return l.load(ctx, path, filepath.Base(path))
}

func (l *FSLoader) load(ctx context.Context, path, name string) (core.Source, error) {
	if err := ctx.Err(); err != nil {
		return core.Source{}, err
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		return core.Source{}, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return core.Source{}, fmt.Errorf("stat: %w", err)
	}
	if l.MaxBytes > 0 && info.Size() > l.MaxBytes {
		return core.Source{}, fmt.Errorf("%w: %s is %d bytes, limit %d", common.ErrInvalidInput, name, info.Size(), l.MaxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Source{}, fmt.Errorf("read: %w", err)
	}
	return core.NewSource(name, data), nil
}

// LoadDirectory walks root in lexical order, skips hidden entries if requested, and
// loads every .xml file. Sources come back in walk order and are named by their
// slash-separated path relative to root. Per-file failures are collected in the
// results and never stop the walk.
func (l *FSLoader) LoadDirectory(
	ctx context.Context,
	root string,
	skipHidden bool,
) ([]core.Source, []FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var (
		sources []core.Source
		results []FileResult
		stats   DirStats
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		src, err := l.load(ctx, path, displayName(root, path))
		if err != nil {
			l.logger.Warn("ingest.file.failed", "path", path, "err", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		sources = append(sources, src)
		results = append(results, FileResult{Path: path, HashHex: src.ContentHash, Size: int64(len(src.Data))})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return sources, results, stats, err
		}
		return sources, results, stats, fmt.Errorf("walk: %w", err)
	}

	l.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return sources, results, stats, nil
}

package ingest

import (
	"context"

	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

// FileResult is the per-file load outcome of a directory walk.
type FileResult struct {
	Path    string
	HashHex string
	Size    int64
	Err     string
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Loader turns filesystem paths into processor sources.
type Loader interface {
	LoadPath(ctx context.Context, path string) (core.Source, error)
	LoadDirectory(ctx context.Context, root string, skipHidden bool) ([]core.Source, []FileResult, DirStats, error)
}

// FailedRecords returns an error-table row for every file of a directory walk
// that could not be loaded, named relative to root like the loaded sources.
func FailedRecords(root string, results []FileResult) []entity.ErrorRecord {
	var out []entity.ErrorRecord
	for _, r := range results {
		if r.Err == "" {
			continue
		}
		out = append(out, entity.ErrorRecord{Document: displayName(root, r.Path), Error: r.Err})
	}
	return out
}

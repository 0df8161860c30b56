package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/catalog-ingest/internal/async"
)

// EnqueueDirectory walks root and enqueues each importable spreadsheet. Walk errors
// are recorded per path and the walk continues.
func EnqueueDirectory(ctx context.Context, q async.Queue, root string, skipHidden, force bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
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
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) || IsLockFile(path) {
			return nil
		}
		stats.Matched++

		if err := q.Enqueue(ctx, async.Job{Path: path, Force: force}); err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			if errors.Is(err, async.ErrQueueClosed) {
				return err
			}
			return nil
		}
		results = append(results, FileResult{Path: path})
		stats.Queued++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

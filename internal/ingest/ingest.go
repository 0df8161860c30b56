// Package ingest discovers spreadsheets on disk and hands them to the import queue.
package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/catalog-ingest/internal/async"
)

// FileResult is the per-file enqueue outcome.
type FileResult struct {
	Path string
	Err  string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Queued  uint32
	Failed  uint32
}

// Feed enqueues every path received on paths until the channel closes, ctx ends or the
// queue shuts down.
func Feed(ctx context.Context, q async.Queue, paths <-chan string, force bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-paths:
			if !ok {
				logger.Info("ingest.feed.closed")
				return nil
			}
			err := q.Enqueue(ctx, async.Job{Path: p, Force: force})
			if errors.Is(err, async.ErrQueueClosed) {
				return err
			}
			if err != nil {
				logger.Warn("ingest.feed.enqueue_failed", "path", p, "error", err)
			}
		}
	}
}

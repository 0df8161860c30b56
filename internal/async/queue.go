package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("import queue is shutting down")

// Job is one spreadsheet waiting to be imported.
type Job struct {
	Path        string
	Force       bool // re-import even if the same bytes were imported before
	SubmittedAt time.Time
	RunID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

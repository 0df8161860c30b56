package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files first
	Debounce    time.Duration // coalesce rapid write/rename bursts per file
	Logger      *slog.Logger
}

// StartWatcher emits importable spreadsheet paths created or rewritten under the
// roots. Both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var existing []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && Importable(path) {
				existing = append(existing, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}
	logger.Info("watcher.started", "roots", cfg.Roots, "existing", len(existing))

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	d := &debouncer{out: evCh, ctx: ctx, delay: cfg.Debounce, pending: map[string]*time.Timer{}}

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer d.stop()
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher.close_failed", "error", err)
			}
		}()

		for _, p := range existing {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if Importable(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
					d.touch(e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// debouncer emits a path once it has been quiet for delay.
type debouncer struct {
	out   chan<- string
	ctx   context.Context
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func (d *debouncer) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.pending[path]; ok && t.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.pending[path] == t {
			delete(d.pending, path)
		}
		d.mu.Unlock()
		select {
		case d.out <- path:
		case <-d.ctx.Done():
		}
	})
	d.pending[path] = t
}

// stop cancels pending timers and waits for in-flight sends so out can be closed.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for p, t := range d.pending {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.pending, p)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

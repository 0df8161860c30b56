package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/internal/async"
)

type memQueue struct {
	mu     sync.Mutex
	jobs   []async.Job
	closed bool
}

func (q *memQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return async.ErrQueueClosed
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Shutdown(context.Context) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *memQueue) paths() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, filepath.Base(j.Path))
	}
	sort.Strings(out)
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImportable(t *testing.T) {
	tests := map[string]bool{
		"/in/catalogo.xlsx":   true,
		"/in/CATALOGO.XLSM":   true,
		"/in/~$catalogo.xlsx": false,
		"/in/.catalogo.xlsx":  false,
		"/in/catalogo.xls":    false,
		"/in/catalogo.csv":    false,
	}
	for path, want := range tests {
		if got := Importable(path); got != want {
			t.Errorf("Importable(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestEnqueueDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.xlsx"))
	touch(t, filepath.Join(root, "sub", "b.xlsm"))
	touch(t, filepath.Join(root, "~$a.xlsx"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".cache", "c.xlsx"))

	q := &memQueue{}
	results, stats, err := EnqueueDirectory(context.Background(), q, root, true, true)
	if err != nil {
		t.Fatalf("EnqueueDirectory: %v", err)
	}
	got := q.paths()
	if len(got) != 2 || got[0] != "a.xlsx" || got[1] != "b.xlsm" {
		t.Fatalf("queued %v", got)
	}
	if stats.Matched != 2 || stats.Queued != 2 || stats.Failed != 0 || len(results) != 2 {
		t.Fatalf("stats = %+v results = %+v", stats, results)
	}
	if !q.jobs[0].Force {
		t.Error("force flag not propagated")
	}

	q = &memQueue{}
	if _, _, err := EnqueueDirectory(context.Background(), q, root, false, false); err != nil {
		t.Fatal(err)
	}
	if len(q.paths()) != 3 {
		t.Fatalf("hidden dirs must be walked when not skipped, got %v", q.paths())
	}
}

func TestEnqueueDirectoryStopsWhenQueueCloses(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.xlsx"))
	q := &memQueue{closed: true}

	_, stats, err := EnqueueDirectory(context.Background(), q, root, true, false)
	if !errors.Is(err, async.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if _, _, err := EnqueueDirectory(context.Background(), q, " ", true, false); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestFeed(t *testing.T) {
	q := &memQueue{}
	paths := make(chan string, 3)
	paths <- "/in/a.xlsx"
	paths <- "/in/b.xlsx"
	close(paths)

	if err := Feed(context.Background(), q, paths, false, nil); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if got := q.paths(); len(got) != 2 {
		t.Fatalf("queued %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Feed(ctx, q, make(chan string), false, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWatcherEmitsExistingAndNewFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.xlsx"))
	touch(t, filepath.Join(root, "ignored.txt"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	next := func() string {
		t.Helper()
		select {
		case p := <-events:
			return filepath.Base(p)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}

	if got := next(); got != "existing.xlsx" {
		t.Fatalf("first event = %q", got)
	}

	touch(t, filepath.Join(root, "new.xlsx"))
	touch(t, filepath.Join(root, "new.txt"))
	if got := next(); got != "new.xlsx" {
		t.Fatalf("second event = %q", got)
	}

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Fatal("expected error without roots")
	}
}

package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"
)

// DefaultMaxEntrySize bounds a single entry read.
const DefaultMaxEntrySize int64 = 64 << 20

var (
	// ErrArchiveCorrupt means the byte stream is not a readable ZIP container.
	ErrArchiveCorrupt = errors.New("archive corrupt")
	// ErrEntryNotFound means the requested path is absent from the package.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrEntryTooLarge means an entry declares more bytes than the handle allows.
	ErrEntryTooLarge = errors.New("archive entry too large")
	// ErrClosed is returned by reads on a closed handle.
	ErrClosed = errors.New("archive closed")
)

// Entry is a single member of the package. Its bytes are read lazily.
type Entry struct {
	Path  string
	IsDir bool
	Size  int64

	h    *Handle
	file *zip.File
}

// Open returns a reader over the entry contents.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.h == nil || e.file == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, e.Path)
	}
	return e.h.openFile(e.file)
}

// Bytes reads the whole entry.
func (e Entry) Bytes() ([]byte, error) {
	if e.h == nil || e.file == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, e.Path)
	}
	return e.h.readFile(e.file)
}

// Handle is an open spreadsheet package.
type Handle struct {
	name    string
	ra      io.ReaderAt
	size    int64
	zr      *zip.Reader
	index   map[string]*zip.File
	closer  io.Closer
	maxSize int64

	mu     sync.Mutex
	closed bool
}

// Option configures a Handle.
type Option func(*Handle)

// WithMaxEntrySize overrides DefaultMaxEntrySize.
func WithMaxEntrySize(n int64) Option {
	return func(h *Handle) {
		if n > 0 {
			h.maxSize = n
		}
	}
}

// Open opens the package stored at path. The caller must Close the handle.
func Open(path string, opts ...Option) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	h, err := newHandle(path, f, st.Size(), opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	h.closer = f
	return h, nil
}

// OpenReader opens a package held by ra.
func OpenReader(ra io.ReaderAt, size int64, opts ...Option) (*Handle, error) {
	return newHandle("", ra, size, opts...)
}

// OpenBytes opens an in-memory package.
func OpenBytes(b []byte, opts ...Option) (*Handle, error) {
	return newHandle("", bytes.NewReader(b), int64(len(b)), opts...)
}

func newHandle(name string, ra io.ReaderAt, size int64, opts ...Option) (*Handle, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	h := &Handle{
		name:    name,
		ra:      ra,
		size:    size,
		zr:      zr,
		index:   make(map[string]*zip.File, len(zr.File)),
		maxSize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	for _, f := range zr.File {
		p := normalize(f.Name)
		if _, dup := h.index[p]; !dup {
			h.index[p] = f
		}
	}
	return h, nil
}

// Name is the path the handle was opened from, empty for in-memory packages.
func (h *Handle) Name() string { return h.name }

// Entries yields every member in archive order. The sequence can be ranged over repeatedly.
func (h *Handle) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if h.isClosed() {
			return
		}
		for _, f := range h.zr.File {
			e := Entry{
				Path:  normalize(f.Name),
				IsDir: f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/"),
				Size:  int64(f.UncompressedSize64),
				h:     h,
				file:  f,
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Has reports whether path exists in the package.
func (h *Handle) Has(path string) bool {
	_, ok := h.index[normalize(path)]
	return ok
}

// ReadEntry returns the bytes stored at path.
func (h *Handle) ReadEntry(path string) ([]byte, error) {
	f, ok := h.index[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return h.readFile(f)
}

// Reader exposes the raw package bytes for decoders that need the whole container.
func (h *Handle) Reader() (io.ReaderAt, int64) {
	return h.ra, h.size
}

// Close releases the underlying file. It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.closer != nil {
		return h.closer.Close()
	}
	return nil
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) openFile(f *zip.File) (io.ReadCloser, error) {
	if h.isClosed() {
		return nil, ErrClosed
	}
	if int64(f.UncompressedSize64) > h.maxSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrEntryTooLarge, f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveCorrupt, f.Name, err)
	}
	return rc, nil
}

func (h *Handle) readFile(f *zip.File) ([]byte, error) {
	rc, err := h.openFile(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, h.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArchiveCorrupt, f.Name, err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	return data, nil
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(p, "/")
}

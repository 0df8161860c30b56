package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOpenBytesAndRead(t *testing.T) {
	files := map[string]string{
		"xl/workbook.xml":     "<workbook/>",
		"xl/media/":           "",
		"xl/media/image1.png": "png-bytes",
	}
	data := buildZip(t, files, []string{"xl/workbook.xml", "xl/media/", "xl/media/image1.png"})

	h, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer h.Close()

	got, err := h.ReadEntry("xl/media/image1.png")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Fatalf("ReadEntry = %q", got)
	}
	if !h.Has("/xl/workbook.xml") {
		t.Fatalf("Has should ignore a leading slash")
	}

	_, err = h.ReadEntry("xl/drawings/drawing1.xml")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestEntriesRestartable(t *testing.T) {
	order := []string{"a.xml", "dir/", "dir/b.bin"}
	data := buildZip(t, map[string]string{"a.xml": "a", "dir/": "", "dir/b.bin": "bb"}, order)
	h, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer h.Close()

	for pass := 0; pass < 2; pass++ {
		var paths []string
		var dirs int
		for e := range h.Entries() {
			paths = append(paths, e.Path)
			if e.IsDir {
				dirs++
			}
		}
		if len(paths) != 3 || paths[0] != "a.xml" || paths[2] != "dir/b.bin" {
			t.Fatalf("pass %d: unexpected entries %v", pass, paths)
		}
		if dirs != 1 {
			t.Fatalf("pass %d: expected 1 dir, got %d", pass, dirs)
		}
	}

	for e := range h.Entries() {
		if e.Path != "dir/b.bin" {
			continue
		}
		b, err := e.Bytes()
		if err != nil || string(b) != "bb" {
			t.Fatalf("Bytes = %q, %v", b, err)
		}
	}
}

func TestOpenCorrupt(t *testing.T) {
	_, err := OpenBytes([]byte("definitely not a zip"))
	if !errors.Is(err, ErrArchiveCorrupt) {
		t.Fatalf("expected ErrArchiveCorrupt, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(path, []byte("PK\x03\x04garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Open(path)
	if !errors.Is(err, ErrArchiveCorrupt) {
		t.Fatalf("expected ErrArchiveCorrupt for file, got %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if errors.Is(err, ErrArchiveCorrupt) {
		t.Fatalf("a missing file is not a corrupt archive")
	}
}

func TestCloseReleasesEntries(t *testing.T) {
	data := buildZip(t, map[string]string{"a.xml": "a"}, []string{"a.xml"})
	path := filepath.Join(t.TempDir(), "pkg.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.Name() != path {
		t.Fatalf("Name = %q", h.Name())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := h.ReadEntry("a.xml"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	n := 0
	for range h.Entries() {
		n++
	}
	if n != 0 {
		t.Fatalf("closed handle yielded %d entries", n)
	}
}

func TestMaxEntrySize(t *testing.T) {
	data := buildZip(t, map[string]string{"big.bin": "0123456789"}, []string{"big.bin"})
	h, err := OpenBytes(data, WithMaxEntrySize(4))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer h.Close()
	if _, err := h.ReadEntry("big.bin"); !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge, got %v", err)
	}
}

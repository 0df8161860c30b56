package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DirUploader writes blobs under a local directory, for development and tests.
type DirUploader struct {
	root       string
	publicBase string
	logger     *slog.Logger
}

// NewDirUploader creates root if needed. publicBase defaults to a file:// URL of root.
func NewDirUploader(root, publicBase string, logger *slog.Logger) (*DirUploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob dir is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	if publicBase == "" {
		publicBase = "file://" + filepath.ToSlash(abs)
	}
	return &DirUploader{root: abs, publicBase: publicBase, logger: logger}, nil
}

// Upload writes data to root/key.
func (u *DirUploader) Upload(ctx context.Context, data []byte, key, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UploadError{Key: key, Err: err}
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", &UploadError{Key: key, Err: errors.New("key escapes blob dir")}
	}
	dst := filepath.Join(u.root, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", &UploadError{Key: key, Err: err}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		u.logger.Error("blob.dir.write.failed", "path", dst, "error", err)
		return "", &UploadError{Key: key, Err: err}
	}
	u.logger.Debug("blob.dir.write.ok", "path", dst, "bytes", len(data))
	return PublicURL(u.publicBase, key), nil
}

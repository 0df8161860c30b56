package harvest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/internal/archive"
	"github.com/joseph-ayodele/catalog-ingest/internal/blob"
	"github.com/joseph-ayodele/catalog-ingest/internal/drawing"
	"github.com/joseph-ayodele/catalog-ingest/internal/metrics"
)

// MediaDir is where spreadsheet packages keep embedded media.
const MediaDir = "xl/media/"

// Skip reasons.
const (
	ReasonEmpty  = "empty"
	ReasonRead   = "read"
	ReasonUpload = "upload"
	ReasonColumn = "column"
	// ReasonInvalid marks raster media whose header does not decode.
	ReasonInvalid = "invalid"
)

// Uploader persists one blob and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, data []byte, key, mimeType string) (string, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, data []byte, key, mimeType string) (string, error)

func (f UploaderFunc) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	return f(ctx, data, key, mimeType)
}

// Image is one embedded picture that reached the blob store.
// Row is meaningful only when Anchored is true.
type Image struct {
	MediaPath string
	RefID     string
	Row       int
	Col       int
	Anchored  bool
	Key       string
	URL       string
	MimeType  string
	Size      int
}

// Skip records an image that was dropped.
type Skip struct {
	MediaPath string
	Reason    string
	Err       error
}

// Report is the outcome of one harvest.
type Report struct {
	Images  []Image
	Skipped []Skip

	// column preferred by RowImages when a row holds several images
	column int
}

// Anchored counts images tied to a row.
func (r Report) Anchored() int {
	n := 0
	for _, img := range r.Images {
		if img.Anchored {
			n++
		}
	}
	return n
}

// RowImages maps each anchored row to the URL of the first image placed on it.
// When the harvest was limited to an image column, an image in that exact column
// wins over one in a neighbouring column.
func (r Report) RowImages() map[int]string {
	m := make(map[int]string, len(r.Images))
	exact := make(map[int]bool, len(r.Images))
	for _, img := range r.Images {
		if !img.Anchored {
			continue
		}
		hit := r.column > 0 && img.Col == r.column
		if _, taken := m[img.Row]; taken && (exact[img.Row] || !hit) {
			continue
		}
		m[img.Row] = img.URL
		exact[img.Row] = hit
	}
	return m
}

// SkippedFor counts skips with the given reason.
func (r Report) SkippedFor(reason string) int {
	n := 0
	for _, s := range r.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

// Options tune a harvest.
type Options struct {
	// KeyPrefix is prepended to every blob key.
	KeyPrefix string
	// ImageColumn keeps only images anchored in this 1-based column when positive.
	ImageColumn int
	// NearbyColumn also accepts images anchored one column left of ImageColumn.
	NearbyColumn bool
	// Verify drops png, jpeg and gif media whose header does not decode.
	Verify bool
	Now    func() time.Time
	Logger *slog.Logger
}

// Harvest uploads every embedded media entry and reports where each one is anchored.
// Failures are per image. The only error returned is ctx.Err(), together with
// whatever was already uploaded.
func Harvest(ctx context.Context, h *archive.Handle, rels drawing.Relationships, anchors map[string]drawing.Anchor, up Uploader, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	report := Report{column: opts.ImageColumn}
	for entry := range h.Entries() {
		if entry.IsDir || !strings.HasPrefix(entry.Path, MediaDir) {
			continue
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("harvest.cancelled", "uploaded", len(report.Images), "error", err)
			return report, err
		}

		filename := path.Base(entry.Path)
		img := Image{MediaPath: entry.Path, MimeType: MimeType(filename)}
		if rel, ok := rels.MatchFilename(filename); ok {
			img.RefID = rel.ID
			if a, ok := anchors[rel.ID]; ok {
				img.Row, img.Col, img.Anchored = a.Row, a.Col, true
			}
		}

		if opts.ImageColumn > 0 && !inColumn(img, opts) {
			report.skip(logger, Skip{MediaPath: entry.Path, Reason: ReasonColumn})
			continue
		}

		data, err := entry.Bytes()
		if err != nil {
			report.skip(logger, Skip{MediaPath: entry.Path, Reason: ReasonRead, Err: err})
			continue
		}
		if len(data) == 0 {
			report.skip(logger, Skip{MediaPath: entry.Path, Reason: ReasonEmpty})
			continue
		}
		if opts.Verify {
			if err := verify(data, img.MimeType); err != nil {
				report.skip(logger, Skip{MediaPath: entry.Path, Reason: ReasonInvalid, Err: err})
				continue
			}
		}

		img.Size = len(data)
		img.Key = blob.Key(opts.KeyPrefix, filename, now())
		url, err := up.Upload(ctx, data, img.Key, img.MimeType)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Warn("harvest.cancelled", "uploaded", len(report.Images), "error", ctxErr)
				return report, ctxErr
			}
			report.skip(logger, Skip{MediaPath: entry.Path, Reason: ReasonUpload, Err: err})
			continue
		}
		img.URL = url
		report.Images = append(report.Images, img)
		metrics.RecordImage(img.Anchored)
		if !img.Anchored {
			logger.Warn("harvest.image.unanchored", "media", entry.Path, "ref_id", img.RefID)
		}
	}

	logger.Info("harvest.done",
		"images", len(report.Images),
		"anchored", report.Anchored(),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func inColumn(img Image, opts Options) bool {
	if !img.Anchored {
		return false
	}
	if img.Col == opts.ImageColumn {
		return true
	}
	return opts.NearbyColumn && img.Col == opts.ImageColumn-1
}

// verify checks that raster media decodes far enough to report its dimensions.
// Vector and office formats pass unchecked.
func verify(data []byte, mimeType string) error {
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif":
	default:
		return nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%s image has no pixels (%dx%d)", format, cfg.Width, cfg.Height)
	}
	return nil
}

func (r *Report) skip(logger *slog.Logger, s Skip) {
	r.Skipped = append(r.Skipped, s)
	metrics.RecordImageSkip(s.Reason)
	if s.Err != nil {
		logger.Warn("harvest.image.skipped", "media", s.MediaPath, "reason", s.Reason, "error", s.Err)
		return
	}
	logger.Debug("harvest.image.skipped", "media", s.MediaPath, "reason", s.Reason)
}

var officeTypes = map[string]string{
	".emf":  "image/x-emf",
	".wmf":  "image/x-wmf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// MimeType infers a media type from the file extension.
func MimeType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if t, ok := officeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

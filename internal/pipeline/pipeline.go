// Package pipeline runs one spreadsheet package through extraction, column mapping,
// image harvesting and product assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/internal/archive"
	"github.com/joseph-ayodele/catalog-ingest/internal/catalog"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/drawing"
	"github.com/joseph-ayodele/catalog-ingest/internal/harvest"
	"github.com/joseph-ayodele/catalog-ingest/internal/mapping"
	"github.com/joseph-ayodele/catalog-ingest/internal/sheet"
)

// Config holds per-run behavior flags.
type Config struct {
	// Sheet selects the sheet to read; empty means the first one.
	Sheet string
	// KeyPrefix is prepended to blob keys of harvested images.
	KeyPrefix string
	// ImageColumn keeps only images anchored in this 1-based column when positive.
	ImageColumn int
	// NearbyImages accepts an image one column left of ImageColumn or one row above
	// a product when nothing sits in the exact cell.
	NearbyImages bool
	// VerifyImages drops raster media that does not decode.
	VerifyImages bool
	// MaxEntrySize caps the decompressed size of any package part.
	MaxEntrySize int64
}

// Pipeline is safe for concurrent use; every run owns its archive handle.
type Pipeline struct {
	Logger   *slog.Logger
	Cfg      Config
	Mapper   *mapping.Mapper
	Uploader harvest.Uploader
	Now      func() time.Time
}

// New builds a pipeline. A nil uploader disables image harvesting.
func New(logger *slog.Logger, cfg Config, mapper *mapping.Mapper, up harvest.Uploader) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if mapper == nil {
		mapper = mapping.New(mapping.Config{Logger: logger})
	}
	return &Pipeline{Logger: logger, Cfg: cfg, Mapper: mapper, Uploader: up, Now: time.Now}
}

// Result is everything one run produced.
type Result struct {
	RunID    string
	Filename string
	Sheet    string
	Drawing  string
	Rows     int
	Mapping  mapping.Result
	Harvest  harvest.Report
	Batch    catalog.Batch
	Elapsed  time.Duration
}

// Run processes the package stored at path.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	h, err := archive.Open(path, archive.WithMaxEntrySize(p.Cfg.MaxEntrySize))
	if err != nil {
		return nil, classify(err)
	}
	defer p.closeHandle(h)
	return p.RunHandle(ctx, h, filepath.Base(path))
}

// RunBytes processes an in-memory package. name is used for logging and as an
// inference hint.
func (p *Pipeline) RunBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	h, err := archive.OpenBytes(data, archive.WithMaxEntrySize(p.Cfg.MaxEntrySize))
	if err != nil {
		return nil, classify(err)
	}
	defer p.closeHandle(h)
	return p.RunHandle(ctx, h, name)
}

// RunHandle processes an open package. The caller keeps ownership of h.
//
// Only an unreadable package or an empty sheet fail the run. Missing drawings, bad
// anchors, failed uploads and rejected rows all degrade to a smaller result. When ctx
// is cancelled during harvesting the partial result is returned with ctx.Err().
func (p *Pipeline) RunHandle(ctx context.Context, h *archive.Handle, name string) (*Result, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRunID(ctx, runID)
	}
	logger := common.LoggerFrom(ctx, p.Logger)
	logger.Info("pipeline.run.start", "file", name)

	res := &Result{RunID: runID, Filename: name}

	table, err := sheet.Extract(h, sheet.Options{Sheet: p.Cfg.Sheet})
	if err != nil {
		err = classify(err)
		logger.Error("pipeline.extract.failed", "error", err)
		return nil, err
	}
	res.Sheet = table.Sheet
	res.Rows = len(table.Rows)
	logger.Info("pipeline.extract.ok", "sheet", table.Sheet, "rows", len(table.Rows), "columns", len(table.Columns))

	res.Mapping = p.Mapper.Map(ctx, table, name)

	rels, anchors, drawingPath := p.resolveImages(h, table.Sheet, logger)
	res.Drawing = drawingPath

	if p.Uploader != nil {
		report, err := harvest.Harvest(ctx, h, rels, anchors, p.Uploader, harvest.Options{
			KeyPrefix:   p.Cfg.KeyPrefix,
			ImageColumn:  p.Cfg.ImageColumn,
			NearbyColumn: p.Cfg.NearbyImages,
			Verify:       p.Cfg.VerifyImages,
			Now:          now,
			Logger:       logger,
		})
		res.Harvest = report
		if err != nil {
			res.Elapsed = now().Sub(start)
			logger.Warn("pipeline.run.cancelled", "images", len(report.Images), "error", err)
			return res, err
		}
	} else {
		logger.Info("pipeline.harvest.disabled")
	}

	res.Batch = catalog.Assemble(table, res.Mapping, res.Harvest.RowImages(), catalog.Options{
		RunAt:        start,
		NearbyImages: p.Cfg.NearbyImages,
		Logger:       logger,
	})
	res.Elapsed = now().Sub(start)

	logger.Info("pipeline.run.ok",
		"products", len(res.Batch.Products),
		"images", len(res.Harvest.Images),
		"skipped_rows", len(res.Batch.Skipped),
		"skipped_images", len(res.Harvest.Skipped),
		"mapping_source", res.Mapping.Source,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// resolveImages finds the sheet's drawing and its image relationships and anchors.
// Problems are logged and yield fewer (or unanchored) images, never an error.
func (p *Pipeline) resolveImages(h *archive.Handle, sheetName string, logger *slog.Logger) (drawing.Relationships, map[string]drawing.Anchor, string) {
	d, ok, err := drawing.PrimaryDrawing(h, sheetName)
	if err != nil {
		logger.Warn("pipeline.drawing.unresolved", "error", err)
		return drawing.Relationships{}, nil, ""
	}
	if !ok {
		logger.Info("pipeline.drawing.none", "sheet", sheetName)
		return drawing.Relationships{}, nil, ""
	}

	rels, err := d.ImageRelationships(h)
	if err != nil {
		logger.Warn("pipeline.drawing.rels_failed", "drawing", d.Path, "error", err)
		rels = drawing.Relationships{}
	}
	anchors, err := d.Anchors(h)
	if err != nil {
		logger.Warn("pipeline.drawing.anchors_partial", "drawing", d.Path, "recovered", len(anchors), "error", err)
	}
	logger.Info("pipeline.drawing.ok", "drawing", d.Path, "image_rels", rels.Len(), "anchors", len(anchors))
	return rels, anchors, d.Path
}

func (p *Pipeline) closeHandle(h *archive.Handle) {
	if err := h.Close(); err != nil {
		p.Logger.Warn("pipeline.archive.close_failed", "error", err)
	}
}

// classify turns fatal extraction errors into coded application errors.
func classify(err error) error {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, archive.ErrArchiveCorrupt):
		return common.NewAppError(common.CodeArchiveCorrupt, "package is not a readable spreadsheet", err)
	case errors.Is(err, sheet.ErrEmptySheet):
		return common.NewAppError(common.CodeEmptySheet, "sheet has no rows", err)
	default:
		return fmt.Errorf("pipeline: %w", err)
	}
}

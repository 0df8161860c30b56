// Package importer runs spreadsheets through the pipeline and records the outcome
// in the catalog store.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/catalog"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/metrics"
	"github.com/joseph-ayodele/catalog-ingest/internal/pipeline"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
)

// Options tune one import.
type Options struct {
	// Force re-imports files whose bytes were already imported successfully.
	Force bool
	// DryRun runs the pipeline without touching the store.
	DryRun bool
}

// Summary is the printable outcome of one import.
type Summary struct {
	RunID         string              `json:"run_id"`
	JobID         *uuid.UUID          `json:"job_id,omitempty"`
	File          string              `json:"file"`
	ContentHash   string              `json:"content_hash"`
	Status        constants.JobStatus `json:"status"`
	Sheet         string              `json:"sheet,omitempty"`
	MappingSource string              `json:"mapping_source,omitempty"`
	Fallback      bool                `json:"mapping_fallback,omitempty"`
	Products      int                 `json:"products"`
	Images        int                 `json:"images"`
	SkippedRows   map[string]int      `json:"skipped_rows,omitempty"`
	SkippedImages int                 `json:"skipped_images"`
	DuplicateOf   *uuid.UUID          `json:"duplicate_of,omitempty"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	Error         string              `json:"error,omitempty"`
}

// Importer wires the pipeline to the store. Products and Jobs may be nil only for
// dry runs.
type Importer struct {
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Products repository.ProductRepository
	Jobs     repository.ImportJobRepository
}

func New(logger *slog.Logger, p *pipeline.Pipeline, products repository.ProductRepository, jobs repository.ImportJobRepository) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{Logger: logger, Pipeline: p, Products: products, Jobs: jobs}
}

// ImportFile imports the spreadsheet at path.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Summary, error) {
	if err := common.ValidateSpreadsheetPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidFile, "read spreadsheet", err)
	}
	return im.Import(ctx, path, data, opts)
}

// Import imports spreadsheet bytes. sourcePath is recorded on the job and its base
// name is used as the file name.
func (im *Importer) Import(ctx context.Context, sourcePath string, data []byte, opts Options) (*Summary, error) {
	timer := metrics.NewTimer()
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	name := filepath.Base(sourcePath)

	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRunID(ctx, runID)
	}
	summary := &Summary{RunID: runID, File: name, ContentHash: hash}
	logger := common.LoggerFrom(ctx, im.Logger)

	if !opts.DryRun && (im.Products == nil || im.Jobs == nil) {
		return nil, common.NewAppError(common.CodeConfig, "importer has no store", common.ErrInvalidInput)
	}

	if !opts.DryRun && !opts.Force {
		prev, err := im.Jobs.FindSucceededByHash(ctx, hash)
		switch {
		case err == nil:
			return im.skipDuplicate(ctx, logger, summary, sourcePath, prev.ID, timer)
		case !errors.Is(err, common.ErrNotFound):
			return nil, common.NewAppError(common.CodeStore, "look up previous imports", err)
		}
	}

	var jobID uuid.UUID
	if !opts.DryRun {
		job, err := im.Jobs.Start(ctx, name, sourcePath, hash)
		if err != nil {
			return nil, common.NewAppError(common.CodeStore, "start import job", err)
		}
		jobID = job.ID
		summary.JobID = &jobID
		ctx = common.WithJobID(ctx, jobID.String())
		logger = common.LoggerFrom(ctx, im.Logger)
	}
	logger.Info("import.start", "file", name, "content_hash", hash, "dry_run", opts.DryRun)

	res, err := im.Pipeline.RunBytes(ctx, name, data)
	if err != nil {
		return im.fail(ctx, logger, summary, jobID, opts, timer, err)
	}
	summary.fill(res)

	if !opts.DryRun {
		products := res.Batch.Products
		for i := range products {
			products[i].ImportJobID = &jobID
		}
		if _, err := im.Products.UpsertBatch(ctx, products); err != nil {
			return im.fail(ctx, logger, summary, jobID, opts, timer, common.NewAppError(common.CodeStore, "save products", err))
		}
		outcome := repository.JobOutcome{
			Status:        constants.JobStatusSucceeded,
			MappingSource: summary.MappingSource,
			ProductCount:  summary.Products,
			ImageCount:    summary.Images,
			SkippedRows:   len(res.Batch.Skipped),
			SkippedImages: summary.SkippedImages,
		}
		if err := im.Jobs.Finish(ctx, jobID, outcome); err != nil {
			logger.Error("import.job_finish_failed", "error", err)
		}
	}

	summary.Status = constants.JobStatusSucceeded
	summary.ElapsedMS = timer.Duration().Milliseconds()
	metrics.RecordImport(string(summary.Status), timer.Duration())
	logger.Info("import.finished",
		"status", summary.Status,
		"products", summary.Products,
		"images", summary.Images,
		"mapping_source", summary.MappingSource,
		"elapsed_ms", summary.ElapsedMS,
	)
	return summary, nil
}

func (im *Importer) skipDuplicate(ctx context.Context, logger *slog.Logger, summary *Summary, sourcePath string, prevID uuid.UUID, timer *metrics.Timer) (*Summary, error) {
	job, err := im.Jobs.RecordSkipped(ctx, summary.File, sourcePath, summary.ContentHash)
	if err != nil {
		return nil, common.NewAppError(common.CodeStore, "record skipped import", err)
	}
	summary.JobID = &job.ID
	summary.DuplicateOf = &prevID
	summary.Status = constants.JobStatusSkipped
	summary.ElapsedMS = timer.Duration().Milliseconds()
	metrics.RecordImport(string(summary.Status), timer.Duration())
	logger.Info("import.finished", "status", summary.Status, "duplicate_of", prevID)
	return summary, nil
}

func (im *Importer) fail(ctx context.Context, logger *slog.Logger, summary *Summary, jobID uuid.UUID, opts Options, timer *metrics.Timer, cause error) (*Summary, error) {
	summary.Status = constants.JobStatusFailed
	summary.Error = cause.Error()
	summary.ElapsedMS = timer.Duration().Milliseconds()
	metrics.RecordImport(string(summary.Status), timer.Duration())

	if !opts.DryRun {
		// the run context may already be cancelled; the failure is still recorded
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		outcome := repository.JobOutcome{
			Status:        constants.JobStatusFailed,
			MappingSource: summary.MappingSource,
			ErrorMessage:  cause.Error(),
		}
		if err := im.Jobs.Finish(finishCtx, jobID, outcome); err != nil {
			logger.Error("import.job_finish_failed", "error", err)
		}
	}
	logger.Error("import.finished", "status", summary.Status, "code", common.ErrorCode(cause), "error", cause)
	return summary, fmt.Errorf("import %s: %w", summary.File, cause)
}

func (s *Summary) fill(res *pipeline.Result) {
	s.Sheet = res.Sheet
	s.MappingSource = string(res.Mapping.Source)
	s.Fallback = res.Mapping.Fallback
	s.Products = len(res.Batch.Products)
	s.Images = res.Batch.WithImages()
	s.SkippedImages = len(res.Harvest.Skipped)
	if len(res.Batch.Skipped) > 0 {
		s.SkippedRows = map[string]int{}
		for _, reason := range []string{catalog.SkipHeader, catalog.SkipDivider, catalog.SkipEmpty, catalog.SkipNoName} {
			if n := res.Batch.SkippedFor(reason); n > 0 {
				s.SkippedRows[reason] = n
			}
		}
	}
}

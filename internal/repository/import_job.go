package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/entity"
)

type ImportJobRepository interface {
	Start(ctx context.Context, filename, sourcePath, contentHash string) (*entity.ImportJob, error)
	RecordSkipped(ctx context.Context, filename, sourcePath, contentHash string) (*entity.ImportJob, error)
	Finish(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error
	FindSucceededByHash(ctx context.Context, contentHash string) (*entity.ImportJob, error)
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ImportJob, error)
}

// JobOutcome is what Finish records on a job.
type JobOutcome struct {
	Status        constants.JobStatus
	MappingSource string
	ProductCount  int
	ImageCount    int
	SkippedRows   int
	SkippedImages int
	ErrorMessage  string
}

type importJobRepo struct {
	store *Store
	log   *slog.Logger
	now   func() time.Time
}

func NewImportJobRepository(store *Store, log *slog.Logger) ImportJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &importJobRepo{store: store, log: log, now: time.Now}
}

var jobColumns = []string{
	"id", "filename", "source_path", "content_hash", "status", "mapping_source",
	"product_count", "image_count", "skipped_rows", "skipped_images", "error_message",
	"started_at", "finished_at",
}

func (r *importJobRepo) Start(ctx context.Context, filename, sourcePath, contentHash string) (*entity.ImportJob, error) {
	job := &entity.ImportJob{
		ID:          uuid.New(),
		Filename:    filename,
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      constants.JobStatusRunning,
		StartedAt:   r.now().UTC(),
	}
	if err := r.insert(ctx, job); err != nil {
		r.log.Error("import_job start failed", "file", filename, "err", err)
		return nil, err
	}
	r.log.Info("import_job started", "job_id", job.ID, "file", filename)
	return job, nil
}

// RecordSkipped stores a finished SKIPPED job for a file that was already imported.
func (r *importJobRepo) RecordSkipped(ctx context.Context, filename, sourcePath, contentHash string) (*entity.ImportJob, error) {
	now := r.now().UTC()
	job := &entity.ImportJob{
		ID:          uuid.New(),
		Filename:    filename,
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      constants.JobStatusSkipped,
		StartedAt:   now,
		FinishedAt:  &now,
	}
	if err := r.insert(ctx, job); err != nil {
		r.log.Error("import_job skip record failed", "file", filename, "err", err)
		return nil, err
	}
	r.log.Info("import_job skipped", "job_id", job.ID, "file", filename, "content_hash", contentHash)
	return job, nil
}

func (r *importJobRepo) insert(ctx context.Context, job *entity.ImportJob) error {
	var finished any
	if job.FinishedAt != nil {
		finished = *job.FinishedAt
	}
	query, args := r.store.builder().Insert(ImportJobsTable.Name).Columns(jobColumns...).Values(
		job.ID.String(), job.Filename, job.SourcePath, job.ContentHash, string(job.Status), job.MappingSource,
		job.ProductCount, job.ImageCount, job.SkippedRows, job.SkippedImages, nullableString(job.ErrorMessage),
		job.StartedAt, finished,
	).Query()
	if err := r.store.Driver.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("%w: insert import job: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *importJobRepo) Finish(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error {
	upd := r.store.builder().Update(ImportJobsTable.Name).
		Set("status", string(outcome.Status)).
		Set("mapping_source", outcome.MappingSource).
		Set("product_count", outcome.ProductCount).
		Set("image_count", outcome.ImageCount).
		Set("skipped_rows", outcome.SkippedRows).
		Set("skipped_images", outcome.SkippedImages).
		Set("finished_at", r.now().UTC()).
		Where(entsql.EQ("id", jobID.String()))
	if outcome.ErrorMessage != "" {
		upd.Set("error_message", outcome.ErrorMessage)
	} else {
		upd.SetNull("error_message")
	}
	query, args := upd.Query()

	var res sql.Result
	if err := r.store.Driver.Exec(ctx, query, args, &res); err != nil {
		r.log.Error("import_job finish failed", "job_id", jobID, "err", err)
		return fmt.Errorf("%w: finish import job: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: import job %s", common.ErrNotFound, jobID)
	}

	if outcome.Status == constants.JobStatusFailed {
		r.log.Warn("import_job finished (FAILED)", "job_id", jobID, "error", outcome.ErrorMessage)
		return nil
	}
	r.log.Info("import_job finished", "job_id", jobID, "status", outcome.Status, "products", outcome.ProductCount)
	return nil
}

// FindSucceededByHash returns the latest successful job for identical file bytes.
func (r *importJobRepo) FindSucceededByHash(ctx context.Context, contentHash string) (*entity.ImportJob, error) {
	sel := r.store.builder().Select(jobColumns...).From(r.store.builder().Table(ImportJobsTable.Name)).
		Where(entsql.And(
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.JobStatusSucceeded)),
		)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1)
	jobs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no import for hash %s", common.ErrNotFound, contentHash)
	}
	return &jobs[0], nil
}

func (r *importJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ImportJob, error) {
	sel := r.store.builder().Select(jobColumns...).From(r.store.builder().Table(ImportJobsTable.Name)).
		Where(entsql.EQ("id", jobID.String())).
		Limit(1)
	jobs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: import job %s", common.ErrNotFound, jobID)
	}
	return &jobs[0], nil
}

func (r *importJobRepo) query(ctx context.Context, sel *entsql.Selector) ([]entity.ImportJob, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.store.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: query import jobs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ImportJob
	for rows.Next() {
		var (
			job      entity.ImportJob
			status   string
			errMsg   sql.NullString
			finished sql.NullTime
		)
		err := rows.Scan(
			&job.ID, &job.Filename, &job.SourcePath, &job.ContentHash, &status, &job.MappingSource,
			&job.ProductCount, &job.ImageCount, &job.SkippedRows, &job.SkippedImages, &errMsg,
			&job.StartedAt, &finished,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan import job: %v", common.ErrDatabase, err)
		}
		job.Status = constants.JobStatus(status)
		if errMsg.Valid {
			v := errMsg.String
			job.ErrorMessage = &v
		}
		if finished.Valid {
			t := finished.Time
			job.FinishedAt = &t
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate import jobs: %v", common.ErrDatabase, err)
	}
	return out, nil
}

package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/constants"
)

// ImportJob tracks one spreadsheet going through the pipeline.
type ImportJob struct {
	ID            uuid.UUID           `json:"id"`
	Filename      string              `json:"filename"`
	SourcePath    string              `json:"source_path"`
	ContentHash   string              `json:"content_hash"`
	Status        constants.JobStatus `json:"status"`
	MappingSource string              `json:"mapping_source,omitempty"`
	ProductCount  int                 `json:"product_count"`
	ImageCount    int                 `json:"image_count"`
	SkippedRows   int                 `json:"skipped_rows"`
	SkippedImages int                 `json:"skipped_images"`
	ErrorMessage  *string             `json:"error_message,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
}

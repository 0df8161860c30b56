package entity

import (
	"time"

	"github.com/google/uuid"
)

// Product is one catalog item assembled from a spreadsheet row.
type Product struct {
	ID              int64      `json:"id,omitempty"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	CodeSynthesized bool       `json:"code_synthesized"`
	PriceCents      int64      `json:"price_cents"`
	Quantity        int        `json:"quantity,omitempty"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category"`
	Manufacturer    string     `json:"manufacturer,omitempty"`
	Location        string     `json:"location,omitempty"`
	Materials       []string   `json:"materials,omitempty"`
	Dimensions      string     `json:"dimensions,omitempty"`
	ImageURL        *string    `json:"image_url,omitempty"`
	SourceRow       int        `json:"source_row"`
	ImportJobID     *uuid.UUID `json:"import_job_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`
}

// HasImage reports whether an image URL is attached.
func (p *Product) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

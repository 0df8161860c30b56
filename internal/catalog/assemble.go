// Package catalog turns extracted rows into products.
package catalog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/entity"
	"github.com/joseph-ayodele/catalog-ingest/internal/mapping"
	"github.com/joseph-ayodele/catalog-ingest/internal/metrics"
	"github.com/joseph-ayodele/catalog-ingest/internal/sheet"
	"github.com/joseph-ayodele/catalog-ingest/internal/utils"
)

// Row skip reasons.
const (
	SkipHeader  = "header"
	SkipDivider = "divider"
	SkipEmpty   = "empty"
	SkipNoName  = "no_name"
)

// MinNameLength is the shortest acceptable product name, in characters.
const MinNameLength = 3

// RowSkip records a row that produced no product.
type RowSkip struct {
	Row    int
	Reason string
}

// Batch is the outcome of assembling one sheet.
type Batch struct {
	Products []entity.Product
	Skipped  []RowSkip
}

// SkippedFor counts skips with the given reason.
func (b Batch) SkippedFor(reason string) int {
	n := 0
	for _, s := range b.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

// WithImages counts products that carry an image.
func (b Batch) WithImages() int {
	n := 0
	for i := range b.Products {
		if b.Products[i].HasImage() {
			n++
		}
	}
	return n
}

// Options tune assembly.
type Options struct {
	// RunAt stamps codes synthesized for rows without one. Defaults to now.
	RunAt time.Time
	// NearbyImages lets a product without an image on its own row take one anchored
	// on the row above, unless an earlier product already took it.
	NearbyImages bool
	Logger       *slog.Logger
}

// Assemble builds products from table using the resolved mapping and attaches the
// image anchored on each product's source row. images maps sheet row to image URL.
func Assemble(table *sheet.Table, res mapping.Result, images map[int]string, opts Options) Batch {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runAt := opts.RunAt
	if runAt.IsZero() {
		runAt = time.Now()
	}

	a := assembler{
		mapping:  res.Mapping,
		quantity: res.Quantity,
		header:   res.HeaderRow,
		runUnix:  runAt.Unix(),
		used:     map[string]struct{}{},
	}

	var batch Batch
	claimed := map[int]bool{}
	for _, row := range table.Rows {
		p, reason := a.product(row)
		if reason != "" {
			batch.Skipped = append(batch.Skipped, RowSkip{Row: row.Index, Reason: reason})
			logger.Debug("catalog.row.skipped", "row", row.Index, "reason", reason)
			continue
		}
		if url := images[row.Index]; url != "" {
			p.ImageURL = &url
			claimed[row.Index] = true
		} else if above := row.Index - 1; opts.NearbyImages && images[above] != "" && !claimed[above] {
			url := images[above]
			p.ImageURL = &url
			claimed[above] = true
			logger.Debug("catalog.image.nearby", "row", row.Index, "image_row", above)
		}
		batch.Products = append(batch.Products, p)
	}

	metrics.RecordRows("admitted", len(batch.Products))
	for _, reason := range []string{SkipHeader, SkipDivider, SkipEmpty, SkipNoName} {
		metrics.RecordRows(reason, batch.SkippedFor(reason))
	}
	logger.Info("catalog.assembled",
		"products", len(batch.Products),
		"with_images", batch.WithImages(),
		"skipped", len(batch.Skipped),
	)
	return batch
}

type assembler struct {
	mapping  mapping.Mapping
	quantity string
	header   int
	runUnix  int64
	used     map[string]struct{}
}

func (a *assembler) cell(row sheet.RawRow, f mapping.Field) string {
	return strings.TrimSpace(row.Cell(a.mapping.Column(f)))
}

// product applies row admission and field derivation. A non-empty reason means the
// row was rejected.
func (a *assembler) product(row sheet.RawRow) (entity.Product, string) {
	if row.Index == a.header || a.isHeaderRow(row) {
		return entity.Product{}, SkipHeader
	}
	if a.isEmpty(row) {
		return entity.Product{}, SkipEmpty
	}

	name := a.name(row)
	if name == "" {
		if a.hasDivider(row) {
			return entity.Product{}, SkipDivider
		}
		return entity.Product{}, SkipNoName
	}

	code, synthesized := a.code(row)
	manufacturer := a.cell(row, mapping.FieldManufacturer)
	p := entity.Product{
		Name:            name,
		Code:            code,
		CodeSynthesized: synthesized,
		PriceCents:      ParsePrice(a.cell(row, mapping.FieldPrice)),
		Quantity:        parseQuantity(strings.TrimSpace(row.Cell(a.quantity))),
		Description:     a.cell(row, mapping.FieldDescription),
		Category:        a.category(row, name, manufacturer),
		Manufacturer:    manufacturer,
		Location:        a.cell(row, mapping.FieldLocation),
		Materials:       a.materials(row, name),
		Dimensions:      a.cell(row, mapping.FieldDimensions),
		SourceRow:       row.Index,
	}
	return p, ""
}

// isHeaderRow matches repeated title rows: two or more title cells, or a lone title
// cell such as "Produtos".
func (a *assembler) isHeaderRow(row sheet.RawRow) bool {
	n := 0
	for _, v := range row.Cells {
		if IsHeaderCell(v) {
			n++
		}
	}
	return n >= 2 || (n == 1 && len(row.Cells) == 1)
}

func (a *assembler) isEmpty(row sheet.RawRow) bool {
	for _, f := range mapping.Fields {
		if a.cell(row, f) != "" {
			return false
		}
	}
	return true
}

func (a *assembler) hasDivider(row sheet.RawRow) bool {
	for _, f := range []mapping.Field{mapping.FieldCode, mapping.FieldLocation, mapping.FieldName} {
		if IsDivider(a.cell(row, f)) {
			return true
		}
	}
	cols := row.Columns()
	return len(cols) > 0 && IsDivider(row.Cell(cols[0]))
}

// name takes the mapped name cell, or else the first free-text cell outside the
// code, price, location and quantity columns.
func (a *assembler) name(row sheet.RawRow) string {
	if v := a.cell(row, mapping.FieldName); utils.RuneLen(v) >= MinNameLength && !IsDivider(v) {
		return v
	}
	excluded := map[string]struct{}{a.quantity: {}}
	for _, f := range []mapping.Field{mapping.FieldName, mapping.FieldCode, mapping.FieldPrice, mapping.FieldLocation} {
		excluded[a.mapping.Column(f)] = struct{}{}
	}
	for _, col := range row.Columns() {
		if _, skip := excluded[col]; skip {
			continue
		}
		v := strings.TrimSpace(row.Cell(col))
		if utils.RuneLen(v) > MinNameLength && !utils.IsNumeric(v) && !IsDivider(v) {
			return v
		}
	}
	return ""
}

// code returns the product code and whether it was synthesized. Codes are unique
// within one assembler.
func (a *assembler) code(row sheet.RawRow) (string, bool) {
	raw := a.cell(row, mapping.FieldCode)
	code, synthesized := raw, false
	switch {
	case raw == "" || IsCodeHeader(raw):
		code, synthesized = fmt.Sprintf("PROD-%d-%d", a.runUnix, row.Index), true
	case IsDivider(raw):
		code, synthesized = fmt.Sprintf("PROD-%d", row.Index), true
	}
	return a.unique(code), synthesized
}

func (a *assembler) unique(code string) string {
	candidate := code
	for n := 2; ; n++ {
		if _, taken := a.used[candidate]; !taken {
			a.used[candidate] = struct{}{}
			return candidate
		}
		candidate = code + "-" + strconv.Itoa(n)
	}
}

func (a *assembler) category(row sheet.RawRow, name, manufacturer string) string {
	if v := a.cell(row, mapping.FieldCategory); v != "" {
		return v
	}
	if label, ok := MatchKeyword(name, constants.CategoryKeywords); ok {
		return label
	}
	if label, ok := MatchKeyword(manufacturer, constants.CategoryKeywords); ok {
		return label
	}
	return constants.DefaultCategory
}

func (a *assembler) materials(row sheet.RawRow, name string) []string {
	if v := a.cell(row, mapping.FieldMaterials); v != "" {
		return splitList(v)
	}
	return MatchAll(name, constants.MaterialVocabulary)
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseQuantity(v string) int {
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

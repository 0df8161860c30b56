package sheet

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/catalog-ingest/internal/archive"
)

// ErrEmptySheet means the selected sheet has no non-empty rows.
var ErrEmptySheet = errors.New("sheet has no rows")

// RawRow is one non-empty sheet row. Cells are keyed by column letter and hold raw,
// unformatted values.
type RawRow struct {
	Index int
	Cells map[string]string
}

// Cell returns the value in col, or "".
func (r RawRow) Cell(col string) string {
	if col == "" {
		return ""
	}
	return r.Cells[col]
}

// Number parses the value in col as a float.
func (r RawRow) Number(col string) (float64, bool) {
	v := r.Cell(col)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// Columns returns the populated column letters in sheet order.
func (r RawRow) Columns() []string {
	cols := make([]string, 0, len(r.Cells))
	for c := range r.Cells {
		cols = append(cols, c)
	}
	SortColumns(cols)
	return cols
}

// Table is the extracted grid of one sheet.
type Table struct {
	Sheet   string
	Rows    []RawRow
	Columns []string
}

// Options select and filter what Extract returns.
type Options struct {
	// Sheet names the sheet to read. Empty selects the first sheet in workbook order.
	Sheet string
	// Filter drops rows for which it returns false.
	Filter func(RawRow) bool
	// MaxRows stops reading after this many sheet rows when positive.
	MaxRows int
}

// Extract reads the cell grid of one sheet from the package.
func Extract(h *archive.Handle, opts Options) (*Table, error) {
	ra, size := h.Reader()
	f, err := excelize.OpenReader(io.NewSectionReader(ra, 0, size))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", archive.ErrArchiveCorrupt, err)
	}
	defer f.Close()
	return ExtractFile(f, opts)
}

// ExtractFile reads the cell grid of one sheet of an already open workbook.
func ExtractFile(f *excelize.File, opts Options) (*Table, error) {
	name := opts.Sheet
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		name = sheets[0]
	}

	rows, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	defer rows.Close()

	table := &Table{Sheet: name}
	seen := map[string]struct{}{}
	rowNum := 0
	for rows.Next() {
		rowNum++
		if opts.MaxRows > 0 && rowNum > opts.MaxRows {
			break
		}
		values, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read row %d of %q: %w", rowNum, name, err)
		}
		row := RawRow{Index: rowNum, Cells: make(map[string]string)}
		for i, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				continue
			}
			row.Cells[col] = v
		}
		if len(row.Cells) == 0 {
			continue
		}
		if opts.Filter != nil && !opts.Filter(row) {
			continue
		}
		for c := range row.Cells {
			seen[c] = struct{}{}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptySheet, name)
	}

	for c := range seen {
		table.Columns = append(table.Columns, c)
	}
	SortColumns(table.Columns)
	return table, nil
}

// SortColumns orders column letters as they appear in a sheet (A, B, ..., Z, AA).
func SortColumns(cols []string) {
	sort.Slice(cols, func(i, j int) bool {
		if len(cols[i]) != len(cols[j]) {
			return len(cols[i]) < len(cols[j])
		}
		return cols[i] < cols[j]
	})
}

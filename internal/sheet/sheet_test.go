package sheet

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/catalog-ingest/internal/archive"
)

func openWorkbook(t *testing.T, f *excelize.File) *archive.Handle {
	t.Helper()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	h, err := archive.OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("open package: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestExtractKeepsColumnLetters(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sh := "Sheet1"
	_ = f.SetCellValue(sh, "A1", "Nome")
	_ = f.SetCellValue(sh, "F1", "Código")
	_ = f.SetCellValue(sh, "L1", "Preço")
	_ = f.SetCellValue(sh, "A2", "Sofá Retrátil")
	_ = f.SetCellValue(sh, "F2", "SF-100")
	_ = f.SetCellValue(sh, "L2", 1234.56)
	_ = f.SetCellValue(sh, "A5", "  Poltrona Eames  ")
	_ = f.SetCellValue(sh, "L5", 980)

	table, err := Extract(openWorkbook(t, f), Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if table.Sheet != sh {
		t.Errorf("Sheet = %q", table.Sheet)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("got %d rows, want 3 (empty rows are not emitted)", len(table.Rows))
	}

	wantIdx := []int{1, 2, 5}
	for i, row := range table.Rows {
		if row.Index != wantIdx[i] {
			t.Errorf("row %d index = %d, want %d", i, row.Index, wantIdx[i])
		}
	}

	r2 := table.Rows[1]
	if r2.Cell("F") != "SF-100" || r2.Cell("A") != "Sofá Retrátil" {
		t.Errorf("row 2 cells = %v", r2.Cells)
	}
	if r2.Cell("L") != "1234.56" {
		t.Errorf("raw price = %q, want 1234.56", r2.Cell("L"))
	}
	if n, ok := r2.Number("L"); !ok || n != 1234.56 {
		t.Errorf("Number(L) = %v, %v", n, ok)
	}
	if _, present := r2.Cells["B"]; present {
		t.Error("absent columns must not appear")
	}
	if got := table.Rows[2].Cell("A"); got != "Poltrona Eames" {
		t.Errorf("trimmed value = %q", got)
	}

	wantCols := []string{"A", "F", "L"}
	if len(table.Columns) != len(wantCols) {
		t.Fatalf("Columns = %v", table.Columns)
	}
	for i, c := range wantCols {
		if table.Columns[i] != c {
			t.Errorf("Columns = %v, want %v", table.Columns, wantCols)
			break
		}
	}
}

func TestExtractEmptySheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := Extract(openWorkbook(t, f), Options{})
	if !errors.Is(err, ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func TestExtractNamedSheetAndFilter(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet("Produtos"); err != nil {
		t.Fatal(err)
	}
	_ = f.SetCellValue("Sheet1", "A1", "ignored")
	_ = f.SetCellValue("Produtos", "A1", "keep")
	_ = f.SetCellValue("Produtos", "A2", "drop")
	_ = f.SetCellValue("Produtos", "A3", "keep too")

	table, err := Extract(openWorkbook(t, f), Options{
		Sheet:  "Produtos",
		Filter: func(r RawRow) bool { return r.Cell("A") != "drop" },
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(table.Rows) != 2 || table.Rows[1].Index != 3 {
		t.Fatalf("rows = %+v", table.Rows)
	}
}

func TestExtractMaxRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	for i := 1; i <= 5; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i)
		_ = f.SetCellValue("Sheet1", cell, i)
	}
	table, err := Extract(openWorkbook(t, f), Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
}

func TestSortColumns(t *testing.T) {
	cols := []string{"AA", "C", "B", "Z", "AB", "A"}
	SortColumns(cols)
	want := []string{"A", "B", "C", "Z", "AA", "AB"}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("SortColumns = %v, want %v", cols, want)
		}
	}
}

package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/common"
	"github.com/joseph-ayodele/catalog-ingest/internal/pipeline"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
)

type env struct {
	importer *Importer
	products repository.ProductRepository
	jobs     repository.ImportJobRepository
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newEnv(t *testing.T) env {
	t.Helper()
	logger := quiet()
	dsn := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	store, err := repository.OpenSQLite(context.Background(), dsn, logger)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	products := repository.NewProductRepository(store, logger)
	jobs := repository.NewImportJobRepository(store, logger)
	p := pipeline.New(logger, pipeline.Config{}, nil, nil)
	return env{importer: New(logger, p, products, jobs), products: products, jobs: jobs}
}

func workbook(t *testing.T, rows map[string]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range rows {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func catalogBytes(t *testing.T) []byte {
	return workbook(t, map[string]any{
		"A1": "Nome", "F1": "Código", "L1": "Preço",
		"A2": "Sofá Lina", "F2": "SF-01", "L2": 1999.9,
		"A3": "Mesa de Centro", "F3": "MC-02", "L3": 450,
		"A4": "Poltrona Eames", "F4": "PT-03", "L4": "R$ 1.500,00",
	})
}

func TestImportStoresProducts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	summary, err := e.importer.Import(ctx, "/inbox/catalogo.xlsx", catalogBytes(t), Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Status != constants.JobStatusSucceeded || summary.Products != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.File != "catalogo.xlsx" || summary.MappingSource != "heuristic" || summary.SkippedRows["header"] != 1 {
		t.Errorf("summary = %+v", summary)
	}

	n, err := e.products.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	p, err := e.products.GetByCode(ctx, "PT-03")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if p.PriceCents != 150000 || p.ImportJobID == nil || *p.ImportJobID != *summary.JobID {
		t.Errorf("product = %+v", p)
	}

	job, err := e.jobs.Get(ctx, *summary.JobID)
	if err != nil {
		t.Fatalf("Get job: %v", err)
	}
	if job.Status != constants.JobStatusSucceeded || job.ProductCount != 3 || job.SkippedRows != 1 {
		t.Errorf("job = %+v", job)
	}
}

func TestImportSkipsIdenticalBytes(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	data := catalogBytes(t)

	first, err := e.importer.Import(ctx, "a.xlsx", data, Options{})
	if err != nil {
		t.Fatalf("first Import: %v", err)
	}
	second, err := e.importer.Import(ctx, "a-copy.xlsx", data, Options{})
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if second.Status != constants.JobStatusSkipped || second.DuplicateOf == nil || *second.DuplicateOf != *first.JobID {
		t.Fatalf("second = %+v", second)
	}

	forced, err := e.importer.Import(ctx, "a.xlsx", data, Options{Force: true})
	if err != nil {
		t.Fatalf("forced Import: %v", err)
	}
	if forced.Status != constants.JobStatusSucceeded || forced.Products != 3 {
		t.Fatalf("forced = %+v", forced)
	}
	if n, _ := e.products.Count(ctx); n != 3 {
		t.Fatalf("re-import must upsert by code, got %d products", n)
	}
}

func TestImportKeepsSynthesizedCodesApartAcrossFiles(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	a := workbook(t, map[string]any{
		"A1": "Nome", "F1": "Código", "L1": "Preço",
		"A2": "Sofá Lina", "F2": "3º andar", "L2": 1200,
		"A3": "Mesa Ripada", "F3": "MS-01", "L3": 450,
	})
	b := workbook(t, map[string]any{
		"A1": "Nome", "F1": "Código", "L1": "Preço",
		"A2": "Cadeira Tulipa", "F2": "Térreo", "L2": 380,
		"A3": "Mesa Ripada Nova", "F3": "MS-01", "L3": 500,
	})

	first, err := e.importer.Import(ctx, "a.xlsx", a, Options{})
	if err != nil {
		t.Fatalf("Import a: %v", err)
	}
	second, err := e.importer.Import(ctx, "b.xlsx", b, Options{})
	if err != nil {
		t.Fatalf("Import b: %v", err)
	}

	if n, err := e.products.Count(ctx); err != nil || n != 3 {
		t.Fatalf("Count = %d, %v; want 2 synthesized rows plus 1 shared supplier code", n, err)
	}

	for _, tt := range []struct {
		job  *uuid.UUID
		name string
	}{
		{first.JobID, "Sofá Lina"},
		{second.JobID, "Cadeira Tulipa"},
	} {
		list, err := e.products.List(ctx, repository.ListOptions{ImportJobID: tt.job})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		found := false
		for _, p := range list {
			if p.Code == "PROD-2" && p.CodeSynthesized && p.Name == tt.name {
				found = true
			}
		}
		if !found {
			t.Errorf("job %s lost its PROD-2 product %q: %+v", tt.job, tt.name, list)
		}
	}

	shared, err := e.products.GetByCode(ctx, "MS-01")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if shared.Name != "Mesa Ripada Nova" || shared.PriceCents != 50000 {
		t.Errorf("supplier code must still be upserted: %+v", shared)
	}
}

func TestImportRecordsFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	summary, err := e.importer.Import(ctx, "vazio.xlsx", workbook(t, nil), Options{})
	if err == nil {
		t.Fatal("expected error for empty sheet")
	}
	if common.ErrorCode(err) != common.CodeEmptySheet {
		t.Fatalf("code = %q (%v)", common.ErrorCode(err), err)
	}
	if summary == nil || summary.JobID == nil || summary.Status != constants.JobStatusFailed {
		t.Fatalf("summary = %+v", summary)
	}
	job, err := e.jobs.Get(ctx, *summary.JobID)
	if err != nil {
		t.Fatalf("Get job: %v", err)
	}
	if job.Status != constants.JobStatusFailed || job.ErrorMessage == nil {
		t.Errorf("job = %+v", job)
	}
}

func TestImportDryRunWithoutStore(t *testing.T) {
	logger := quiet()
	im := New(logger, pipeline.New(logger, pipeline.Config{}, nil, nil), nil, nil)

	summary, err := im.Import(context.Background(), "a.xlsx", catalogBytes(t), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Products != 3 || summary.JobID != nil {
		t.Fatalf("summary = %+v", summary)
	}

	_, err = im.Import(context.Background(), "a.xlsx", catalogBytes(t), Options{})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without a store, got %v", err)
	}
}

func TestImportFileValidatesPath(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()

	csv := filepath.Join(dir, "catalogo.csv")
	if err := os.WriteFile(csv, []byte("a,b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.importer.ImportFile(context.Background(), csv, Options{}); common.ErrorCode(err) != common.CodeInvalidFile {
		t.Fatalf("expected %s, got %v", common.CodeInvalidFile, err)
	}

	xlsx := filepath.Join(dir, "catalogo.xlsx")
	if err := os.WriteFile(xlsx, catalogBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	summary, err := e.importer.ImportFile(context.Background(), xlsx, Options{})
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if summary.Products != 3 {
		t.Fatalf("products = %d", summary.Products)
	}
}

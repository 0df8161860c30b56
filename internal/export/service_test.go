package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/catalog-ingest/internal/entity"
	"github.com/joseph-ayodele/catalog-ingest/internal/pipeline"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
)

type stubProducts struct {
	products []entity.Product
	err      error
	lastOpts repository.ListOptions
}

func (s *stubProducts) UpsertBatch(context.Context, []entity.Product) (int, error) { return 0, nil }
func (s *stubProducts) GetByCode(context.Context, string) (*entity.Product, error) {
	return nil, errors.New("not implemented")
}
func (s *stubProducts) Count(context.Context) (int, error) { return len(s.products), nil }
func (s *stubProducts) List(_ context.Context, opts repository.ListOptions) ([]entity.Product, error) {
	s.lastOpts = opts
	return s.products, s.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sample() []entity.Product {
	url := "https://cdn.test/catalog/1-image1.png"
	return []entity.Product{
		{Name: "Sofá Lina", Code: "SF-01", PriceCents: 123456, Quantity: 2, Category: "Sofás", Manufacturer: "Tok", Materials: []string{"Linho", "Madeira"}, ImageURL: &url},
		{Name: "Mesa de Centro", Code: "MC-02", PriceCents: 45000, Category: "Mesas de Centro", Location: "3º andar"},
	}
}

func TestExportCatalogXLSX(t *testing.T) {
	repo := &stubProducts{products: sample()}
	data, err := NewService(repo, quiet()).ExportCatalogXLSX(context.Background(), repository.ListOptions{Category: "Sofás"})
	if err != nil {
		t.Fatalf("ExportCatalogXLSX: %v", err)
	}
	if repo.lastOpts.Category != "Sofás" {
		t.Errorf("list options not forwarded: %+v", repo.lastOpts)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	tests := map[string]string{
		"A1": "Nome",
		"C1": "Preço",
		"A2": "Sofá Lina",
		"B2": "SF-01",
		"C2": "R$ 1.234,56",
		"D2": "2",
		"H2": "Linho, Madeira",
		"K2": "https://cdn.test/catalog/1-image1.png",
		"C3": "R$ 450,00",
		"D3": "",
		"G3": "3º andar",
		"K3": "",
	}
	for cell, want := range tests {
		got, err := f.GetCellValue(SheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
	if ok, target, _ := f.GetCellHyperLink(SheetName, "K2"); !ok || target != "https://cdn.test/catalog/1-image1.png" {
		t.Errorf("K2 hyperlink = %v %q", ok, target)
	}
}

func TestExportReimports(t *testing.T) {
	data, err := NewService(&stubProducts{products: sample()}, quiet()).ExportCatalogXLSX(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ExportCatalogXLSX: %v", err)
	}

	res, err := pipeline.New(quiet(), pipeline.Config{}, nil, nil).RunBytes(context.Background(), "export.xlsx", data)
	if err != nil {
		t.Fatalf("RunBytes: %v", err)
	}
	got := res.Batch.Products
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	for i, want := range sample() {
		if got[i].Code != want.Code || got[i].PriceCents != want.PriceCents || got[i].Category != want.Category {
			t.Errorf("product %d = %+v, want code %s price %d category %s", i, got[i], want.Code, want.PriceCents, want.Category)
		}
	}
	if got[0].Quantity != 2 || got[1].Location != "3º andar" {
		t.Errorf("quantity/location lost: %+v", got)
	}
}

func TestExportListError(t *testing.T) {
	_, err := NewService(&stubProducts{err: errors.New("db down")}, quiet()).ExportCatalogXLSX(context.Background(), repository.ListOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
}

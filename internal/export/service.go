package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/catalog-ingest/internal/catalog"
	"github.com/joseph-ayodele/catalog-ingest/internal/repository"
	"github.com/joseph-ayodele/catalog-ingest/internal/utils"
)

// SheetName is the sheet exported catalogs are written to.
const SheetName = "Produtos"

var headers = []string{
	"Nome",
	"Código",
	"Preço",
	"Quantidade",
	"Categoria",
	"Fabricante",
	"Local",
	"Materiais",
	"Dimensões",
	"Descrição",
	"Imagem",
}

// Service produces XLSX bytes from the stored catalog.
type Service struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewService(products repository.ProductRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, logger: logger}
}

// ExportCatalogXLSX returns a workbook with one row per stored product, filtered by opts.
func (s *Service) ExportCatalogXLSX(ctx context.Context, opts repository.ListOptions) ([]byte, error) {
	start := time.Now()

	products, err := s.products.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}

	row := 2
	for _, p := range products {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, p.Name)
		write(2, p.Code)
		write(3, catalog.FormatPrice(p.PriceCents))
		if p.Quantity > 0 {
			write(4, p.Quantity)
		}
		write(5, p.Category)
		write(6, p.Manufacturer)
		write(7, p.Location)
		write(8, strings.Join(p.Materials, ", "))
		write(9, p.Dimensions)
		write(10, utils.Truncate(p.Description, 140))
		if p.HasImage() {
			cell, _ := excelize.CoordinatesToCellName(11, row)
			_ = f.SetCellValue(SheetName, cell, *p.ImageURL)
			_ = f.SetCellHyperLink(SheetName, cell, *p.ImageURL, "External")
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 36) // name
	_ = f.SetColWidth(SheetName, "B", "B", 18)
	_ = f.SetColWidth(SheetName, "C", "D", 14)
	_ = f.SetColWidth(SheetName, "E", "I", 22)
	_ = f.SetColWidth(SheetName, "J", "J", 48) // description
	_ = f.SetColWidth(SheetName, "K", "K", 60) // image url
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(products),
		"category", opts.Category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

package catalog

import (
	"reflect"
	"testing"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/entity"
	"github.com/joseph-ayodele/catalog-ingest/internal/mapping"
	"github.com/joseph-ayodele/catalog-ingest/internal/sheet"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"R$ 1.234,56", 123456},
		{"0,00", 0},
		{"1,5", 150},
		{"", 0},
		{"R$0.00", 0},
		{"1234.5", 123450},
		{"899", 89900},
		{"R$ 12.500", 1250},
		{"1.234.567,89", 123456789},
		{"1,234.56", 100},
		{"sob consulta", 0},
		{"19,999", 2000},
		{"-", 0},
	}
	for _, tc := range tests {
		if got := ParsePrice(tc.in); got != tc.want {
			t.Errorf("ParsePrice(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[int64]string{
		123456:    "R$ 1.234,56",
		5:         "R$ 0,05",
		100000000: "R$ 1.000.000,00",
		99900:     "R$ 999,00",
		-150:      "R$ -1,50",
	}
	for in, want := range tests {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sofá-cama Casal", "Sofás"},
		{"MESA DE CENTRO redonda", "Mesas de Centro"},
		{"Mesa de jantar 6 lugares", "Mesas"},
		{"Cadeira de escritório giratória", "Escritório"},
		{"Mesanino metálico", ""},
		{"", ""},
	}
	for _, tc := range tests {
		got, _ := MatchKeyword(tc.in, constants.CategoryKeywords)
		if got != tc.want {
			t.Errorf("MatchKeyword(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchAll(t *testing.T) {
	got := MatchAll("Aparador em Madeira Maciça com tampo de vidro e pés de aço inox", constants.MaterialVocabulary)
	want := []string{"Madeira Maciça", "Aço Inox", "Vidro"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MatchAll = %v, want %v", got, want)
	}
	if got := MatchAll("Sofá Lina", constants.MaterialVocabulary); got != nil {
		t.Fatalf("MatchAll = %v, want nil", got)
	}
}

func TestIsDivider(t *testing.T) {
	for _, v := range []string{"12k", "1,5 K", "3º andar", "3o Andar", "2° piso", "Térreo", "Subsolo 2", "10k - 20k", "Até 5k"} {
		if !IsDivider(v) {
			t.Errorf("IsDivider(%q) = false", v)
		}
	}
	for _, v := range []string{"Sofá 3 lugares", "SF-100", "12", "Poltrona 12k", "", "Andar de cima"} {
		if IsDivider(v) {
			t.Errorf("IsDivider(%q) = true", v)
		}
	}
}

func TestIsHeaderCell(t *testing.T) {
	for _, v := range []string{"Nome", "Cód.", "Preço (R$)", "Descrição do produto", "QTD"} {
		if !IsHeaderCell(v) {
			t.Errorf("IsHeaderCell(%q) = false", v)
		}
	}
	for _, v := range []string{"Sofá Lina", "Produto importado da Itália em couro", "Código 123", ""} {
		if IsHeaderCell(v) {
			t.Errorf("IsHeaderCell(%q) = true", v)
		}
	}
}

func defaultResult(headerRow int) mapping.Result {
	l := mapping.DefaultLayout()
	return mapping.Result{Mapping: l.Mapping, Quantity: l.Quantity, Source: mapping.SourceDefault, HeaderRow: headerRow}
}

func row(idx int, cells map[string]string) sheet.RawRow {
	return sheet.RawRow{Index: idx, Cells: cells}
}

func fixtureTable() *sheet.Table {
	return &sheet.Table{Sheet: "Sheet1", Rows: []sheet.RawRow{
		row(1, map[string]string{"A": "Nome", "B": "Local", "C": "Fabricante", "E": "Qtd", "F": "Código", "G": "Descrição", "L": "Preço"}),
		row(2, map[string]string{"A": "Sofá Retrátil em Linho", "B": "3º andar", "C": "Tok Stok", "E": "2", "F": "SF-100", "L": "R$ 1.234,56"}),
		row(3, map[string]string{"F": "3º andar"}),
		row(4, map[string]string{"A": "12k"}),
		row(5, map[string]string{"A": "Mesa de Jantar Madeira Maciça", "F": "SF-100", "L": "899"}),
		row(6, map[string]string{"A": "Poltrona", "C": "Etel"}),
		row(7, map[string]string{"Z": "nota"}),
		row(8, map[string]string{"A": "ab", "G": "Luminária pendente de vidro"}),
		row(9, map[string]string{"A": "1", "L": "100"}),
		row(10, map[string]string{"A": "Produto", "F": "Código"}),
		row(11, map[string]string{"A": "Rack Suspenso", "F": "3o pavimento", "L": "1234.5"}),
	}}
}

var runAt = time.Unix(1700000000, 0)

func TestAssemble(t *testing.T) {
	images := map[int]string{2: "https://cdn/2.png", 5: "https://cdn/5.png", 6: "https://cdn/6.png", 9: "https://cdn/9.png"}
	batch := Assemble(fixtureTable(), defaultResult(1), images, Options{RunAt: runAt})

	wantSkips := []RowSkip{
		{1, SkipHeader}, {3, SkipDivider}, {4, SkipDivider}, {7, SkipEmpty}, {9, SkipNoName}, {10, SkipHeader},
	}
	if !reflect.DeepEqual(batch.Skipped, wantSkips) {
		t.Fatalf("Skipped = %v, want %v", batch.Skipped, wantSkips)
	}
	if len(batch.Products) != 5 {
		t.Fatalf("got %d products, want 5", len(batch.Products))
	}

	byRow := map[int]entity.Product{}
	for _, p := range batch.Products {
		byRow[p.SourceRow] = p
	}

	sofa := byRow[2]
	if sofa.Name != "Sofá Retrátil em Linho" || sofa.Code != "SF-100" || sofa.CodeSynthesized {
		t.Errorf("sofa = %+v", sofa)
	}
	if sofa.PriceCents != 123456 || sofa.Quantity != 2 || sofa.Location != "3º andar" || sofa.Manufacturer != "Tok Stok" {
		t.Errorf("sofa = %+v", sofa)
	}
	if sofa.Category != "Sofás" || !reflect.DeepEqual(sofa.Materials, []string{"Linho"}) {
		t.Errorf("sofa category/materials = %q %v", sofa.Category, sofa.Materials)
	}
	if sofa.ImageURL == nil || *sofa.ImageURL != "https://cdn/2.png" {
		t.Errorf("sofa image = %v", sofa.ImageURL)
	}

	mesa := byRow[5]
	if mesa.Code != "SF-100-2" || mesa.Category != "Mesas" || mesa.PriceCents != 89900 {
		t.Errorf("mesa = %+v", mesa)
	}
	if !reflect.DeepEqual(mesa.Materials, []string{"Madeira Maciça"}) {
		t.Errorf("mesa materials = %v", mesa.Materials)
	}

	poltrona := byRow[6]
	if poltrona.Code != "PROD-1700000000-6" || !poltrona.CodeSynthesized || poltrona.Category != "Poltronas" {
		t.Errorf("poltrona = %+v", poltrona)
	}

	lum := byRow[8]
	if lum.Name != "Luminária pendente de vidro" || lum.Category != "Iluminação" || lum.ImageURL != nil {
		t.Errorf("luminaria = %+v", lum)
	}

	rack := byRow[11]
	if rack.Code != "PROD-11" || !rack.CodeSynthesized || rack.PriceCents != 123450 {
		t.Errorf("rack = %+v", rack)
	}

	if batch.WithImages() != 3 {
		t.Errorf("WithImages = %d, want 3", batch.WithImages())
	}
}

func TestAssembleNearbyImages(t *testing.T) {
	images := map[int]string{2: "https://cdn/2.png", 5: "https://cdn/5.png", 7: "https://cdn/7.png", 10: "https://cdn/10.png"}
	tests := []struct {
		name   string
		nearby bool
		want   map[int]string
	}{
		{"exact row only", false, map[int]string{2: "https://cdn/2.png", 5: "https://cdn/5.png"}},
		{"row above", true, map[int]string{2: "https://cdn/2.png", 5: "https://cdn/5.png", 8: "https://cdn/7.png", 11: "https://cdn/10.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := Assemble(fixtureTable(), defaultResult(1), images, Options{RunAt: runAt, NearbyImages: tt.nearby})
			got := map[int]string{}
			for _, p := range batch.Products {
				if p.ImageURL != nil {
					got[p.SourceRow] = *p.ImageURL
				}
			}
			// row 6 must not take row 5's image, which the product on row 5 already holds
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("images by row = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleFloorOnlyRowIsExcluded(t *testing.T) {
	table := &sheet.Table{Rows: []sheet.RawRow{row(4, map[string]string{"F": "3º andar"})}}
	batch := Assemble(table, defaultResult(0), nil, Options{RunAt: runAt})
	if len(batch.Products) != 0 {
		t.Fatalf("floor label produced %+v", batch.Products)
	}
	if batch.SkippedFor(SkipDivider) != 1 {
		t.Fatalf("Skipped = %v", batch.Skipped)
	}
}

func TestAssembleMappedCategoryAndMaterials(t *testing.T) {
	res := mapping.Result{Mapping: mapping.Mapping{
		mapping.FieldName:         "A",
		mapping.FieldCode:         "B",
		mapping.FieldCategory:     "C",
		mapping.FieldMaterials:    "D",
		mapping.FieldManufacturer: "E",
	}}
	table := &sheet.Table{Rows: []sheet.RawRow{
		row(1, map[string]string{"A": "Cadeira Eames", "B": "CD-1", "C": "Cadeiras Design", "D": "madeira, metal; couro / "}),
		row(2, map[string]string{"A": "Modelo X1", "B": "X1", "E": "Sofá & Cia"}),
		row(3, map[string]string{"A": "Peça Avulsa", "B": "PA"}),
	}}
	batch := Assemble(table, res, nil, Options{RunAt: runAt})
	if len(batch.Products) != 3 {
		t.Fatalf("products = %+v skipped = %v", batch.Products, batch.Skipped)
	}
	p := batch.Products[0]
	if p.Category != "Cadeiras Design" || !reflect.DeepEqual(p.Materials, []string{"madeira", "metal", "couro"}) {
		t.Errorf("product 1 = %+v", p)
	}
	if got := batch.Products[1].Category; got != "Sofás" {
		t.Errorf("category from manufacturer = %q", got)
	}
	if got := batch.Products[2].Category; got != constants.DefaultCategory {
		t.Errorf("default category = %q", got)
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	first := Assemble(fixtureTable(), defaultResult(1), nil, Options{RunAt: runAt})
	second := Assemble(fixtureTable(), defaultResult(1), nil, Options{RunAt: runAt.Add(time.Hour)})

	if len(first.Products) != len(second.Products) {
		t.Fatalf("product counts differ: %d vs %d", len(first.Products), len(second.Products))
	}
	for i := range first.Products {
		a, b := first.Products[i], second.Products[i]
		if a.Name != b.Name || a.PriceCents != b.PriceCents || a.Category != b.Category {
			t.Errorf("row %d differs: %+v vs %+v", a.SourceRow, a, b)
		}
		timestamped := a.CodeSynthesized && a.Code != "PROD-11"
		if !timestamped && a.Code != b.Code {
			t.Errorf("row %d code %q vs %q", a.SourceRow, a.Code, b.Code)
		}
		if timestamped && a.Code == b.Code {
			t.Errorf("row %d synthesized code should carry the run time", a.SourceRow)
		}
	}
}

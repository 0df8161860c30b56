package mapping

import (
	"strings"

	"github.com/joseph-ayodele/catalog-ingest/internal/sheet"
	"github.com/joseph-ayodele/catalog-ingest/internal/utils"
)

// HeaderKeyword ties a folded header fragment to a field.
type HeaderKeyword struct {
	Keyword string
	Field   Field
}

// quantityField marks the stock quantity column during header detection. It is never
// part of a Mapping.
const quantityField Field = "quantity"

// HeaderKeywords is scanned in order for every header cell and the first fragment found
// wins. Specific fields come first so that "descrição do produto" is a description,
// "cód. fornecedor" a code and "nome do fabricante" a manufacturer.
var HeaderKeywords = []HeaderKeyword{
	{"descricao", FieldDescription},
	{"description", FieldDescription},
	{"detalhe", FieldDescription},
	{"especificacao", FieldDescription},
	{"dimens", FieldDimensions},
	{"medida", FieldDimensions},
	{"tamanho", FieldDimensions},
	{"materia", FieldMaterials},
	{"acabamento", FieldMaterials},
	{"revestimento", FieldMaterials},
	{"codigo", FieldCode},
	{"cod.", FieldCode},
	{"referencia", FieldCode},
	{"ref.", FieldCode},
	{"sku", FieldCode},
	{"code", FieldCode},
	{"fabricante", FieldManufacturer},
	{"fornecedor", FieldManufacturer},
	{"marca", FieldManufacturer},
	{"manufacturer", FieldManufacturer},
	{"brand", FieldManufacturer},
	{"categoria", FieldCategory},
	{"category", FieldCategory},
	{"linha", FieldCategory},
	{"preco", FieldPrice},
	{"valor", FieldPrice},
	{"price", FieldPrice},
	{"custo", FieldPrice},
	{"r$", FieldPrice},
	{"quantidade", quantityField},
	{"qtde", quantityField},
	{"qtd", quantityField},
	{"local", FieldLocation},
	{"andar", FieldLocation},
	{"pavimento", FieldLocation},
	{"ambiente", FieldLocation},
	{"setor", FieldLocation},
	{"location", FieldLocation},
	{"nome", FieldName},
	{"produto", FieldName},
	{"item", FieldName},
	{"peca", FieldName},
	{"modelo", FieldName},
	{"name", FieldName},
}

// MatchHeader returns the field the header text points at.
func MatchHeader(text string) (Field, bool) {
	folded := utils.Fold(text)
	if folded == "" {
		return "", false
	}
	for _, kw := range HeaderKeywords {
		if strings.Contains(folded, kw.Keyword) {
			return kw.Field, true
		}
	}
	return "", false
}

// HeaderMatch is the best header row found by DetectHeader.
type HeaderMatch struct {
	Row      int
	Mapping  Mapping
	Quantity string
	Matches  int
}

// DetectHeader scans the first scanRows rows for the one whose cells name the most
// distinct fields, requiring at least minMatches. Ties go to the earlier row.
func DetectHeader(rows []sheet.RawRow, scanRows, minMatches int) (HeaderMatch, bool) {
	var best HeaderMatch
	for i, row := range rows {
		if i >= scanRows {
			break
		}
		m, qty := headerMapping(row)
		n := len(m)
		if qty != "" {
			n++
		}
		if n > best.Matches {
			best = HeaderMatch{Row: row.Index, Mapping: m, Quantity: qty, Matches: n}
		}
	}
	if best.Matches < minMatches {
		return HeaderMatch{}, false
	}
	return best, true
}

func headerMapping(row sheet.RawRow) (Mapping, string) {
	m := Mapping{}
	qty := ""
	for _, col := range row.Columns() {
		v := row.Cell(col)
		// long prose and numbers are data, not titles
		if utils.RuneLen(v) > 40 || utils.IsNumeric(v) {
			continue
		}
		f, ok := MatchHeader(v)
		if !ok {
			continue
		}
		if f == quantityField {
			if qty == "" {
				qty = col
			}
			continue
		}
		if _, taken := m[f]; !taken {
			m[f] = col
		}
	}
	return m, qty
}

package catalog

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/catalog-ingest/constants"
	"github.com/joseph-ayodele/catalog-ingest/internal/utils"
)

// MatchKeyword returns the label of the first keyword in table that occurs in text as
// a whole word.
func MatchKeyword(text string, table []constants.Keyword) (string, bool) {
	folded := utils.Fold(text)
	if folded == "" {
		return "", false
	}
	for _, kw := range table {
		if utils.ContainsWord(folded, kw.Keyword) {
			return kw.Label, true
		}
	}
	return "", false
}

// MatchAll returns every distinct label whose keyword occurs in text, in table order.
// Text consumed by a longer keyword earlier in the table is not matched again, so
// "madeira maciça" yields only "Madeira Maciça".
func MatchAll(text string, table []constants.Keyword) []string {
	folded := utils.Fold(text)
	if folded == "" {
		return nil
	}
	var labels []string
	seen := map[string]struct{}{}
	for _, kw := range table {
		found := false
		for {
			i := utils.IndexWord(folded, kw.Keyword)
			if i < 0 {
				break
			}
			found = true
			folded = folded[:i] + strings.Repeat(" ", len(kw.Keyword)) + folded[i+len(kw.Keyword):]
		}
		if !found {
			continue
		}
		if _, dup := seen[kw.Label]; dup {
			continue
		}
		seen[kw.Label] = struct{}{}
		labels = append(labels, kw.Label)
	}
	return labels
}

// HeaderTokens are column titles. A cell whose first word is one of these, with no
// digits and at most three words, marks the row as a header.
var HeaderTokens = map[string]struct{}{
	"nome": {}, "produto": {}, "produtos": {}, "item": {}, "itens": {},
	"codigo": {}, "cod": {}, "referencia": {}, "ref": {}, "sku": {},
	"preco": {}, "valor": {}, "total": {}, "custo": {},
	"descricao": {}, "categoria": {}, "fabricante": {}, "fornecedor": {}, "marca": {},
	"local": {}, "localizacao": {}, "ambiente": {},
	"materiais": {}, "material": {}, "acabamento": {},
	"dimensoes": {}, "medidas": {}, "quantidade": {}, "qtd": {}, "qtde": {},
	"foto": {}, "imagem": {}, "obs": {}, "observacao": {}, "observacoes": {},
}

var rePunct = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// IsHeaderCell reports whether v reads like a column title.
func IsHeaderCell(v string) bool {
	if utils.HasDigit(v) || utils.RuneLen(v) > 30 {
		return false
	}
	words := strings.Fields(rePunct.ReplaceAllString(utils.Fold(v), " "))
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	_, ok := HeaderTokens[words[0]]
	return ok
}

// codeHeaderTokens are what a code column holds on its title row.
var codeHeaderTokens = map[string]struct{}{"cod": {}, "cod.": {}, "codigo": {}, "codigo:": {}, "ref": {}, "ref.": {}}

// IsCodeHeader reports whether v is a code column title rather than a code.
func IsCodeHeader(v string) bool {
	_, ok := codeHeaderTokens[utils.Fold(v)]
	return ok
}

var dividerPatterns = []*regexp.Regexp{
	// price tiers: "12k", "1,5 k", "ate 5k", "10k - 20k", "acima de r$ 30k"
	regexp.MustCompile(`^((ate|acima de|abaixo de|de|faixa)\s*)?(r\$\s*)?\d+([.,]\d+)?\s*k(\s*(-|a|ate)\s*(r\$\s*)?\d+([.,]\d+)?\s*k)?$`),
	// floors: "3º andar", "3o pavimento", "2 piso", "andar 4"
	regexp.MustCompile(`^\d+\s*[ºo°ª]?\s*(andar|pavimento|piso)$`),
	regexp.MustCompile(`^(andar|pavimento|piso)\s*\d+$`),
	regexp.MustCompile(`^(terreo|subsolo|cobertura|mezanino)(\s*\d+)?$`),
}

// IsDivider reports whether v is a section label (a price tier or a floor) rather
// than product data.
func IsDivider(v string) bool {
	folded := utils.Fold(v)
	if folded == "" {
		return false
	}
	for _, re := range dividerPatterns {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

package llm

import (
	"strconv"
	"strings"
)

// fieldGuide explains each mapping key in terms a model can match against sample values.
var fieldGuide = map[string]string{
	"nome":       "product name, free text such as 'Sofá 3 lugares' or 'Poltrona Charles Eames'",
	"codigo":     "product code or SKU, short alphanumeric identifiers that are mostly unique per row",
	"preco":      "unit price, numbers or currency strings such as 'R$ 1.234,56'",
	"descricao":  "longer description text",
	"categoria":  "product category such as 'Cadeiras' or 'Mesas'",
	"fabricante": "manufacturer, brand or supplier",
	"local":      "where the item is placed, such as a floor ('3º andar') or a room",
	"materiais":  "materials, often comma separated ('madeira, metal')",
	"dimensoes":  "dimensions such as '200x90x85 cm'",
}

// BuildSystemPrompt composes the system message: the mapping keys, what each one means,
// and strict formatting rules.
func BuildSystemPrompt(req InferRequest) string {
	keys := req.keys()
	var guide []string
	for _, k := range keys {
		if d, ok := fieldGuide[k]; ok {
			guide = append(guide, "'"+k+"': "+d)
		} else {
			guide = append(guide, "'"+k+"'")
		}
	}

	parts := []string{
		"You map the columns of a furniture catalog spreadsheet (Brazilian Portuguese) to catalog fields.",
		"Return ONLY a JSON object that matches the provided JSON Schema.",
		"Keys (all required): " + strings.Join(keys, ", ") + ".",
		"Field meanings: " + strings.Join(guide, "; ") + ".",
		"Each value is an uppercase column letter taken from the sample (for example \"A\" or \"L\"), or null when no column fits.",
		"Never assign the same column to two keys. Prefer null over a weak guess.",
		"Header rows, floor labels and price-range labels are noise; judge columns by the bulk of their values.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt lists the sampled columns.
func BuildUserPrompt(req InferRequest) string {
	var b strings.Builder
	if name := strings.TrimSpace(req.Filename); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	if sheet := strings.TrimSpace(req.SheetName); sheet != "" {
		b.WriteString("Sheet: ")
		b.WriteString(sheet)
		b.WriteString("\n")
	}
	if req.SampleRows > 0 {
		b.WriteString("Sampled rows: ")
		b.WriteString(strconv.Itoa(req.SampleRows))
		b.WriteString("\n")
	}
	b.WriteString("\nColumns:\n")
	for _, c := range req.Columns {
		b.WriteString("- ")
		b.WriteString(c.Column)
		if c.Header != "" {
			b.WriteString(" (header \"")
			b.WriteString(c.Header)
			b.WriteString("\")")
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(quoteAll(c.Examples), ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// BuildMessages returns the chat messages for one inference call.
func BuildMessages(req InferRequest) []map[string]any {
	return []map[string]any{
		{"role": "system", "content": BuildSystemPrompt(req)},
		{"role": "user", "content": BuildUserPrompt(req) + "\nReturn ONLY JSON that matches the provided schema."},
		{"role": "system", "content": "JSON Schema:\n" + mustJSON(BuildMappingJSONSchema(req.keys()))},
	}
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if r := []rune(v); len(r) > 80 {
			v = string(r[:80]) + "…"
		}
		out[i] = "\"" + strings.ReplaceAll(v, "\"", "'") + "\""
	}
	return out
}

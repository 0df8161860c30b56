package llm

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	reColumn       = regexp.MustCompile(ColumnPattern)
	reColumnPrefix = regexp.MustCompile(`^(?i)(col(una|umn)?\.?)\s*`)
)

// keySynonyms renames keys models tend to produce instead of the requested ones.
var keySynonyms = map[string]string{
	"name":         "nome",
	"code":         "codigo",
	"código":       "codigo",
	"sku":          "codigo",
	"price":        "preco",
	"preço":        "preco",
	"description":  "descricao",
	"descrição":    "descricao",
	"category":     "categoria",
	"manufacturer": "fabricante",
	"brand":        "fabricante",
	"marca":        "fabricante",
	"location":     "local",
	"localizacao":  "local",
	"localização":  "local",
	"materials":    "materiais",
	"material":     "materiais",
	"dimensions":   "dimensoes",
	"dimensões":    "dimensoes",
	"medidas":      "dimensoes",
}

// SanitizeMapping coerces a near-miss mapping document into the schema shape:
// synonyms are renamed, column values are trimmed and upper-cased, unusable values
// become null, unknown keys are dropped and missing keys are added as null.
// It returns the cleaned document and the keys it had to change.
func SanitizeMapping(doc []byte, keys []string) ([]byte, []string, error) {
	if len(keys) == 0 {
		keys = MappingKeys
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}

	var changed []string
	out := make(map[string]any, len(keys))
	names := slices.Sorted(maps.Keys(m))
	// exact keys first so a synonym never overwrites the requested key
	for _, exact := range []bool{true, false} {
		for _, k := range names {
			key := strings.ToLower(strings.TrimSpace(k))
			_, isAllowed := allowed[key]
			if exact != isAllowed {
				continue
			}
			if !exact {
				to, ok := keySynonyms[key]
				if _, known := allowed[to]; !ok || !known {
					changed = append(changed, k+"(unknown)")
					continue
				}
				if _, taken := out[to]; taken {
					changed = append(changed, k+"(duplicate)")
					continue
				}
				changed = append(changed, k+"->"+to)
				key = to
			}
			out[key] = columnValue(m[k], key, &changed)
		}
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = nil
			changed = append(changed, k+"(missing)")
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, changed, nil
}

func columnValue(v any, key string, changed *[]string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(reColumnPrefix.ReplaceAllString(strings.TrimSpace(t), "")))
		if !reColumn.MatchString(s) {
			*changed = append(*changed, key+"(invalid)")
			return nil
		}
		if s != t {
			*changed = append(*changed, key)
		}
		return s
	default:
		*changed = append(*changed, key+"(type)")
		return nil
	}
}

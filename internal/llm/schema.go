package llm

// ColumnPattern matches a spreadsheet column letter.
const ColumnPattern = `^[A-Z]{1,3}$`

// BuildMappingJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every key is required and is either a column letter or null.
// We pass this to OpenAI as a structured output constraint and also use it locally to validate.
func BuildMappingJSONSchema(keys []string) map[string]any {
	if len(keys) == 0 {
		keys = MappingKeys
	}
	props := make(map[string]any, len(keys))
	for _, k := range keys {
		props[k] = columnProp()
	}
	required := make([]string, len(keys))
	copy(required, keys)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func columnProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string", "pattern": ColumnPattern},
			map[string]any{"type": "null"},
		},
	}
}

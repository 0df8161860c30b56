package llm

import (
	"bytes"
	"encoding/json"
)

// ExtractJSONObject strips markdown fences and surrounding prose from a model reply,
// returning the outermost {...} span. The input is returned trimmed when no object
// delimiters are found.
func ExtractJSONObject(content []byte) []byte {
	b := bytes.TrimSpace(content)
	if bytes.HasPrefix(b, []byte("```")) {
		if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
			b = b[nl+1:]
		}
		b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	}
	start := bytes.IndexByte(b, '{')
	end := bytes.LastIndexByte(b, '}')
	if start < 0 || end <= start {
		return bytes.TrimSpace(b)
	}
	return b[start : end+1]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

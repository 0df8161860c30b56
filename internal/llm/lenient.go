package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiled mapping schemas, keyed by the joined key set
var mappingSchemas sync.Map

func mappingSchema(keys []string) (*jsonschema.Schema, error) {
	id := strings.Join(keys, "\x00")
	if s, ok := mappingSchemas.Load(id); ok {
		return s.(*jsonschema.Schema), nil
	}
	b, err := json.Marshal(BuildMappingJSONSchema(keys))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mapping.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("mapping.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	s, _ := mappingSchemas.LoadOrStore(id, schema)
	return s.(*jsonschema.Schema), nil
}

func validateMapping(schema *jsonschema.Schema, doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeMapping validates a model reply against the mapping schema and decodes it
// into key -> column letter (nil when the model found no column). Replies that fail
// strict validation get one lenient pass through SanitizeMapping.
func DecodeMapping(content []byte, keys []string, logger *slog.Logger) (map[string]*string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(keys) == 0 {
		keys = MappingKeys
	}
	schema, err := mappingSchema(keys)
	if err != nil {
		return nil, err
	}

	doc := ExtractJSONObject(content)
	if err := validateMapping(schema, doc); err != nil {
		cleaned, changed, sErr := SanitizeMapping(doc, keys)
		if sErr != nil {
			return nil, fmt.Errorf("mapping response is not a JSON object: %w", sErr)
		}
		if vErr := validateMapping(schema, cleaned); vErr != nil {
			return nil, fmt.Errorf("schema validation failed: %w", vErr)
		}
		logger.Warn("llm.mapping.lenient_sanitize_applied", "changed", changed, "strict_error", err)
		doc = cleaned
	}

	var out map[string]*string
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}
	return out, nil
}

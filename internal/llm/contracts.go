package llm

import "context"

// MappingKeys are the JSON keys of a column mapping response, one per catalog field.
var MappingKeys = []string{
	"nome",
	"codigo",
	"preco",
	"descricao",
	"categoria",
	"fabricante",
	"local",
	"materiais",
	"dimensoes",
}

// ColumnSample is a handful of distinct values observed in one column.
type ColumnSample struct {
	Column   string   `json:"column"`
	Header   string   `json:"header,omitempty"`
	Examples []string `json:"examples"`
}

// InferRequest describes a sheet well enough for a model to guess its layout.
type InferRequest struct {
	Filename   string
	SheetName  string
	SampleRows int
	Columns    []ColumnSample
	Keys       []string // defaults to MappingKeys
}

// ColumnInferrer is the interface the column mapper depends on. It returns the raw JSON
// object produced by the model; callers validate it.
type ColumnInferrer interface {
	InferColumns(ctx context.Context, req InferRequest) ([]byte, error)
}

// ColumnInferrerFunc adapts a function to ColumnInferrer.
type ColumnInferrerFunc func(ctx context.Context, req InferRequest) ([]byte, error)

func (f ColumnInferrerFunc) InferColumns(ctx context.Context, req InferRequest) ([]byte, error) {
	return f(ctx, req)
}

func (r InferRequest) keys() []string {
	if len(r.Keys) == 0 {
		return MappingKeys
	}
	return r.Keys
}

package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/catalog-ingest/internal/llm"
	"github.com/joseph-ayodele/catalog-ingest/internal/metrics"
	"github.com/joseph-ayodele/catalog-ingest/internal/sheet"
)

// Fallback reasons.
const (
	ReasonNoHeader   = "no_header"
	ReasonNoInferrer = "no_inferrer"
	ReasonTimeout    = "timeout"
	ReasonError      = "error"
	ReasonMalformed  = "malformed"
	ReasonNoIdentity = "no_identity"
)

// Config configures a Mapper. Zero values take the documented defaults.
type Config struct {
	Strategy Strategy
	// Default is used by the fixed strategy and whenever another strategy fails.
	// Defaults to DefaultLayout().
	Default  *Layout
	Inferrer llm.ColumnInferrer
	// InferTimeout bounds one inference call, default 20s.
	InferTimeout time.Duration
	// HeaderScanRows is how many leading rows may hold the header, default 10.
	HeaderScanRows int
	// MinHeaderMatches is the minimum fields a header row must name, default 2.
	MinHeaderMatches int
	// SampleRows is how many rows are sampled for inference, default 30.
	SampleRows int
	// MaxExamples is the number of distinct values sent per column, default 10.
	MaxExamples int
	Logger      *slog.Logger
}

// Mapper resolves a Mapping for a sheet. It never fails: the worst case is the
// default layout.
type Mapper struct {
	cfg    Config
	layout Layout
	logger *slog.Logger
}

func New(cfg Config) *Mapper {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyAuto
	}
	layout := DefaultLayout()
	if cfg.Default != nil {
		layout = *cfg.Default
	}
	if cfg.InferTimeout <= 0 {
		cfg.InferTimeout = 20 * time.Second
	}
	if cfg.HeaderScanRows <= 0 {
		cfg.HeaderScanRows = 10
	}
	if cfg.MinHeaderMatches <= 0 {
		cfg.MinHeaderMatches = 2
	}
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = 30
	}
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{cfg: cfg, layout: layout, logger: logger}
}

// Map resolves the column mapping for table. filename is only passed along as a hint
// to the inferrer.
func (m *Mapper) Map(ctx context.Context, table *sheet.Table, filename string) Result {
	res := m.resolve(ctx, table, filename)
	metrics.RecordMapping(string(res.Source))
	if res.Fallback {
		metrics.RecordFallback(res.Reason)
	}
	m.logger.Info("mapping.resolved",
		"source", res.Source,
		"fallback", res.Fallback,
		"reason", res.Reason,
		"header_row", res.HeaderRow,
		"mapping", res.Mapping.String(),
	)
	return res
}

func (m *Mapper) resolve(ctx context.Context, table *sheet.Table, filename string) Result {
	header, found := DetectHeader(table.Rows, m.cfg.HeaderScanRows, m.cfg.MinHeaderMatches)

	switch m.cfg.Strategy {
	case StrategyFixed:
		return m.fixed(SourceFixed, header.Row, false, "")

	case StrategyHeuristic:
		if found && header.Mapping.HasIdentity() {
			return heuristicResult(header)
		}
		return m.fixed(SourceDefault, header.Row, true, ReasonNoHeader)

	case StrategyInferred:
		if m.cfg.Inferrer == nil {
			return m.fixed(SourceDefault, header.Row, true, ReasonNoInferrer)
		}
		return m.inferred(ctx, table, filename, header)

	default:
		if found && header.Mapping.HasIdentity() {
			return heuristicResult(header)
		}
		if m.cfg.Inferrer != nil {
			return m.inferred(ctx, table, filename, header)
		}
		return m.fixed(SourceDefault, header.Row, false, ReasonNoHeader)
	}
}

func heuristicResult(h HeaderMatch) Result {
	return Result{Mapping: h.Mapping, Source: SourceHeuristic, Quantity: h.Quantity, HeaderRow: h.Row}
}

func (m *Mapper) fixed(source Source, headerRow int, fallback bool, reason string) Result {
	return Result{
		Mapping:   m.layout.Mapping.Clone(),
		Source:    source,
		Quantity:  m.layout.Quantity,
		HeaderRow: headerRow,
		Fallback:  fallback,
		Reason:    reason,
	}
}

var (
	errMalformed  = errors.New("malformed mapping response")
	errNoIdentity = errors.New("inferred mapping has neither name nor code")
)

func (m *Mapper) inferred(ctx context.Context, table *sheet.Table, filename string, header HeaderMatch) Result {
	mp, err := m.infer(ctx, table, filename, header)
	if err != nil {
		reason := ReasonError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = ReasonTimeout
		case errors.Is(err, errNoIdentity):
			reason = ReasonNoIdentity
		case errors.Is(err, errMalformed):
			reason = ReasonMalformed
		}
		m.logger.Warn("mapping.infer.fallback", "reason", reason, "error", err)
		return m.fixed(SourceDefault, header.Row, true, reason)
	}
	return Result{Mapping: mp, Source: SourceInferred, Quantity: header.Quantity, HeaderRow: header.Row}
}

func (m *Mapper) infer(ctx context.Context, table *sheet.Table, filename string, header HeaderMatch) (Mapping, error) {
	req := BuildInferRequest(table, header.Row, m.cfg.SampleRows, m.cfg.MaxExamples)
	req.Filename = filename

	ctx, cancel := context.WithTimeout(ctx, m.cfg.InferTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	raw, err := m.cfg.Inferrer.InferColumns(ctx, req)
	metrics.InferenceDuration.Observe(timer.Duration().Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, err
	}

	decoded, err := llm.DecodeMapping(raw, llm.MappingKeys, m.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	present := make(map[string]struct{}, len(table.Columns))
	for _, c := range table.Columns {
		present[c] = struct{}{}
	}
	out := Mapping{}
	claimed := map[string]Field{}
	for _, f := range Fields {
		col := decoded[f.WireKey()]
		if col == nil {
			continue
		}
		if _, ok := present[*col]; !ok {
			m.logger.Debug("mapping.infer.absent_column", "field", f, "column", *col)
			continue
		}
		if prev, dup := claimed[*col]; dup {
			m.logger.Debug("mapping.infer.duplicate_column", "field", f, "column", *col, "kept", prev)
			continue
		}
		claimed[*col] = f
		out[f] = *col
	}
	if !out.HasIdentity() {
		return nil, errNoIdentity
	}
	return out, nil
}

// BuildInferRequest samples up to sampleRows rows of table, keeping at most
// maxExamples distinct values per column. Header text, when headerRow is known, is
// passed separately and not counted as an example.
func BuildInferRequest(table *sheet.Table, headerRow, sampleRows, maxExamples int) llm.InferRequest {
	headers := map[string]string{}
	examples := map[string][]string{}
	seen := map[string]map[string]struct{}{}

	sampled := 0
	for _, row := range table.Rows {
		if sampled >= sampleRows {
			break
		}
		sampled++
		for col, v := range row.Cells {
			if row.Index == headerRow {
				headers[col] = v
				continue
			}
			if len(examples[col]) >= maxExamples {
				continue
			}
			if seen[col] == nil {
				seen[col] = map[string]struct{}{}
			}
			if _, dup := seen[col][v]; dup {
				continue
			}
			seen[col][v] = struct{}{}
			examples[col] = append(examples[col], v)
		}
	}

	req := llm.InferRequest{SheetName: table.Sheet, SampleRows: sampled}
	for _, col := range table.Columns {
		if len(examples[col]) == 0 && headers[col] == "" {
			continue
		}
		req.Columns = append(req.Columns, llm.ColumnSample{Column: col, Header: headers[col], Examples: examples[col]})
	}
	return req
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/catalog-ingest/internal/llm"
)

var errNoChoices = errors.New("no choices in openai response")

// InferColumns implements llm.ColumnInferrer using chat/completions in JSON mode.
// The returned bytes are the model's message content, unvalidated.
func (c *Client) InferColumns(ctx context.Context, req llm.InferRequest) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.infer.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"columns", len(req.Columns),
		"sample_rows", req.SampleRows,
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        llm.BuildMessages(req),
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, llm.SendOptions{
		Headers:     map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		MaxAttempts: c.cfg.MaxAttempts,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.infer.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.infer.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.infer.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, errNoChoices
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.infer.ok",
		"req_id", rid,
		"content_bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(content), nil
}

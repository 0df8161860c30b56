package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func col(s string) *string { return &s }

func TestDecodeMappingStrict(t *testing.T) {
	doc := `{"nome":"A","codigo":"F","preco":"L","descricao":"G","categoria":null,"fabricante":"C","local":"B","materiais":null,"dimensoes":null}`
	m, err := DecodeMapping([]byte(doc), nil, nil)
	if err != nil {
		t.Fatalf("DecodeMapping: %v", err)
	}
	if m["nome"] == nil || *m["nome"] != "A" || *m["preco"] != "L" {
		t.Fatalf("mapping = %v", m)
	}
	if m["categoria"] != nil {
		t.Errorf("categoria = %q, want nil", *m["categoria"])
	}
}

func TestDecodeMappingLenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]*string
	}{
		{
			name: "fenced lowercase with missing keys",
			in:   "```json\n{\"nome\": \"a\", \"codigo\": \"f\"}\n```",
			want: map[string]*string{"nome": col("A"), "codigo": col("F"), "preco": nil},
		},
		{
			name: "english synonyms and prose",
			in:   `Here you go: {"name": "B", "price": "Coluna D", "sku": "C", "notes": "x"}`,
			want: map[string]*string{"nome": col("B"), "preco": col("D"), "codigo": col("C")},
		},
		{
			name: "exact key beats synonym",
			in:   `{"nome": "A", "name": "Z"}`,
			want: map[string]*string{"nome": col("A")},
		},
		{
			name: "unusable values become null",
			in:   `{"nome": "first column", "codigo": 6, "preco": ""}`,
			want: map[string]*string{"nome": nil, "codigo": nil, "preco": nil},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeMapping([]byte(tc.in), nil, nil)
			if err != nil {
				t.Fatalf("DecodeMapping: %v", err)
			}
			if len(got) != len(MappingKeys) {
				t.Fatalf("got %d keys, want %d", len(got), len(MappingKeys))
			}
			for k, want := range tc.want {
				g := got[k]
				switch {
				case want == nil && g != nil:
					t.Errorf("%s = %q, want null", k, *g)
				case want != nil && (g == nil || *g != *want):
					t.Errorf("%s = %v, want %q", k, g, *want)
				}
			}
		})
	}
}

func TestDecodeMappingRejectsNonObject(t *testing.T) {
	for _, in := range []string{"", "I could not find any columns", `["A","B"]`} {
		if _, err := DecodeMapping([]byte(in), nil, nil); err == nil {
			t.Errorf("DecodeMapping(%q) succeeded", in)
		}
	}
}

func TestMappingSchemaRequiresEveryKey(t *testing.T) {
	schema, err := mappingSchema(MappingKeys)
	if err != nil {
		t.Fatal(err)
	}
	if err := validateMapping(schema, []byte(`{"nome":"A"}`)); err == nil {
		t.Fatal("partial document passed strict validation")
	}
}

func TestMappingSchemaCompiledOncePerKeySet(t *testing.T) {
	a, err := mappingSchema([]string{"nome", "preco"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := mappingSchema([]string{"nome", "preco"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same key set compiled twice")
	}
	c, err := mappingSchema([]string{"nome"})
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Fatal("different key sets share a schema")
	}
	if err := validateMapping(c, []byte(`{"nome":"A"}`)); err != nil {
		t.Errorf("narrow schema rejected its own keys: %v", err)
	}
	if err := validateMapping(a, []byte(`{"nome":"A"}`)); err == nil {
		t.Error("wide schema accepted a missing key")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	req := InferRequest{
		Filename:   "fornecedor.xlsx",
		SampleRows: 30,
		Columns: []ColumnSample{
			{Column: "A", Header: "Produto", Examples: []string{"Sofá \"Lina\"", "Mesa Jantar"}},
			{Column: "L", Examples: []string{"1234.5"}},
		},
	}
	got := BuildUserPrompt(req)
	for _, want := range []string{"fornecedor.xlsx", "Sampled rows: 30", `- A (header "Produto"): "Sofá 'Lina'", "Mesa Jantar"`, `- L: "1234.5"`} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if sys := BuildSystemPrompt(req); !strings.Contains(sys, "dimensoes") {
		t.Errorf("system prompt does not list keys: %s", sys)
	}
}

func TestSendJSONRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("header not forwarded")
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": body["q"]})
	}))
	defer srv.Close()

	raw, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{"q": "ok"},
		SendOptions{Headers: map[string]string{"X-Test": "1"}, MaxAttempts: 2, Backoff: time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	if calls.Load() != 2 || !strings.Contains(string(raw), `"echo":"ok"`) {
		t.Fatalf("calls=%d raw=%s", calls.Load(), raw)
	}
}

func TestSendJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := SendJSON(context.Background(), srv.Client(), srv.URL, map[string]any{}, SendOptions{MaxAttempts: 3, Backoff: time.Millisecond}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := map[string]string{
		"{\"a\":1}":                     "{\"a\":1}",
		"```json\n{\"a\":1}\n```":       "{\"a\":1}",
		"sure! {\"a\":{\"b\":2}} done.": "{\"a\":{\"b\":2}}",
		"  nothing  ":                   "nothing",
	}
	for in, want := range tests {
		if got := string(ExtractJSONObject([]byte(in))); got != want {
			t.Errorf("ExtractJSONObject(%q) = %q, want %q", in, got, want)
		}
	}
}

// Package extract pulls structured incident fields out of free-form
// transcripts through an interchangeable LLM backend.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FieldResult is one extracted field value with the model's confidence.
type FieldResult struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Provider extracts the requested fields from a transcript.
type Provider interface {
	ExtractFields(ctx context.Context, transcript string, fields []string) (map[string]FieldResult, error)
}

// Config selects and tunes a provider backend.
type Config struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// NewProvider builds the backend named by cfg.Provider.
func NewProvider(cfg Config, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "ollama":
		return newOllamaProvider(cfg, client), nil
	case "openai", "vllm":
		return newOpenAIProvider(cfg, client), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (use ollama, vllm, or openai)", cfg.Provider)
	}
}

// emptyResults returns a zero-confidence result for every field, used when
// the backend is unreachable or returned garbage.
func emptyResults(fields []string) map[string]FieldResult {
	out := make(map[string]FieldResult, len(fields))
	for _, f := range fields {
		out[f] = FieldResult{}
	}
	return out
}

// sanitizeResults maps the raw model object onto the requested fields,
// clamping confidence into [0,1] and zeroing it for empty values.
func sanitizeResults(data map[string]interface{}, fields []string) map[string]FieldResult {
	out := make(map[string]FieldResult, len(fields))
	for _, f := range fields {
		entry, ok := data[f].(map[string]interface{})
		if !ok {
			if raw, present := data[f]; present {
				out[f] = FieldResult{Value: strings.TrimSpace(fmt.Sprint(raw))}
			} else {
				out[f] = FieldResult{}
			}
			continue
		}
		val := strings.TrimSpace(fmt.Sprint(entry["value"]))
		if entry["value"] == nil {
			val = ""
		}
		conf, _ := entry["confidence"].(float64)
		if val == "" {
			conf = 0
		}
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out[f] = FieldResult{Value: val, Confidence: conf}
	}
	return out
}

func buildExtractionPrompt(transcript string, fields []string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the incident transcript.\n")
	b.WriteString("Return STRICT JSON ONLY: an object keyed by field name, each value\n")
	b.WriteString("an object {\"value\": string, \"confidence\": number in [0,1]}.\n")
	b.WriteString("Use an empty value with confidence 0 when the transcript does not\n")
	b.WriteString("mention the field. Do not invent facts.\n\nFields:\n")
	for _, f := range fields {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

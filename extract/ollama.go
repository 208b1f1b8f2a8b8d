package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const (
	defaultOllamaModel   = "qwen2.5:7b"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultMaxTokens     = 4096
)

// ollamaProvider calls a local Ollama server's generate endpoint.
type ollamaProvider struct {
	client      *http.Client
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newOllamaProvider(cfg Config, client *http.Client) *ollamaProvider {
	p := &ollamaProvider{
		client:      client,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if p.model == "" {
		p.model = defaultOllamaModel
	}
	if p.baseURL == "" {
		p.baseURL = defaultOllamaBaseURL
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p
}

func (p *ollamaProvider) ExtractFields(ctx context.Context, transcript string, fields []string) (map[string]FieldResult, error) {
	payload := map[string]interface{}{
		"model":  p.model,
		"prompt": buildExtractionPrompt(transcript, fields),
		"stream": false,
		"format": "json",
		"options": map[string]interface{}{
			"temperature": p.temperature,
			"num_predict": p.maxTokens,
		},
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return emptyResults(fields), err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("ollama request failed: %v", err)
		return emptyResults(fields), err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		log.Printf("ollama request failed: %v", err)
		return emptyResults(fields), err
	}

	var wrapper struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return emptyResults(fields), err
	}
	data := repairJSONObject(wrapper.Response)
	return sanitizeResults(data, fields), nil
}

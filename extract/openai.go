package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

const (
	defaultOpenAIModel   = "Qwen/Qwen2.5-7B-Instruct"
	defaultOpenAIBaseURL = "http://localhost:8000/v1"
)

// openAIProvider talks to any OpenAI-compatible chat completions endpoint,
// including a local vLLM server.
type openAIProvider struct {
	client      *http.Client
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newOpenAIProvider(cfg Config, client *http.Client) *openAIProvider {
	p := &openAIProvider{
		client:      client,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if p.baseURL == "" {
		p.baseURL = defaultOpenAIBaseURL
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	return p
}

func (p *openAIProvider) ExtractFields(ctx context.Context, transcript string, fields []string) (map[string]FieldResult, error) {
	payload := map[string]interface{}{
		"model":       p.model,
		"temperature": p.temperature,
		"max_tokens":  p.maxTokens,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]string{
			{"role": "system", "content": "You are a helpful assistant that extracts structured incident data."},
			{"role": "user", "content": buildExtractionPrompt(transcript, fields)},
		},
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return emptyResults(fields), err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("llm request failed: %v", err)
		return emptyResults(fields), err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("llm status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		log.Printf("llm request failed: %v", err)
		return emptyResults(fields), err
	}

	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return emptyResults(fields), err
	}
	if len(wrapper.Choices) == 0 {
		return emptyResults(fields), errors.New("empty llm response")
	}
	data := repairJSONObject(wrapper.Choices[0].Message.Content)
	return sanitizeResults(data, fields), nil
}

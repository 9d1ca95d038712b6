package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.Generator and port.Embedder using the Ollama
// REST API. Structured results are requested with JSON-mode chat completions
// and decoded into typed values; a decode failure is a generation failure.
type OllamaProvider struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama-backed provider with separate
// embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig) *OllamaProvider {
	return &OllamaProvider{
		embed:      embed,
		chat:       chat,
		httpClient: &http.Client{},
	}
}

// ModelName returns the chat model identifier.
func (o *OllamaProvider) ModelName() string {
	return o.chat.Model
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]interface{}{
		"model": o.embed.Model,
		"input": texts,
	}

	body, err := o.post(ctx, o.embed, "/api/embed", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

// GenerateAnalyses decomposes one commit into its logical sub-commits.
func (o *OllamaProvider) GenerateAnalyses(ctx context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error) {
	var result struct {
		Analysis []struct {
			Title       string `json:"title"`
			Idea        string `json:"idea"`
			Description string `json:"description"`
			Type        string `json:"type"`
		} `json:"analysis"`
	}

	if err := o.chatJSON(ctx, commitAnalysisSystemPrompt, commitPrompt(commit), &result); err != nil {
		return nil, fmt.Errorf("generate analyses: %w", err)
	}

	analyses := make([]domain.SubCommitAnalysis, 0, len(result.Analysis))
	for _, a := range result.Analysis {
		if strings.TrimSpace(a.Title) == "" {
			continue
		}
		analyses = append(analyses, domain.SubCommitAnalysis{
			Title:       a.Title,
			Idea:        a.Idea,
			Description: a.Description,
			Type:        domain.ParseChangeType(a.Type),
		})
	}
	return analyses, nil
}

// AttributeFiles decides which of the commit's files belong to the sub-commit.
func (o *OllamaProvider) AttributeFiles(ctx context.Context, analysis domain.SubCommitAnalysis, files []domain.File) ([]string, error) {
	var result struct {
		Files []string `json:"files"`
	}

	if err := o.chatJSON(ctx, fileAttributionSystemPrompt, fileAttributionPrompt(analysis, files), &result); err != nil {
		return nil, fmt.Errorf("attribute files: %w", err)
	}
	return result.Files, nil
}

// GenerateAnswer produces a natural-language answer grounded in the sources.
func (o *OllamaProvider) GenerateAnswer(ctx context.Context, query string, sources []domain.SubCommitAnalysis) (string, error) {
	answer, err := o.chatText(ctx, answerSystemPrompt, answerPrompt(query, sources))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// GenerateEpicTitle produces a short label grouping related sub-commits.
func (o *OllamaProvider) GenerateEpicTitle(ctx context.Context, subcommits []domain.SubCommitAnalysis) (string, error) {
	var result struct {
		Title string `json:"title"`
	}

	if err := o.chatJSON(ctx, epicSystemPrompt, epicPrompt(subcommits), &result); err != nil {
		return "", fmt.Errorf("generate epic title: %w", err)
	}
	if strings.TrimSpace(result.Title) == "" {
		return "", fmt.Errorf("generate epic title: empty title")
	}
	return strings.TrimSpace(result.Title), nil
}

// chatText sends a chat completion and returns the raw response text.
func (o *OllamaProvider) chatText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chat decode: %w", err)
	}
	return resp.Message.Content, nil
}

// chatJSON sends a JSON-mode chat completion and decodes the content into out.
func (o *OllamaProvider) chatJSON(ctx context.Context, systemPrompt, userPrompt string, out interface{}) error {
	payload := map[string]interface{}{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"format": "json",
		"stream": false,
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return err
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("chat decode: %w", err)
	}

	content := stripFences(resp.Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("structured decode: %w", err)
	}
	return nil
}

// stripFences removes a Markdown code fence some models wrap JSON output in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (o *OllamaProvider) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

const (
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultOllamaModel     = "mxbai-embed-large"
	defaultOllamaDimension = 1024
)

// OllamaClient embeds text via a local Ollama-compatible API.
type OllamaClient struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*OllamaClient)

// WithOllamaBaseURL sets the inference server URL.
func WithOllamaBaseURL(url string) OllamaOption {
	return func(c *OllamaClient) { c.baseURL = url }
}

// WithOllamaModel sets the model name and its vector dimension.
func WithOllamaModel(model string, dimension int) OllamaOption {
	return func(c *OllamaClient) {
		c.model = model
		c.dimension = dimension
	}
}

// NewOllamaClient creates a local embedding client. Defaults to
// localhost:11434 with mxbai-embed-large (1024 dimensions).
func NewOllamaClient(opts ...OllamaOption) *OllamaClient {
	c := &OllamaClient{
		baseURL:   defaultOllamaBaseURL,
		model:     defaultOllamaModel,
		dimension: defaultOllamaDimension,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// ModelInfo reports the configured model and its dimension.
func (c *OllamaClient) ModelInfo() storage.ModelInfo {
	return storage.ModelInfo{Name: c.model, Dimension: c.dimension}
}

// Embed embeds a single text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedding error (%d): %s", resp.StatusCode, string(respBody))
	}

	var embedResp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embedResp.Embedding, nil
}

package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const hubTimeout = 30 * time.Second

// HubMediator talks to the mediated dataset over HTTP: a static
// index.json plus one JSON document per function, and a push endpoint
// that accepts contributions for review.
type HubMediator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHubMediator creates a mediator client for the hub at baseURL.
func NewHubMediator(baseURL, apiKey string) *HubMediator {
	return &HubMediator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: hubTimeout},
	}
}

// FetchIndex retrieves the list of function names published upstream.
func (h *HubMediator) FetchIndex(ctx context.Context) ([]string, error) {
	var index struct {
		Functions []string `json:"functions"`
	}
	if err := h.getJSON(ctx, h.baseURL+"/index.json", &index); err != nil {
		return nil, fmt.Errorf("fetch sync index: %w", err)
	}
	return index.Functions, nil
}

// FetchDocument retrieves one published function document by name.
func (h *HubMediator) FetchDocument(ctx context.Context, name string) (*Document, error) {
	var doc Document
	target := h.baseURL + "/functions/" + url.PathEscape(name) + ".json"
	if err := h.getJSON(ctx, target, &doc); err != nil {
		return nil, fmt.Errorf("fetch document %q: %w", name, err)
	}
	return &doc, nil
}

// PushDocument submits a document for mediated review upstream.
func (h *HubMediator) PushDocument(ctx context.Context, doc *Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", doc.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.baseURL+"/api/v1/sync/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("X-API-Key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("push document %q: %w", doc.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("push document %q: hub returned %d: %s", doc.Name, resp.StatusCode, snippet)
	}
	return nil
}

func (h *HubMediator) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	if h.apiKey != "" {
		req.Header.Set("X-API-Key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

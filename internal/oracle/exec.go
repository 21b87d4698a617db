// Package oracle provides the HTTP client for the remote test
// execution service used during verification.
package oracle

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

// Result statuses reported by the execution service.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Result is the execution service's verdict on a test run.
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ExecClient dispatches code plus test cases to the execution service.
type ExecClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewExecClient creates an execution oracle client. Test runs can be
// slow, so the timeout is generous.
func NewExecClient(baseURL, apiKey string) *ExecClient {
	return &ExecClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 35 * time.Second},
	}
}

type execRequest struct {
	Code      string             `json:"code"`
	TestCases []storage.TestCase `json:"test_cases"`
}

// RunTests submits code and its test cases for execution. A non-nil
// error means the oracle was unreachable or misbehaved; a reported
// test failure comes back as a Result, not an error.
func (c *ExecClient) RunTests(ctx context.Context, code string, tests []storage.TestCase) (*Result, error) {
	body, err := json.Marshal(execRequest{Code: code, TestCases: tests})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execution request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution service error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

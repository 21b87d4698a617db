package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/oracle"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/quality"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Common test errors
var (
	ErrMockOracle    = errors.New("mock oracle error")
	ErrMockCompleter = errors.New("mock completer error")
)

// MockEmbedder implements Embedder with a fixed vector per text.
type MockEmbedder struct {
	mu          sync.Mutex
	EmbedFunc   func(ctx context.Context, text string) []float32
	CallCount   int
	LastText    string
	FixedVector []float32
	Info        storage.ModelInfo
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		FixedVector: []float32{1, 0, 0},
		Info:        storage.ModelInfo{Name: "mock-model", Dimension: 3},
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastText = text

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return m.FixedVector
}

func (m *MockEmbedder) ModelInfo() storage.ModelInfo { return m.Info }

// MockRunner implements TestRunner.
type MockRunner struct {
	mu        sync.Mutex
	Result    *oracle.Result
	Err       error
	CallCount int
	LastCode  string
}

func NewMockRunner() *MockRunner {
	return &MockRunner{Result: &oracle.Result{Status: oracle.ResultSuccess}}
}

func (m *MockRunner) RunTests(ctx context.Context, code string, tests []storage.TestCase) (*oracle.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastCode = code

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockSecretScanner implements SecretScanner.
type MockSecretScanner struct {
	Found bool
	Match string
}

func (m *MockSecretScanner) CheckSecrets(text string) (bool, string) {
	return m.Found, m.Match
}

// MockSyntaxChecker implements SyntaxChecker.
type MockSyntaxChecker struct {
	Invalid bool
}

func (m *MockSyntaxChecker) CheckSyntax(code string) bool { return !m.Invalid }

// MockCompleter implements Completer.
type MockCompleter struct {
	mu         sync.Mutex
	Output     string
	Err        error
	CallCount  int
	LastPrompt string
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastPrompt = prompt

	if m.Err != nil {
		return "", m.Err
	}
	return m.Output, nil
}

// MockGate implements QualityScorer with a fixed report.
type MockGate struct {
	Report    *quality.Report
	Finalized bool
}

func (m *MockGate) Score(code string) *quality.Report {
	if m.Report != nil {
		return m.Report
	}
	return &quality.Report{FinalScore: 100, Reliability: quality.ReliabilityHigh,
		LintPassed: true, Formatted: true, AuditSafe: true}
}

func (m *MockGate) Finalize(report *quality.Report, llmOutput string) *quality.Report {
	m.Finalized = true
	return report
}

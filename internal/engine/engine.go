// Package engine orchestrates the function store: saves with
// synchronous gates and asynchronous verification, similarity search
// with a verified boost, dependency bundling, archival and restore,
// and two-phase reranked selection.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/config"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/embedding"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/lint"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/oracle"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/quality"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/rerank"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/security"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/worker"
)

const verifiedBoost = 1.2

// Engine is the function store's orchestration core. All collaborators
// are injected; NewEngine wires the default set from configuration.
type Engine struct {
	store     *storage.Store
	vecs      *storage.VecStore
	lock      *storage.WriteLock
	queue     *worker.Queue
	embedder  Embedder
	syntax    SyntaxChecker
	secrets   SecretScanner
	runner    TestRunner
	gate      QualityScorer
	reranker  RerankOracle
	completer Completer
}

// Deps holds dependencies for constructing an Engine.
type Deps struct {
	Store     *storage.Store
	Vecs      *storage.VecStore
	Lock      *storage.WriteLock
	Queue     *worker.Queue
	Embedder  Embedder
	Syntax    SyntaxChecker
	Secrets   SecretScanner
	Runner    TestRunner
	Gate      QualityScorer
	Reranker  RerankOracle
	Completer Completer
}

// NewEngine builds a fully wired engine from configuration: store and
// vector index over one SQLite file, write coordinator, background
// worker, embedding backend, security scanners, quality gate, and the
// rerank oracle. On startup it provisions the schema and runs the
// embedding recovery pass.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	store, err := storage.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}

	lock := storage.NewWriteLock(cfg.Store.Path,
		time.Duration(cfg.Store.LockTimeoutSeconds)*time.Second)
	vecs := storage.NewVecStore(store)

	var provider embedding.Provider
	switch cfg.Embedding.Provider {
	case "openai":
		var opts []embedding.OpenAIOption
		if cfg.Embedding.Model != "" {
			opts = append(opts, embedding.WithOpenAIModel(cfg.Embedding.Model))
		}
		provider = embedding.NewOpenAIClient(cfg.Embedding.OpenAIAPIKey, opts...)
	default:
		var opts []embedding.OllamaOption
		if cfg.Embedding.OllamaBaseURL != "" {
			opts = append(opts, embedding.WithOllamaBaseURL(cfg.Embedding.OllamaBaseURL))
		}
		provider = embedding.NewOllamaClient(opts...)
	}
	embedder := embedding.NewService(provider)

	policy := security.DefaultPolicy()
	if cfg.Security.PolicyPath != "" {
		policy, err = security.LoadPolicy(cfg.Security.PolicyPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load security policy: %w", err)
		}
	}
	secrets, err := security.NewSecretScanner(policy)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build secret scanner: %w", err)
	}

	checker := lint.NewChecker()
	gate := quality.NewGate(checker, checker, security.NewAuditor(policy))

	var completer Completer
	if cfg.Rerank.Enabled {
		completer = rerank.NewOllamaCompleter(cfg.Rerank.OllamaBaseURL, cfg.Rerank.Model)
	}

	e := &Engine{
		store:     store,
		vecs:      vecs,
		lock:      lock,
		queue:     worker.New(),
		embedder:  embedder,
		syntax:    checker,
		secrets:   secrets,
		runner:    oracle.NewExecClient(cfg.Exec.URL, cfg.Exec.APIKey),
		gate:      gate,
		reranker:  rerank.NewOracle(),
		completer: completer,
	}

	if err := e.initStore(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// NewEngineWithDeps creates an engine with explicit dependencies (for testing).
func NewEngineWithDeps(deps Deps) *Engine {
	queue := deps.Queue
	if queue == nil {
		queue = worker.New()
	}
	return &Engine{
		store:     deps.Store,
		vecs:      deps.Vecs,
		lock:      deps.Lock,
		queue:     queue,
		embedder:  deps.Embedder,
		syntax:    deps.Syntax,
		secrets:   deps.Secrets,
		runner:    deps.Runner,
		gate:      deps.Gate,
		reranker:  deps.Reranker,
		completer: deps.Completer,
	}
}

func (e *Engine) initStore(ctx context.Context) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer release()

	if err := e.store.Init(ctx); err != nil {
		return err
	}
	if err := e.store.CheckModelVersion(ctx, e.embedder.ModelInfo()); err != nil {
		log.Printf("Warning: model version check failed: %v", err)
	}
	e.store.RecoverEmbeddings(ctx, e.embedder, e.vecs)
	return nil
}

// Close drains the background queue and releases the store.
func (e *Engine) Close() error {
	if e.queue != nil {
		e.queue.Close()
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Drain blocks until queued maintenance has finished. One-shot callers
// use this before exiting so a save's verification is not abandoned.
func (e *Engine) Drain(ctx context.Context) error {
	return e.queue.Drain(ctx)
}

// Store exposes the catalog store for components that share it (the
// reaper's read-only scan, the sync engine).
func (e *Engine) Store() *storage.Store { return e.store }

// Lock exposes the write coordinator shared by every mutator of the
// store file.
func (e *Engine) Lock() *storage.WriteLock { return e.lock }

// Vecs exposes the vector index.
func (e *Engine) Vecs() *storage.VecStore { return e.vecs }

// ModelInfo reports the active embedding model.
func (e *Engine) ModelInfo() storage.ModelInfo { return e.embedder.ModelInfo() }

// Save validates and persists a function, then schedules maintenance
// (embedding + verification) in the background. A secret match rejects
// the save synchronously with nothing persisted; a syntax failure
// persists the function as broken so the author can inspect it.
func (e *Engine) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	req = sanitize(req)
	if req.Name == "" {
		return &SaveResult{Status: SaveRejected, Message: "function name is required"}, nil
	}
	if req.Code == "" {
		return &SaveResult{Name: req.Name, Status: SaveRejected, Message: "function code is required"}, nil
	}

	if found, match := e.secrets.CheckSecrets(req.Code); found {
		return &SaveResult{
			Name:    req.Name,
			Status:  SaveRejected,
			Message: fmt.Sprintf("code contains a credential-shaped string (%s...); remove it and save again", prefix(match, 8)),
		}, nil
	}

	status := storage.StatusPending
	qualityScore := 50
	if !e.syntax.CheckSyntax(req.Code) {
		// Unparseable code gets the floor score so retention retires it
		// sooner than a merely unproven function.
		status = storage.StatusBroken
		qualityScore = 0
	}

	now := time.Now()
	rec := &storage.FunctionRecord{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Tags:        req.Tags,
		TestCases:   req.TestCases,
		Status:      status,
		Metadata: map[string]any{
			storage.MetaDependencies:         req.Dependencies,
			storage.MetaInternalDependencies: req.InternalDependencies,
			storage.MetaQualityScore:         qualityScore,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	err = e.store.SaveFunction(ctx, rec)
	release()
	if err != nil {
		return nil, err
	}

	skipTest := req.SkipTest
	e.queue.Enqueue("maintain:"+req.Name, func(taskCtx context.Context) error {
		return e.maintain(taskCtx, req.Name, skipTest)
	})

	msg := "function saved; verification queued"
	if status == storage.StatusBroken {
		msg = "function saved but does not parse; marked broken"
	}
	return &SaveResult{Name: req.Name, Status: SaveQueued, Message: msg}, nil
}

// Search returns the top functions by semantic similarity to query.
// Verified functions get a 1.2x score boost after ranking, so a
// moderately similar verified hit can outrank an unverified one near
// the boundary.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	qvec := e.embedder.Embed(ctx, query)
	points, err := e.vecs.Search(ctx, qvec, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		score := p.Score
		if p.Payload.Status == storage.StatusVerified {
			score *= verifiedBoost
		}
		results = append(results, SearchResult{
			Name:        p.Name,
			Score:       score,
			Description: p.Payload.Description,
			Tags:        p.Payload.Tags,
			Status:      p.Payload.Status,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Get returns a function's code and records the usage. The usage touch
// is best-effort; a lock timeout does not fail the read.
func (e *Engine) Get(ctx context.Context, name string) (string, error) {
	rec, err := e.store.GetFunction(ctx, name)
	if err != nil {
		return "", err
	}

	if release, err := e.lock.Acquire(ctx); err == nil {
		if err := e.store.TouchUsage(ctx, name); err != nil {
			log.Printf("Warning: failed to record usage for %q: %v", name, err)
		}
		release()
	} else {
		log.Printf("Warning: failed to record usage for %q: %v", name, err)
	}
	return rec.Code, nil
}

// GetDetails returns the full stored record, archived functions included.
func (e *Engine) GetDetails(ctx context.Context, name string) (*storage.FunctionRecord, error) {
	return e.store.GetFunction(ctx, name)
}

// List returns catalog entries. Archived functions are excluded unless
// includeArchived is set.
func (e *Engine) List(ctx context.Context, limit int, includeArchived bool) ([]*storage.FunctionRecord, error) {
	return e.store.ListFunctions(ctx, limit, includeArchived)
}

// Delete physically removes a function and its embedding.
func (e *Engine) Delete(ctx context.Context, name string) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.store.DeleteFunction(ctx, name)
}

// Archive soft-deletes a function: it disappears from listings and the
// search population but remains inspectable and restorable.
func (e *Engine) Archive(ctx context.Context, name string) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.store.SetStatus(ctx, name, storage.StatusArchived)
}

// Restore brings an archived function back as pending and re-queues
// verification.
func (e *Engine) Restore(ctx context.Context, name string) error {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	err = e.store.SetStatus(ctx, name, storage.StatusPending)
	release()
	if err != nil {
		return err
	}

	e.queue.Enqueue("maintain:"+name, func(taskCtx context.Context) error {
		return e.maintain(taskCtx, name, false)
	})
	return nil
}

// Triage lists functions needing attention: broken or failed.
func (e *Engine) Triage(ctx context.Context, limit int) ([]*storage.FunctionRecord, error) {
	return e.store.ListByStatus(ctx, limit, storage.StatusBroken, storage.StatusFailed)
}

func sanitize(req SaveRequest) SaveRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		req.Description = fmt.Sprintf("Draft saved on %s (description pending)",
			time.Now().Format("2006-01-02"))
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
			tags = append(tags, t)
		}
	}
	req.Tags = tags
	return req
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

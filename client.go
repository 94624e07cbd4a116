package raglab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raglab/raglab/agent"
	"github.com/raglab/raglab/cache"
	"github.com/raglab/raglab/common/httpx"
	"github.com/raglab/raglab/common/logger"
	"github.com/raglab/raglab/config"
	"github.com/raglab/raglab/embedding"
	"github.com/raglab/raglab/llm"
	"github.com/raglab/raglab/metrics"
	"github.com/raglab/raglab/retriever"
	"github.com/raglab/raglab/router"
	"github.com/raglab/raglab/schema"
	"github.com/raglab/raglab/store"
	"github.com/raglab/raglab/technique"
	"github.com/raglab/raglab/textsplitter"
	"github.com/raglab/raglab/vectordb"
	"github.com/raglab/raglab/websearch"
)

// Execution modes.
const (
	ModeAdaptive = "adaptive"
	ModeAgentic  = "agentic"
	ModeDirect   = "direct"
)

const maxListChunks = 1000

// Request is one question-answering call.
type Request struct {
	Query string `json:"query"`
	// Technique forces a technique on the direct path and scopes the
	// answer cache key. Empty lets the router or registry decide.
	Technique string `json:"technique,omitempty"`
	// Mode: adaptive (default), agentic or direct.
	Mode      string `json:"mode,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	// MaxIterations overrides the agent loop cap for this request.
	MaxIterations int `json:"max_iterations,omitempty"`
}

// Response is the answer with its provenance.
type Response struct {
	Answer  string               `json:"answer"`
	Sources []schema.SourceRef   `json:"sources,omitempty"`
	Metrics schema.Metrics       `json:"metrics"`
	Routing *router.RoutingTrace `json:"routingTrace,omitempty"`
	Agent   *agent.AgentTrace    `json:"agentTrace,omitempty"`
	// Partial is set when the request deadline expired and the response
	// carries best-effort state instead of a complete answer.
	Partial     bool   `json:"partial,omitempty"`
	ExecutionID string `json:"executionId,omitempty"`
}

// Client wires retrieval, routing and the agent loop into one
// question-answering entrypoint.
type Client struct {
	cfg         *config.Config
	splitter    *textsplitter.Splitter
	embedder    embedding.Provider
	vectorStore vectordb.VectorStoreProvider
	llmProvider llm.Provider
	completer   llm.ChatCompleter
	registry    *technique.Registry
	router      *router.AdaptiveRouter
	tools       *agent.ToolSet
	answers     *cache.AnswerCache
	executions  store.ExecutionStore
	timeout     time.Duration
}

// NewClient builds the client from configuration. All collaborators
// are constructed once; the client is safe for concurrent use.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{cfg: cfg}

	c.splitter = textsplitter.New(cfg.RAG.Splitter.ChunkSize, cfg.RAG.Splitter.ChunkOverlap)

	var err error
	c.embedder, err = embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}

	c.vectorStore, err = vectordb.NewProvider(ctx, cfg.VectorDB, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("create vector store provider failed, err: %w", err)
	}

	c.llmProvider, err = llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider failed, err: %w", err)
	}
	// The agentic path needs tool calling; providers without it are
	// still fine for adaptive and direct modes.
	c.completer, _ = c.llmProvider.(llm.ChatCompleter)

	ret := &retriever.VectorRetriever{
		Embed:     c.embedder,
		Store:     c.vectorStore,
		TopK:      cfg.RAG.TopK,
		Threshold: cfg.RAG.Threshold,
	}
	deps := technique.Deps{
		LLM:       c.llmProvider,
		Retriever: ret,
		Embed:     c.embedder,
		TopK:      cfg.RAG.TopK,
		FusionK:   cfg.Fusion.K,
		Variants:  cfg.Fusion.Variants,
	}
	c.registry = technique.NewRegistry(cfg.Router.DefaultTechnique, technique.NewCoreTechniques(deps)...)

	classifier := router.NewLLMClassifier(c.llmProvider, cfg.Router.DefaultCategory)
	c.router = router.NewAdaptiveRouter(classifier, router.NewRoutingTable(cfg.Router), c.registry)

	var searcher websearch.Searcher
	if cfg.WebSearch.Provider != "" {
		searcher = websearch.NewFromConfig(cfg.WebSearch, httpx.NewFromConfig(cfg.HTTP))
	}
	c.tools = agent.NewToolSet(c.registry, searcher)

	if cfg.Cache != nil && cfg.Cache.Enable {
		c.answers = cache.NewAnswerCache(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}

	c.executions, err = store.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("create execution store failed, err: %w", err)
	}

	c.timeout = time.Duration(cfg.RAG.TimeoutSeconds) * time.Second
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}

	return c, nil
}

// Close releases the vector store connection.
func (c *Client) Close() error {
	return c.vectorStore.Close()
}

// Run answers one question. A request that exceeds the configured
// timeout returns a partial response with the state accumulated so
// far instead of an error.
func (c *Client) Run(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModeAdaptive
	}
	namespace := req.Namespace
	if namespace == "" {
		namespace = c.cfg.RAG.Namespace
	}

	em := metrics.NewExecutionMetrics(uuid.NewString(), req.Query, mode)
	em.Namespace = namespace
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		resp *Response
		err  error
	)
	switch mode {
	case ModeAdaptive:
		resp, err = c.runAdaptive(ctx, req, namespace, em)
	case ModeAgentic:
		resp, err = c.runAgentic(ctx, req, em)
	case ModeDirect:
		resp, err = c.runDirect(ctx, req, namespace, em)
	default:
		return nil, fmt.Errorf("unsupported mode %q (expected adaptive, agentic or direct)", mode)
	}

	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		logger.Warnf("run: deadline exceeded after %s, returning partial state", time.Since(start))
		if resp == nil {
			resp = &Response{}
		}
		resp.Partial = true
		err = nil
	}

	em.TotalLatencyMs = time.Since(start).Milliseconds()
	em.Success = err == nil
	if err != nil {
		em.ErrorMsg = err.Error()
		em.Log()
		return nil, err
	}

	em.RetrievedChunks = len(resp.Sources)
	em.PromptTokens = resp.Metrics.PromptTokens
	em.CompletionTokens = resp.Metrics.CompletionTokens
	resp.Metrics.LatencyMs = em.TotalLatencyMs
	// Persistence outlives the request deadline so partial answers
	// still get recorded.
	resp.ExecutionID = c.persist(context.WithoutCancel(ctx), req, mode, namespace, resp)
	em.Log()
	return resp, nil
}

func (c *Client) runAdaptive(ctx context.Context, req Request, namespace string, em *metrics.ExecutionMetrics) (*Response, error) {
	key := cache.Key(req.Query, req.Technique, namespace)
	if c.answers != nil {
		if cached, ok := c.answers.Get(key); ok {
			metrics.IncCache("hit")
			em.CacheHit = true
			em.Technique = cached.Metrics.Technique
			return &Response{Answer: cached.Answer, Sources: cached.Sources, Metrics: cached.Metrics}, nil
		}
		metrics.IncCache("miss")
	}

	q := schema.Query{Text: req.Query, Namespace: namespace, TopK: req.TopK}
	result, trace, err := c.router.Route(ctx, q)
	if trace != nil {
		em.Category = trace.Category
		em.Confidence = trace.Confidence
		em.Technique = trace.SelectedTechnique
	}
	if err != nil {
		return &Response{Routing: trace}, err
	}

	if c.answers != nil {
		c.answers.Set(key, result, 0)
	}
	return &Response{Answer: result.Answer, Sources: result.Sources, Metrics: result.Metrics, Routing: trace}, nil
}

func (c *Client) runAgentic(ctx context.Context, req Request, em *metrics.ExecutionMetrics) (*Response, error) {
	if c.completer == nil {
		return nil, fmt.Errorf("llm provider %s does not support tool calling", c.llmProvider.GetProviderType())
	}
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = c.cfg.Agent.MaxIterations
	}
	loop := agent.NewLoop(c.completer, c.tools, c.cfg.Agent.SystemPrompt, maxIterations)

	result, trace, err := loop.Run(ctx, req.Query)
	if trace != nil {
		em.Iterations = trace.Iterations
		em.ToolsInvoked = trace.ToolsInvoked
	}
	if err != nil {
		return &Response{Agent: trace}, err
	}
	return &Response{Answer: result.Answer, Sources: result.Sources, Metrics: result.Metrics, Agent: trace}, nil
}

func (c *Client) runDirect(ctx context.Context, req Request, namespace string, em *metrics.ExecutionMetrics) (*Response, error) {
	tech := c.registry.Resolve(req.Technique)
	em.Technique = tech.Name()

	result, err := tech.Execute(ctx, schema.Query{Text: req.Query, Namespace: namespace, TopK: req.TopK})
	if err != nil {
		return nil, &router.TechniqueExecutionError{TechniqueID: tech.Name(), Err: err}
	}
	return &Response{Answer: result.Answer, Sources: result.Sources, Metrics: result.Metrics}, nil
}

// persist records the execution best-effort: failures are logged and
// never surfaced.
func (c *Client) persist(ctx context.Context, req Request, mode, namespace string, resp *Response) string {
	rec := &store.ExecutionRecord{
		Query:     req.Query,
		Mode:      mode,
		Namespace: namespace,
		Answer:    resp.Answer,
		Sources:   resp.Sources,
		Metrics:   resp.Metrics,
	}
	if resp.Routing != nil {
		rec.Technique = resp.Routing.SelectedTechnique
		rec.Category = resp.Routing.Category
	} else if resp.Metrics.Technique != "" {
		rec.Technique = resp.Metrics.Technique
	}
	if resp.Partial {
		rec.PartialDue = "timeout"
	}

	id, err := c.executions.Record(ctx, rec)
	if err != nil {
		logger.Warnf("persist: recording execution failed: %v", err)
		return ""
	}
	return id
}

// Techniques lists the registered technique names.
func (c *Client) Techniques() []string {
	return c.registry.Names()
}

// CreateChunksFromText splits a document, embeds each chunk and stores
// it under the namespace.
func (c *Client) CreateChunksFromText(ctx context.Context, text, title, namespace string) ([]schema.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	if namespace == "" {
		namespace = c.cfg.RAG.Namespace
	}

	chunks := c.splitter.Split(text)
	docs := make([]schema.Document, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := c.embedder.GetEmbedding(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("create embedding failed, err: %w", err)
		}
		docs = append(docs, schema.Document{
			ID:      uuid.New().String(),
			Content: chunk,
			Metadata: map[string]interface{}{
				"chunk_index": i,
				"chunk_title": title,
				"chunk_size":  len(chunk),
			},
			Vector:    vector,
			Namespace: namespace,
			CreatedAt: time.Now(),
		})
	}

	if err := c.vectorStore.AddDoc(ctx, docs); err != nil {
		return nil, fmt.Errorf("add documents failed, err: %w", err)
	}
	return docs, nil
}

// SearchChunks embeds the query and searches stored chunks.
func (c *Client) SearchChunks(ctx context.Context, query, namespace string, topK int) ([]schema.SearchResult, error) {
	vector, err := c.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("create embedding failed, err: %w", err)
	}
	if topK <= 0 {
		topK = c.cfg.RAG.TopK
	}
	if namespace == "" {
		namespace = c.cfg.RAG.Namespace
	}
	opts := &schema.SearchOptions{TopK: topK, Threshold: c.cfg.RAG.Threshold, Namespace: namespace}
	results, err := c.vectorStore.SearchDocs(ctx, vector, opts)
	if err != nil {
		return nil, fmt.Errorf("search chunks failed, err: %w", err)
	}
	return results, nil
}

// ListChunks lists stored chunks.
func (c *Client) ListChunks(ctx context.Context) ([]schema.Document, error) {
	docs, err := c.vectorStore.ListDocs(ctx, maxListChunks)
	if err != nil {
		return nil, fmt.Errorf("list chunks failed, err: %w", err)
	}
	return docs, nil
}

// DeleteChunk removes one stored chunk by id.
func (c *Client) DeleteChunk(ctx context.Context, id string) error {
	if err := c.vectorStore.DeleteDocs(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete chunk failed, err: %w", err)
	}
	return nil
}

package container

import (
	"context"
	"fmt"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/agents"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/chat"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/bootstrap"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/repository"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/document"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/embedding"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/knowledge"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow/condition"
)

// Container holds every service the binary needs, built once at startup.
type Container struct {
	Components *bootstrap.Components
	Metrics    *metrics.Metrics

	// Event fan-out
	Hub    *events.Hub
	Bus    *events.Bus
	Bridge *events.RedisBridge

	// LLM + retrieval pipeline
	Gateway   *llm.Gateway
	Embedder  *embedding.Service
	Chunks    vectorstore.Store
	Studies   vectorstore.Store
	Indexer   *retrieval.Indexer
	Retriever *retrieval.Retriever
	Chat      *chat.Service
	Search    *retrieval.CaseStudySearch

	// Persistence
	Projects    *repository.ProjectRepository
	Documents   *repository.RFPDocumentRepository
	CaseStudies *repository.CaseStudyRepository
	Artifacts   *repository.Artifacts
	Traces      *repository.RunTraceRepository

	// Knowledge graph
	Graph     *knowledge.Graph
	Extractor *knowledge.Extractor

	// Workflow runtime
	Engine  *workflow.Engine
	Manager *workflow.Manager
}

// NewContainer initializes all services and repositories once, bottom-up.
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger
	m := metrics.New()

	// Event hub first: everything downstream emits through the bus.
	hub := events.NewHub(log, m)
	bus := events.NewBus(hub, components.Redis, log, m)
	var bridge *events.RedisBridge
	if components.Redis != nil {
		bridge = events.NewRedisBridge(components.Redis, hub, log)
	}

	providers, err := llm.BuildProviders(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to build llm providers: %w", err)
	}
	if len(providers) == 0 {
		log.Warn("no llm provider credentials configured, workflow runs will fail at the first agent")
	}
	gateway := llm.NewGateway(cfg.LLM, providers, log, m)

	embedder, err := embedding.New(cfg.Embedding, cfg.Cache.EmbeddingTTL, components.Cache, log, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build embedder: %w", err)
	}

	chunks, err := vectorstore.New(cfg.Vector, components.DB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunk store: %w", err)
	}
	// Case studies live in their own collection so reindexing an RFP never
	// touches the corpus.
	studyCfg := cfg.Vector
	studyCfg.Collection = cfg.Vector.Collection + "_case_studies"
	studies, err := vectorstore.New(studyCfg, components.DB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build case study store: %w", err)
	}

	chunker, err := document.NewChunker(cfg.Retrieval, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to build chunker: %w", err)
	}
	indexer := retrieval.NewIndexer(chunker, embedder, chunks, log, m)

	var reranker *retrieval.RerankClient
	if cfg.Retrieval.EnableRerank && cfg.Retrieval.RerankURL != "" {
		reranker = retrieval.NewRerankClient(cfg.Retrieval.RerankURL, cfg.Retrieval.RerankKey, log)
	}
	retriever := retrieval.NewRetriever(cfg.Retrieval, embedder, chunks, gateway, reranker,
		components.Cache, cfg.Cache.QueryTTL, log, m)

	chatSvc := chat.NewService(retriever, gateway, components.Cache, cfg.Cache.DefaultTTL, log, m)

	projects := repository.NewProjectRepository(components.DB)
	documents := repository.NewRFPDocumentRepository(components.DB)
	caseStudies := repository.NewCaseStudyRepository(components.DB)
	artifacts := repository.NewArtifacts(components.DB, modelLabel(cfg.LLM), log)
	traces := repository.NewRunTraceRepository(components.DB)

	extractor := knowledge.NewExtractor(gateway, log)
	graph := knowledge.NewGraph(caseStudies, extractor, log)
	search := retrieval.NewCaseStudySearch(caseStudies, embedder, studies, log)

	toolkit, err := agents.NewToolkit(agents.Toolkit{
		Gateway:   gateway,
		Retriever: retriever,
		Graph:     graph,
		Search:    search,
		Studies:   caseStudies,
		Extractor: extractor,
		Projects:  projects,
		Events:    bus,
		Config:    cfg.Workflow,
		Log:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build agent toolkit: %w", err)
	}
	graphDef, err := agents.BuildProposalGraph(toolkit)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proposal graph: %w", err)
	}

	engine := workflow.NewEngine(graphDef, condition.NewEvaluator(), log, workflow.EngineOptions{
		NodeTimeout: cfg.Workflow.NodeTimeout,
		MaxParallel: cfg.Workflow.MaxParallel,
		GuardConfig: agents.GuardConfig(cfg.Workflow),
		Trace:       traces,
		Progress:    &progressEmitter{bus: bus},
		Metrics:     m,
	})
	manager := workflow.NewManager(engine, documents, artifacts,
		&approvalFanout{artifacts: artifacts, bus: bus, log: log}, log, m)

	return &Container{
		Components:  components,
		Metrics:     m,
		Hub:         hub,
		Bus:         bus,
		Bridge:      bridge,
		Gateway:     gateway,
		Embedder:    embedder,
		Chunks:      chunks,
		Studies:     studies,
		Indexer:     indexer,
		Retriever:   retriever,
		Chat:        chatSvc,
		Search:      search,
		Projects:    projects,
		Documents:   documents,
		CaseStudies: caseStudies,
		Artifacts:   artifacts,
		Traces:      traces,
		Graph:       graph,
		Extractor:   extractor,
		Engine:      engine,
		Manager:     manager,
	}, nil
}

// modelLabel is the provider/model string stamped onto persisted artifacts.
func modelLabel(cfg config.LLMConfig) string {
	switch cfg.DefaultProvider {
	case llm.ProviderAnthropic:
		return llm.ProviderAnthropic + "/" + cfg.AnthropicModel
	case llm.ProviderOllama:
		return llm.ProviderOllama + "/" + cfg.OllamaModel
	default:
		return llm.ProviderOpenAI + "/" + cfg.OpenAIModel
	}
}

// progressEmitter adapts the event bus to the engine's progress sink.
type progressEmitter struct {
	bus *events.Bus
}

func (p *progressEmitter) Progress(ctx context.Context, st *workflow.State, step, status string, score *float64) {
	p.bus.Emit(ctx, events.Progress(st.ProjectID, step, status, score))
}

// approvalFanout persists outline decisions and tells WebSocket subscribers.
type approvalFanout struct {
	artifacts *repository.Artifacts
	bus       *events.Bus
	log       *logger.Logger
}

func (a *approvalFanout) OutlineApproval(ctx context.Context, projectID string, approved bool) {
	if err := a.artifacts.SetOutlineApproved(ctx, projectID, approved); err != nil {
		a.log.WithProject(projectID).Warn("failed to persist outline approval", "error", err)
	}
	a.bus.Emit(ctx, events.OutlineApproval(projectID, approved, time.Now().UTC()))
}

// Package agents implements the node handlers of the proposal workflow.
// Each handler reads a private copy of the run state, talks to the LLM
// gateway and the retrieval layer through the Toolkit, and hands back a
// patch. Handlers never write shared state directly.
package agents

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/knowledge"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// Completer is the slice of the LLM gateway the handlers call.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Retriever runs semantic search over an indexed RFP document.
type Retriever interface {
	Retrieve(ctx context.Context, projectID, query string, topK int) ([]retrieval.Result, error)
}

// CaseStudyFinder is the knowledge-graph view of the reference corpus.
type CaseStudyFinder interface {
	FindMatchingCaseStudies(ctx context.Context, queryEntities []knowledge.Entity, queryIndustry string, topK int) ([]models.CaseStudy, error)
}

// CaseStudySearcher is the semantic-search view of the reference corpus.
type CaseStudySearcher interface {
	SearchCaseStudies(ctx context.Context, query, industry string, topK int) ([]models.CaseStudy, error)
}

// CaseStudyLister is the plain database view, used when both the graph and
// semantic search come up empty.
type CaseStudyLister interface {
	ListByIndustry(ctx context.Context, industry string, limit int) ([]models.CaseStudy, error)
}

// EntityExtractor pulls typed entities out of free text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (*knowledge.Extraction, error)
}

// IndustrySource resolves the industry a project belongs to.
type IndustrySource interface {
	Industry(ctx context.Context, projectID string) (string, error)
}

// Toolkit binds the collaborators the handlers share. Gateway and Log are
// required; every other field may stay nil, and the handlers that would use
// it degrade to their deterministic fallbacks.
type Toolkit struct {
	Gateway   Completer
	Retriever Retriever
	Graph     CaseStudyFinder
	Search    CaseStudySearcher
	Studies   CaseStudyLister
	Extractor EntityExtractor
	Projects  IndustrySource
	Events    events.Emitter
	Config    config.WorkflowConfig
	Log       *logger.Logger
}

// NewToolkit validates the required collaborators and fills the optional
// ones with no-ops.
func NewToolkit(tk Toolkit) (*Toolkit, error) {
	if tk.Gateway == nil {
		return nil, fmt.Errorf("toolkit requires an llm gateway")
	}
	if tk.Log == nil {
		return nil, fmt.Errorf("toolkit requires a logger")
	}
	if tk.Events == nil {
		tk.Events = events.NopEmitter{}
	}
	return &tk, nil
}

// thought narrates a handler step on the project's event stream.
func (tk *Toolkit) thought(ctx context.Context, projectID, step, message, detail string) {
	tk.Events.Emit(ctx, events.Thought(projectID, step, message, detail))
}

// complete runs one system+user exchange through the gateway and returns
// the raw content.
func (tk *Toolkit) complete(ctx context.Context, task llm.TaskType, temperature float64, maxTokens int, system, user string) (string, error) {
	resp, err := tk.Gateway.Complete(ctx, llm.Request{
		TaskType:    task,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// entry builds the single execution-log record a handler is allowed.
func entry(step, status, detail string) []workflow.LogEntry {
	return []workflow.LogEntry{{Step: step, Status: status, Detail: detail, At: time.Now().UTC()}}
}

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }
func intp(i int) *int         { return &i }

// truncate cuts a string to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Package router implements the chat routing policy: mode resolution
// between grounded retrieval and open-ended generation, prompt assembly,
// and citation formatting.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corpusline/ragserver/internal/llm"
	"github.com/corpusline/ragserver/internal/rag/index"
	"github.com/corpusline/ragserver/internal/rag/memory"
	"github.com/corpusline/ragserver/internal/rag/obs"
)

// Mode is the resolved or requested chat mode.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeRAG     Mode = "rag"
	ModeGeneral Mode = "general"
	ModeError   Mode = "error"
)

var hintTerms = []string{
	"document", "file", "uploaded", "says", "mentioned", "according to",
	"in the", "from the", "based on", "what does", "find", "search",
	"look for", "locate", "extract", "summarize", "summary",
}

const (
	defaultRelevanceThreshold = 0.15
	defaultFallbackThreshold  = 0.10
	defaultRetrievalK         = 8
	defaultFallbackK          = 5
	defaultHistoryWindow      = 6
)

const (
	refusalNoCorpus     = "I don't have any documents indexed yet. Upload a document before asking me to answer from it."
	noRelevantResultsMsg = "I couldn't find anything relevant to that question in the indexed documents."
	noLLMConfiguredMsg   = "No language model is currently configured, so I can't generate an answer for: %q"
	degradedSuffix       = "\n\n(No language model is configured; showing the raw retrieved context instead of a generated answer.)"
)

const groundedSystemPrompt = "You are a careful assistant that answers only from the supplied context. " +
	"Cite sources using their bracketed numbers. Never fabricate information that is not present in the context. " +
	"Prefer concise, direct answers."

const openSystemPrompt = "You are a helpful, knowledgeable assistant. Answer from your general knowledge."

// Source is a single citation in a chat response.
type Source struct {
	ID         int     `json:"id"`
	Content    string  `json:"content"`
	SourceName string  `json:"source"`
	Score      string  `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
}

// Result is the chat router's response.
type Result struct {
	Answer            string
	Mode              Mode
	Sources           []Source
	RetrievedCount    int
	NoRelevantResults bool
}

// Options configures routing thresholds. Zero values fall back to spec
// defaults.
type Options struct {
	RelevanceThreshold float64
	FallbackThreshold  float64
	RetrievalK         int
	FallbackK          int
	HistoryWindow      int
}

func (o Options) withDefaults() Options {
	if o.RelevanceThreshold == 0 {
		o.RelevanceThreshold = defaultRelevanceThreshold
	}
	if o.FallbackThreshold == 0 {
		o.FallbackThreshold = defaultFallbackThreshold
	}
	if o.RetrievalK == 0 {
		o.RetrievalK = defaultRetrievalK
	}
	if o.FallbackK == 0 {
		o.FallbackK = defaultFallbackK
	}
	if o.HistoryWindow == 0 {
		o.HistoryWindow = defaultHistoryWindow
	}
	return o
}

// Router resolves chat mode, retrieves context, and assembles prompts for
// the LLM gateway.
type Router struct {
	idx     *index.Index
	history *memory.Store
	gw      *llm.Gateway
	opts    Options

	log     obs.Logger
	metrics obs.Metrics
}

// Option configures a Router during construction.
type Option func(*Router)

func WithLogger(l obs.Logger) Option    { return func(r *Router) { r.log = l } }
func WithMetrics(m obs.Metrics) Option  { return func(r *Router) { r.metrics = m } }
func WithOptions(o Options) Option      { return func(r *Router) { r.opts = o.withDefaults() } }

// New constructs a Router over idx, history, and gw.
func New(idx *index.Index, history *memory.Store, gw *llm.Gateway, opts ...Option) *Router {
	r := &Router{
		idx:     idx,
		history: history,
		gw:      gw,
		opts:    Options{}.withDefaults(),
		log:     obs.NoopLogger{},
		metrics: obs.NoopMetrics{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route resolves mode, retrieves and/or generates, and appends both turns
// to conversation history.
func (r *Router) Route(ctx context.Context, conversationID, query string, requestedMode Mode) (Result, error) {
	r.history.Append(conversationID, memory.Message{Role: memory.RoleUser, Content: query, Timestamp: time.Now()})

	mode := r.resolveMode(ctx, query, requestedMode)
	r.metrics.IncCounter("chat_requests_total", map[string]string{"mode": string(mode)})

	var result Result
	var err error
	switch mode {
	case ModeRAG:
		if !r.idx.HasDocuments() {
			result = Result{Answer: refusalNoCorpus, Mode: ModeError, Sources: nil}
			break
		}
		result, err = r.handleGrounded(ctx, conversationID, query)
	case ModeGeneral:
		result, err = r.handleOpen(ctx, conversationID, query)
	default:
		result = Result{Answer: refusalNoCorpus, Mode: ModeError}
	}
	if err != nil {
		return Result{}, err
	}

	r.history.Append(conversationID, memory.Message{
		Role: memory.RoleAssistant, Content: result.Answer, Timestamp: time.Now(), Mode: string(result.Mode),
	})
	return result, nil
}

func (r *Router) resolveMode(ctx context.Context, query string, requested Mode) Mode {
	if requested == ModeRAG || requested == ModeGeneral {
		return requested
	}

	if !r.idx.HasDocuments() {
		return ModeGeneral
	}

	lowered := strings.ToLower(query)
	for _, hint := range hintTerms {
		if strings.Contains(lowered, hint) {
			return ModeRAG
		}
	}

	hits, err := r.idx.HybridSearch(ctx, query, 1)
	if err != nil || len(hits) == 0 {
		return ModeGeneral
	}
	if hits[0].Score > r.opts.RelevanceThreshold {
		return ModeRAG
	}
	return ModeGeneral
}

func (r *Router) handleGrounded(ctx context.Context, conversationID, query string) (Result, error) {
	hits, err := r.idx.HybridSearch(ctx, query, r.opts.RetrievalK)
	if err != nil {
		return Result{}, fmt.Errorf("hybrid search: %w", err)
	}

	relevant := filterByScore(hits, r.opts.RelevanceThreshold)
	if len(relevant) == 0 {
		fallback := filterByScore(hits, r.opts.FallbackThreshold)
		if len(fallback) > r.opts.FallbackK {
			fallback = fallback[:r.opts.FallbackK]
		}
		if len(fallback) == 0 {
			return Result{Answer: noRelevantResultsMsg, Mode: ModeRAG, Sources: nil, NoRelevantResults: true}, nil
		}
		relevant = fallback
	}

	sources := toSources(relevant)
	contextBlock := buildContext(sources)

	history := historyMessages(r.history.LastN(conversationID, r.opts.HistoryWindow))

	answer, err := r.gw.Complete(ctx, groundedSystemPrompt, history, query, llm.CompleteOptions{Temperature: 0.3})
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			answer = contextBlock + degradedSuffix
		} else {
			return Result{}, fmt.Errorf("complete: %w", err)
		}
	}

	return Result{
		Answer:         answer,
		Mode:           ModeRAG,
		Sources:        sources,
		RetrievedCount: len(hits),
	}, nil
}

func (r *Router) handleOpen(ctx context.Context, conversationID, query string) (Result, error) {
	history := historyMessages(r.history.LastN(conversationID, r.opts.HistoryWindow))

	answer, err := r.gw.Complete(ctx, openSystemPrompt, history, query, llm.CompleteOptions{Temperature: 0.7})
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			answer = fmt.Sprintf(noLLMConfiguredMsg, query)
		} else {
			return Result{}, fmt.Errorf("complete: %w", err)
		}
	}
	return Result{Answer: answer, Mode: ModeGeneral, Sources: nil}, nil
}

func filterByScore(hits []index.ScoredChunk, threshold float64) []index.ScoredChunk {
	var out []index.ScoredChunk
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out
}

func toSources(hits []index.ScoredChunk) []Source {
	out := make([]Source, len(hits))
	for i, h := range hits {
		out[i] = Source{
			ID:         i + 1,
			Content:    h.Content,
			SourceName: h.Source,
			Score:      fmt.Sprintf("%.1f%%", clampPercent(h.Score*100)),
			ChunkIndex: h.ChunkIndex,
		}
	}
	return out
}

// clampPercent clamps a displayed score percentage to [0,100]. vector_score
// can be negative, so the raw percentage can fall outside that range; per
// the documented Open Question decision, the API always shows a sane
// percentage rather than a confusing negative or >100 figure.
func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// buildContext concatenates sources in rank order, each preceded by its
// "[Source i - name]" header, separated by a horizontal rule.
func buildContext(sources []Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = fmt.Sprintf("[Source %d - %s]\n%s", s.ID, s.SourceName, s.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func historyMessages(msgs []memory.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

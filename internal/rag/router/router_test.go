package router

import (
	"context"
	"strings"
	"testing"

	"github.com/corpusline/ragserver/internal/llm"
	"github.com/corpusline/ragserver/internal/rag/embedder"
	"github.com/corpusline/ragserver/internal/rag/index"
	"github.com/corpusline/ragserver/internal/rag/memory"
)

type stubProvider struct {
	available bool
	reply     string
}

func (s stubProvider) Name() string                                  { return "stub" }
func (s stubProvider) Available(context.Context) bool                { return s.available }
func (s stubProvider) Complete(ctx context.Context, system string, history []llm.Message, user string, opts llm.CompleteOptions) (string, error) {
	return s.reply, nil
}

func newTestRouter(withDocs bool, available bool) *Router {
	idx := index.New(embedder.NewDeterministic(32))
	if withDocs {
		_ = idx.Add(context.Background(), "doc1", "doc1.txt", []index.InputChunk{
			{Content: "the quarterly report mentions revenue grew 10 percent", Source: "doc1.txt", Type: "txt", ChunkIndex: 0},
		})
	}
	gw := llm.NewGateway(stubProvider{available: available, reply: "generated answer"})
	return New(idx, memory.NewStore(), gw)
}

func TestRoute_AutoResolvesGeneralWhenNoDocuments(t *testing.T) {
	r := newTestRouter(false, true)
	result, err := r.Route(context.Background(), "c1", "what is the weather", ModeAuto)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Mode != ModeGeneral {
		t.Fatalf("expected general mode, got %s", result.Mode)
	}
}

func TestRoute_RagWithoutCorpusReturnsRefusal(t *testing.T) {
	r := newTestRouter(false, true)
	result, err := r.Route(context.Background(), "c1", "what does the document say", ModeRAG)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Mode != ModeError {
		t.Fatalf("expected error mode, got %s", result.Mode)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected no sources")
	}
}

func TestRoute_HintTermForcesRag(t *testing.T) {
	r := newTestRouter(true, true)
	result, err := r.Route(context.Background(), "c1", "what does the document say about revenue", ModeAuto)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Mode != ModeRAG {
		t.Fatalf("expected rag mode, got %s", result.Mode)
	}
}

func TestRoute_DegradedLLMReturnsContextWithSuffix(t *testing.T) {
	r := newTestRouter(true, false)
	result, err := r.Route(context.Background(), "c1", "what does the document say about revenue", ModeRAG)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if result.Mode != ModeRAG {
		t.Fatalf("expected rag mode, got %s", result.Mode)
	}
	if len(result.Sources) == 0 {
		t.Fatalf("expected sources from retrieval even when degraded")
	}
	if !strings.HasSuffix(result.Answer, degradedSuffix) {
		t.Fatalf("expected degraded answer to end with the no-LLM suffix, got %q", result.Answer)
	}
}

func TestRoute_NoRelevantResultsWhenNothingScoresHighEnough(t *testing.T) {
	idx := index.New(embedder.NewDeterministic(32))
	_ = idx.Add(context.Background(), "doc1", "doc1.txt", []index.InputChunk{
		{Content: "completely unrelated filler text about gardening", Source: "doc1.txt", Type: "txt", ChunkIndex: 0},
	})
	gw := llm.NewGateway(stubProvider{available: true, reply: "generated answer"})
	r := New(idx, memory.NewStore(), gw, WithOptions(Options{RelevanceThreshold: 0.99, FallbackThreshold: 0.98}))

	result, err := r.Route(context.Background(), "c1", "quantum computing hardware specifications", ModeRAG)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !result.NoRelevantResults {
		t.Fatalf("expected NoRelevantResults true")
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected no sources")
	}
}

func TestRoute_AppendsBothTurnsToHistory(t *testing.T) {
	r := newTestRouter(false, true)
	mem := r.history
	_, err := r.Route(context.Background(), "c1", "hello", ModeGeneral)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	history := mem.LastN("c1", 0)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries (user + assistant), got %d", len(history))
	}
}

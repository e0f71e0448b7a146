package index

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/corpusline/ragserver/internal/rag/embedder"
)

func newTestIndex() *Index {
	return New(embedder.NewDeterministic(32))
}

func chunkOf(content string) InputChunk {
	return InputChunk{Content: content, Source: "doc.txt", Type: "txt"}
}

func TestAdd_IncrementsCounts(t *testing.T) {
	idx := newTestIndex()
	err := idx.Add(context.Background(), "doc1", "doc1.txt", []InputChunk{
		chunkOf("alpha beta gamma"),
		chunkOf("delta epsilon zeta"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idx.CountDocuments() != 1 {
		t.Fatalf("expected 1 document, got %d", idx.CountDocuments())
	}
	if idx.CountChunks() != 2 {
		t.Fatalf("expected 2 chunks, got %d", idx.CountChunks())
	}
}

func TestRemove_RestoresPriorCounts(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "doc1.txt", []InputChunk{chunkOf("alpha beta")})
	before := idx.CountChunks()
	_ = idx.Add(ctx, "doc2", "doc2.txt", []InputChunk{chunkOf("gamma delta"), chunkOf("epsilon zeta")})
	if err := idx.Remove("doc2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if idx.CountChunks() != before {
		t.Fatalf("expected count restored to %d, got %d", before, idx.CountChunks())
	}
	if idx.CountDocuments() != 1 {
		t.Fatalf("expected 1 document remaining, got %d", idx.CountDocuments())
	}
}

func TestRemove_IsolatesDocumentsWithCollidingChunkIDs(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	// Same declared name for both documents: chunk IDs ("<name>-chunk-<i>")
	// collide across doc1 and doc2. Deleting doc1 must not touch doc2's chunks.
	_ = idx.Add(ctx, "doc1", "report.txt", []InputChunk{
		{Content: "alpha beta gamma", Source: "report.txt", Type: "txt", ChunkIndex: 0},
	})
	_ = idx.Add(ctx, "doc2", "report.txt", []InputChunk{
		{Content: "delta epsilon zeta", Source: "report.txt", Type: "txt", ChunkIndex: 0},
	})
	if idx.CountChunks() != 2 {
		t.Fatalf("expected 2 chunks before delete, got %d", idx.CountChunks())
	}
	if err := idx.Remove("doc1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if idx.CountChunks() != 1 {
		t.Fatalf("expected 1 chunk remaining after deleting doc1, got %d", idx.CountChunks())
	}
	results, err := idx.HybridSearch(ctx, "delta epsilon zeta", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].DocID != "doc2" {
		t.Fatalf("expected doc2's surviving chunk to remain searchable, got %+v", results)
	}
}

func TestRemove_UnknownDocumentReturnsError(t *testing.T) {
	idx := newTestIndex()
	err := idx.Remove("never-added")
	if !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
}

func TestClear_EmptiesIndex(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "doc1.txt", []InputChunk{chunkOf("alpha")})
	idx.Clear()
	if idx.CountDocuments() != 0 || idx.CountChunks() != 0 {
		t.Fatalf("expected empty index after clear")
	}
}

func TestHybridSearch_BoundedByKAndCount(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "doc1.txt", []InputChunk{
		chunkOf("alpha beta gamma"),
		chunkOf("delta epsilon zeta"),
		chunkOf("eta theta iota"),
	})
	results, err := idx.HybridSearch(ctx, "alpha beta", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(results))
	}
}

func TestHybridSearch_ScoringMonotonicity(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "doc1.txt", []InputChunk{
		{Content: "widget widget appears here twice for emphasis", Source: "x.txt", Type: "txt", ChunkIndex: 0},
		{Content: "this chunk never mentions the important term at all", Source: "x.txt", Type: "txt", ChunkIndex: 1},
	})
	results, err := idx.HybridSearch(ctx, "widget", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) < 1 {
		t.Fatalf("expected results")
	}
	if results[0].ChunkIndex != 0 {
		t.Fatalf("expected chunk mentioning the query term to rank first, got chunk_index=%d", results[0].ChunkIndex)
	}
}

func TestChunk_EmbeddingIsUnitNorm(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "doc1.txt", []InputChunk{chunkOf("some content to embed")})
	results, _ := idx.HybridSearch(ctx, "content", 1)
	if len(results) == 0 {
		t.Fatalf("expected a result")
	}
	var sum float64
	for _, v := range results[0].Embedding {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if math.Abs(norm-1) > 1e-4 {
		t.Fatalf("expected unit norm, got %f", norm)
	}
}

func TestListDocuments_InsertionOrder(t *testing.T) {
	idx := newTestIndex()
	ctx := context.Background()
	_ = idx.Add(ctx, "doc1", "a.txt", []InputChunk{chunkOf("a")})
	_ = idx.Add(ctx, "doc2", "b.txt", []InputChunk{chunkOf("b")})
	_ = idx.Add(ctx, "doc3", "c.txt", []InputChunk{chunkOf("c")})
	docs := idx.ListDocuments()
	if len(docs) != 3 || docs[0].ID != "doc1" || docs[2].ID != "doc3" {
		t.Fatalf("expected insertion order doc1,doc2,doc3, got %+v", docs)
	}
}

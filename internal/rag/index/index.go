// Package index holds the hybrid dense/sparse chunk index and its
// document registry, fusing vector similarity and keyword overlap into a
// single ranking.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corpusline/ragserver/internal/rag/embedder"
	"github.com/corpusline/ragserver/internal/rag/keywords"
	"github.com/corpusline/ragserver/internal/rag/obs"
)

// ErrEmbedderUnavailable is returned when the embedder fails during add;
// the index is left unchanged.
var ErrEmbedderUnavailable = errors.New("embedder unavailable")

// ErrUnknownDocument is returned by Remove when docID is not registered.
var ErrUnknownDocument = errors.New("unknown document")

const defaultK = 8

// Chunk is a unit of retrieval once published into the index.
type Chunk struct {
	ID        string
	DocID     string
	Content   string
	Source    string
	Type      string
	Title     string
	ChunkIndex int
	CharStart int
	CharEnd   int
	Embedding []float32
	Keywords  []string
}

// Document is a document registry entry.
type Document struct {
	ID         string
	Name       string
	ChunkCount int
	AddedAt    time.Time
}

// ScoredChunk is a transient query result: a Chunk plus its per-query
// scoring breakdown.
type ScoredChunk struct {
	Chunk
	VectorScore float64
	KeywordScore float64
	PhraseBoost float64
	Score       float64
}

// InputChunk is what callers hand to Add before embedding and keyword
// extraction are applied.
type InputChunk struct {
	Content    string
	Source     string
	Type       string
	Title      string
	ChunkIndex int
	CharStart  int
	CharEnd    int
}

const (
	vectorWeight  = 0.60
	keywordWeight = 0.25
	maxPhraseBoost = 0.15
)

// Index holds all chunks with their embeddings and keyword bags, plus the
// document registry, kept in lock-step: any chunk present in the index has
// its owning document present in the registry, and vice versa.
//
// add/remove/clear are writer-exclusive; searches run concurrently with
// each other but never alongside a writer. Deleted chunks are tombstoned
// rather than compacted so concurrent readers never observe a torn slice.
type Index struct {
	mu        sync.RWMutex
	chunks    []Chunk
	tombstone map[int]struct{} // indices into chunks, not chunk IDs: IDs aren't guaranteed unique across documents
	byDoc     map[string][]int // doc_id -> indices into chunks
	docs      map[string]*Document
	docOrder  []string

	embedder embedder.Embedder
	log      obs.Logger
}

// Option configures an Index during construction.
type Option func(*Index)

// WithLogger attaches a structured logger for per-item failures (embedder
// errors during Add). Defaults to a no-op logger.
func WithLogger(l obs.Logger) Option { return func(idx *Index) { idx.log = l } }

// New constructs an empty index bound to emb for query and chunk
// embedding.
func New(emb embedder.Embedder, opts ...Option) *Index {
	idx := &Index{
		tombstone: make(map[int]struct{}),
		byDoc:     make(map[string][]int),
		docs:      make(map[string]*Document),
		embedder:  emb,
		log:       obs.NoopLogger{},
	}
	for _, o := range opts {
		o(idx)
	}
	return idx
}

// Add embeds and extracts keywords for each input chunk, then publishes
// the whole document's chunks and registry entry atomically under the
// write lock. Embedding happens before the lock is acquired so inference
// latency never blocks concurrent readers.
func (idx *Index) Add(ctx context.Context, docID, name string, inputs []InputChunk) error {
	if len(inputs) == 0 {
		idx.mu.Lock()
		idx.docs[docID] = &Document{ID: docID, Name: name, ChunkCount: 0, AddedAt: time.Now()}
		idx.docOrder = append(idx.docOrder, docID)
		idx.mu.Unlock()
		return nil
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Content
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		idx.log.Error("embedder unavailable", map[string]any{"doc_id": docID, "source": name, "err": err.Error()})
		return fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}

	staged := make([]Chunk, len(inputs))
	for i, in := range inputs {
		staged[i] = Chunk{
			ID:         fmt.Sprintf("%s-chunk-%d", name, in.ChunkIndex),
			DocID:      docID,
			Content:    strings.TrimSpace(in.Content),
			Source:     in.Source,
			Type:       in.Type,
			Title:      in.Title,
			ChunkIndex: in.ChunkIndex,
			CharStart:  in.CharStart,
			CharEnd:    in.CharEnd,
			Embedding:  vectors[i],
			Keywords:   keywords.Extract(in.Content),
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := len(idx.chunks)
	idx.chunks = append(idx.chunks, staged...)
	indices := make([]int, len(staged))
	for i := range staged {
		indices[i] = start + i
	}
	idx.byDoc[docID] = append(idx.byDoc[docID], indices...)
	idx.docs[docID] = &Document{ID: docID, Name: name, ChunkCount: len(staged), AddedAt: time.Now()}
	idx.docOrder = append(idx.docOrder, docID)
	return nil
}

// Remove evicts the document's registry entry and tombstones every chunk
// it owns, atomically with respect to any concurrent search. Returns
// ErrUnknownDocument if docID is not registered.
func (idx *Index) Remove(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.docs[docID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}

	for _, i := range idx.byDoc[docID] {
		idx.tombstone[i] = struct{}{}
	}
	delete(idx.byDoc, docID)
	delete(idx.docs, docID)
	for i, id := range idx.docOrder {
		if id == docID {
			idx.docOrder = append(idx.docOrder[:i], idx.docOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = nil
	idx.tombstone = make(map[int]struct{})
	idx.byDoc = make(map[string][]int)
	idx.docs = make(map[string]*Document)
	idx.docOrder = nil
}

// CountDocuments returns the number of registered documents.
func (idx *Index) CountDocuments() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// CountChunks returns the number of live (non-tombstoned) chunks.
func (idx *Index) CountChunks() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := 0
	for i := range idx.chunks {
		if _, dead := idx.tombstone[i]; !dead {
			n++
		}
	}
	return n
}

// HasDocuments reports whether any document is registered.
func (idx *Index) HasDocuments() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs) > 0
}

// ListDocuments returns registered documents in insertion order.
func (idx *Index) ListDocuments() []Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Document, 0, len(idx.docOrder))
	for _, id := range idx.docOrder {
		if d, ok := idx.docs[id]; ok {
			out = append(out, *d)
		}
	}
	return out
}

// VectorSearch returns the top-k chunks by vector similarity alone.
func (idx *Index) VectorSearch(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	qEmb, err := embedder.EmbedOne(ctx, idx.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := idx.liveChunks()
	scored := make([]ScoredChunk, len(results))
	for i, c := range results {
		vs := cosine(qEmb, c.Embedding)
		scored[i] = ScoredChunk{Chunk: c, VectorScore: vs, Score: vs}
	}
	return topK(scored, k), nil
}

// HybridSearch returns the top-k chunks by the combined vector + keyword +
// phrase-boost score, deterministic for a fixed index and query.
func (idx *Index) HybridSearch(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	qEmb, err := embedder.EmbedOne(ctx, idx.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedderUnavailable, err)
	}
	qKw := keywords.Extract(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	live := idx.liveChunks()
	scored := make([]ScoredChunk, len(live))
	for i, c := range live {
		scored[i] = score(qEmb, qKw, c)
	}
	return topK(scored, k), nil
}

func (idx *Index) liveChunks() []Chunk {
	out := make([]Chunk, 0, len(idx.chunks))
	for i, c := range idx.chunks {
		if _, dead := idx.tombstone[i]; dead {
			continue
		}
		out = append(out, c)
	}
	return out
}

func score(qEmb []float32, qKw []string, c Chunk) ScoredChunk {
	vectorScore := cosine(qEmb, c.Embedding)
	keywordScore := overlapRatio(qKw, c.Keywords)
	phraseBoost := phraseBoost(qKw, c.Content)
	combined := vectorWeight*vectorScore + keywordWeight*keywordScore + phraseBoost
	return ScoredChunk{
		Chunk:        c,
		VectorScore:  vectorScore,
		KeywordScore: keywordScore,
		PhraseBoost:  phraseBoost,
		Score:        combined,
	}
}

func overlapRatio(qKw, cKw []string) float64 {
	if len(qKw) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(cKw))
	for _, k := range cKw {
		set[k] = struct{}{}
	}
	overlap := 0
	for _, k := range qKw {
		if _, ok := set[k]; ok {
			overlap++
		}
	}
	denom := len(qKw)
	if denom < 1 {
		denom = 1
	}
	return float64(overlap) / float64(denom)
}

// phraseBoost scores the first 5 query keywords as "important words"
// against the lowercased chunk content: +0.05 per important word present
// anywhere, +0.10 if the two-word phrase of the first two important words
// appears, clamped to maxPhraseBoost.
func phraseBoost(qKw []string, content string) float64 {
	important := qKw
	if len(important) > 5 {
		important = important[:5]
	}
	if len(important) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	var boost float64
	for _, w := range important {
		if strings.Contains(lower, w) {
			boost += 0.05
		}
	}
	if len(important) >= 2 {
		phrase := important[0] + " " + important[1]
		if strings.Contains(lower, phrase) {
			boost += 0.10
		}
	}
	if boost > maxPhraseBoost {
		boost = maxPhraseBoost
	}
	return boost
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// topK sorts descending by score, tie-breaking by original insertion
// order, and returns the first k. Default k is defaultK when k <= 0.
func topK(scored []ScoredChunk, k int) []ScoredChunk {
	if k <= 0 {
		k = defaultK
	}
	type indexed struct {
		pos int
		ScoredChunk
	}
	tmp := make([]indexed, len(scored))
	for i, s := range scored {
		tmp[i] = indexed{pos: i, ScoredChunk: s}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		if tmp[i].Score != tmp[j].Score {
			return tmp[i].Score > tmp[j].Score
		}
		return tmp[i].pos < tmp[j].pos
	})
	if k > len(tmp) {
		k = len(tmp)
	}
	out := make([]ScoredChunk, k)
	for i := 0; i < k; i++ {
		out[i] = tmp[i].ScoredChunk
	}
	return out
}

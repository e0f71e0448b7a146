// Package embedder converts chunk and query text into dense vectors,
// fanning batch requests out across a bounded number of concurrent calls
// to the underlying model.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxInputChars = 512

// Embedder converts text into embedding vectors. Output vectors are
// L2-normalized, whether or not the underlying model already normalizes.
type Embedder interface {
	// EmbedBatch returns one embedding vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// EmbedOne is a convenience wrapper over EmbedBatch for a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("embedder: empty result")
	}
	return out[0], nil
}

// httpEmbedder calls an OpenAI-compatible embeddings endpoint, fanning
// batches of texts out across a bounded number of concurrent requests.
type httpEmbedder struct {
	endpoint  string
	model     string
	dim       int
	batchSize int
	client    *http.Client
}

// NewHTTP constructs an embedder against an OpenAI-compatible /embeddings
// endpoint. batchSize bounds concurrent in-flight requests per EmbedBatch
// call; <= 0 falls back to 20.
func NewHTTP(endpoint, model string, dim, batchSize int) Embedder {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &httpEmbedder{
		endpoint:  endpoint,
		model:     model,
		dim:       dim,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *httpEmbedder) Name() string   { return h.model }
func (h *httpEmbedder) Dimension() int { return h.dim }

func (h *httpEmbedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// EmbedBatch truncates each text to maxInputChars, then encodes the batch
// with up to h.batchSize concurrent requests, preserving input order in the
// output slice.
func (h *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.batchSize)

	for i, t := range texts {
		i, t := i, truncate(t, maxInputChars)
		g.Go(func() error {
			vec, err := h.embedOne(gctx, t)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = normalize(vec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: h.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("embedder endpoint returned %d: %s", resp.StatusCode, string(b))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedder endpoint returned no embeddings")
	}
	return parsed.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// deterministicEmbedder hashes byte trigrams into a fixed-size vector,
// L2-normalized. It needs no network and is used when no embedding
// endpoint is configured, and in tests.
type deterministicEmbedder struct {
	dim  int
	name string
}

// NewDeterministic constructs a deterministic embedder of the given
// dimension. dim <= 0 falls back to 384.
func NewDeterministic(dim int) Embedder {
	if dim <= 0 {
		dim = 384
	}
	return &deterministicEmbedder{dim: dim, name: "deterministic"}
}

func (d *deterministicEmbedder) Name() string            { return d.name }
func (d *deterministicEmbedder) Dimension() int          { return d.dim }
func (d *deterministicEmbedder) Ping(_ context.Context) error { return nil }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = normalize(d.embedOne(truncate(t, maxInputChars)))
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) < 3 {
		hashInto(b, v)
		return v
	}
	for i := 0; i <= len(b)-3; i++ {
		hashInto(b[i:i+3], v)
	}
	return v
}

func hashInto(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}

// Gateway wraps an Embedder with single-flight initialization: concurrent
// first calls to Get share one construction, later calls reuse the cached
// handle. Mirrors the embed-before-lock discipline required of C5: callers
// embed through the gateway before acquiring any index write lock.
type Gateway struct {
	once  sync.Once
	build func() Embedder
	inst  Embedder
}

// NewGateway defers construction of the underlying embedder to the first
// call to Get.
func NewGateway(build func() Embedder) *Gateway {
	return &Gateway{build: build}
}

func (g *Gateway) Get() Embedder {
	g.once.Do(func() {
		g.inst = g.build()
	})
	return g.inst
}

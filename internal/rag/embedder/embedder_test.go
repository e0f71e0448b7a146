package embedder

import (
	"context"
	"math"
	"testing"
)

func TestDeterministic_UnitNorm(t *testing.T) {
	e := NewDeterministic(64)
	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "a different sentence entirely"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, v := range vecs {
		if len(v) != 64 {
			t.Fatalf("vector %d: expected dim 64, got %d", i, len(v))
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		norm := math.Sqrt(sum)
		if math.Abs(norm-1) > 1e-4 && norm != 0 {
			t.Fatalf("vector %d: expected unit norm, got %f", i, norm)
		}
	}
}

func TestDeterministic_Deterministic(t *testing.T) {
	e := NewDeterministic(32)
	a, _ := e.EmbedBatch(context.Background(), []string{"repeatable text"})
	b, _ := e.EmbedBatch(context.Background(), []string{"repeatable text"})
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected identical vectors for identical input at index %d", i)
		}
	}
}

func TestDeterministic_PreservesOrder(t *testing.T) {
	e := NewDeterministic(32)
	texts := []string{"first", "second", "third"}
	out, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(out) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(out))
	}
	single := func(s string) []float32 {
		v, _ := e.EmbedBatch(context.Background(), []string{s})
		return v[0]
	}
	for i, text := range texts {
		want := single(text)
		for j := range want {
			if out[i][j] != want[j] {
				t.Fatalf("batch result %d diverges from single-item embed at index %d", i, j)
			}
		}
	}
}

func TestGateway_SingleFlightReturnsSameInstance(t *testing.T) {
	calls := 0
	g := NewGateway(func() Embedder {
		calls++
		return NewDeterministic(16)
	})

	var results []Embedder
	for i := 0; i < 5; i++ {
		results = append(results, g.Get())
	}
	if calls != 1 {
		t.Fatalf("expected exactly one build, got %d", calls)
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("call %d returned a different instance", i)
		}
	}
}

func TestEmbedOne_ReturnsFirstVector(t *testing.T) {
	e := NewDeterministic(16)
	v, err := EmbedOne(context.Background(), e, "solo text")
	if err != nil {
		t.Fatalf("embed one: %v", err)
	}
	if len(v) != 16 {
		t.Fatalf("expected dim 16, got %d", len(v))
	}
}

package chunker

import (
	"strings"
	"testing"
)

func genSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("The quick brown fox jumps over the lazy dog again.")
	}
	return b.String()
}

func TestChunk_EmptyInputYieldsZeroChunks(t *testing.T) {
	if got := Chunk("", Options{}); len(got) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(got))
	}
	if got := Chunk("   \n\n  ", Options{}); len(got) != 0 {
		t.Fatalf("expected 0 chunks for blank input, got %d", len(got))
	}
}

func TestChunk_RespectsChunkSizeApproximately(t *testing.T) {
	text := genSentences(200)
	chunks := Chunk(text, Options{ChunkSize: 200, ChunkOverlap: 50})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if i == len(chunks)-1 {
			continue
		}
		if len(c.Text) > 260 {
			t.Fatalf("chunk %d length %d exceeds tolerance", i, len(c.Text))
		}
	}
}

func TestChunk_IndexIsMonotonicDense(t *testing.T) {
	chunks := Chunk(genSentences(50), Options{ChunkSize: 200, ChunkOverlap: 50})
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("expected index %d, got %d", i, c.Index)
		}
	}
}

func TestChunk_OversizeSentenceBecomesSingleChunk(t *testing.T) {
	long := strings.Repeat("word ", 500) + "."
	chunks := Chunk(long, Options{ChunkSize: 100, ChunkOverlap: 20})
	if len(chunks) != 1 {
		t.Fatalf("expected a single oversize chunk, got %d", len(chunks))
	}
}

func TestChunk_OverlapCarriesTrailingWordsForward(t *testing.T) {
	text := genSentences(100)
	chunks := Chunk(text, Options{ChunkSize: 200, ChunkOverlap: 100})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	prevWords := strings.Fields(chunks[0].Text)
	tail := prevWords[len(prevWords)-1]
	if !strings.Contains(chunks[1].Text, tail) {
		t.Fatalf("expected chunk 1 to carry overlap from chunk 0's tail word %q", tail)
	}
}

func TestChunk_ConcatenateAndRechunkStableCount(t *testing.T) {
	text := genSentences(300)
	first := Chunk(text, Options{ChunkSize: 400, ChunkOverlap: 80})
	doubled := text + " " + text
	second := Chunk(doubled, Options{ChunkSize: 400, ChunkOverlap: 80})
	diff := len(second) - 2*len(first)
	if diff < -1 || diff > 1 {
		t.Fatalf("expected rechunk count within +-1 of doubled input, got first=%d second=%d", len(first), len(second))
	}
}

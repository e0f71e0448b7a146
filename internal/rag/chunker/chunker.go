// Package chunker splits extracted document text into overlapping,
// sentence-boundary-respecting chunks sized for embedding.
package chunker

import (
	"math"
	"regexp"
	"strings"
)

// TextChunk is one ordered slice of a document's text, produced before
// embedding or keyword extraction are applied.
type TextChunk struct {
	Index     int
	Text      string
	CharStart int
	CharEnd   int
}

// Options configures the chunker. Zero values fall back to the defaults
// below.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 200
)

var (
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
	sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]?\s+`)
	paragraphRe   = regexp.MustCompile(`\n{2,}`)
)

// Chunk splits text per the algorithm: normalize newlines, split into
// sentences on terminal punctuation or blank-line runs, then greedily pack
// sentences into buffers, starting a new buffer before a sentence that would
// push the current one past opt.ChunkSize and seeding it with a trailing
// slice of the previous one sized by opt.ChunkOverlap. The seed plus the
// next sentence can exceed ChunkSize. A single sentence longer than
// ChunkSize is never split mid-sentence; it becomes its own oversize chunk.
func Chunk(text string, opt Options) []TextChunk {
	size := opt.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := opt.ChunkOverlap
	if overlap <= 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		out []TextChunk
		buf strings.Builder
	)

	flush := func() {
		s := strings.TrimSpace(buf.String())
		if s == "" {
			return
		}
		idx := len(out)
		start := idx * (size - overlap)
		out = append(out, TextChunk{
			Index:     idx,
			Text:      s,
			CharStart: start,
			CharEnd:   start + len(s),
		})
	}

	for _, sent := range sentences {
		if buf.Len() > 0 && buf.Len()+1+len(sent) > size {
			emitted := buf.String()
			flush()
			buf.Reset()
			buf.WriteString(overlapSeed(emitted, size, overlap))
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sent)
	}
	flush()

	return out
}

// splitSentences normalizes line endings and splits on sentence-terminal
// punctuation or runs of two or more newlines, dropping empty results.
func splitSentences(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = newlineRunRe.ReplaceAllString(normalized, "\n\n")

	var out []string
	for _, para := range paragraphRe.Split(normalized, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		start := 0
		for _, loc := range sentenceEndRe.FindAllStringIndex(para, -1) {
			s := strings.TrimSpace(para[start:loc[1]])
			if s != "" {
				out = append(out, s)
			}
			start = loc[1]
		}
		if rest := strings.TrimSpace(para[start:]); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

// overlapSeed returns the trailing ⌈(overlap/size)·wordCount⌉ words of
// emitted, approximating character-level overlap by word boundaries.
func overlapSeed(emitted string, size, overlap int) string {
	words := strings.Fields(emitted)
	if len(words) == 0 {
		return ""
	}
	n := int(math.Ceil(float64(overlap) / float64(size) * float64(len(words))))
	if n <= 0 {
		return ""
	}
	if n > len(words) {
		n = len(words)
	}
	return strings.Join(words[len(words)-n:], " ")
}

// Package chunker turns document text into ordered, retrievable chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
)

type Strategy string

const (
	StrategySimple          Strategy = "SIMPLE"
	StrategySentenceGrouped Strategy = "SENTENCE_GROUPED"
)

// ParseStrategy accepts the canonical names case-insensitively, plus the
// short aliases "sentence" and "oraciones".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SIMPLE":
		return StrategySimple, nil
	case "SENTENCE_GROUPED", "SENTENCE", "ORACIONES":
		return StrategySentenceGrouped, nil
	}
	return "", apperror.Configuration("chunker", "unknown chunk strategy %q", s)
}

type Options struct {
	Strategy  Strategy
	ChunkSize int
	Overlap   int
}

func (o Options) Validate() error {
	switch o.Strategy {
	case StrategySimple:
		if o.ChunkSize <= 0 {
			return apperror.Configuration("chunker", "chunk size must be positive, got %d", o.ChunkSize)
		}
		if o.Overlap < 0 || o.Overlap >= o.ChunkSize {
			return apperror.Configuration("chunker", "overlap must satisfy 0 <= overlap < chunk size, got overlap=%d chunk size=%d", o.Overlap, o.ChunkSize)
		}
	case StrategySentenceGrouped:
		if o.ChunkSize <= 0 {
			return apperror.Configuration("chunker", "chunk size must be positive, got %d", o.ChunkSize)
		}
	default:
		return apperror.Configuration("chunker", "unknown chunk strategy %q", o.Strategy)
	}
	return nil
}

// Chunker holds validated options.
type Chunker struct {
	opts Options
}

func New(opts Options) (*Chunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{opts: opts}, nil
}

func (c *Chunker) Options() Options { return c.opts }

// Chunk splits doc. Whitespace-only text yields no chunks.
func (c *Chunker) Chunk(doc store.Document) []store.Chunk {
	runes := []rune(doc.Text)
	var spans []span
	switch c.opts.Strategy {
	case StrategySimple:
		spans = simpleSpans(runes, c.opts.ChunkSize, c.opts.Overlap)
	case StrategySentenceGrouped:
		spans = groupSentences(sentenceSpans(runes), c.opts.ChunkSize)
	}

	chunks := make([]store.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, store.Chunk{
			ID:            ChunkID(doc.ID, i),
			Text:          string(runes[s.start:s.end]),
			StartOffset:   s.start,
			EndOffset:     s.end,
			SequenceIndex: i,
			SourceDocID:   doc.ID,
		})
	}
	return chunks
}

// Split validates opts and chunks doc in one call.
func Split(doc store.Document, opts Options) ([]store.Chunk, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	return c.Chunk(doc), nil
}

// ChunkID is stable for a (document, position) pair so that re-ingestion
// overwrites earlier records.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s#chunk_%04d", docID, seq)
}

// span is a half-open rune range.
type span struct {
	start, end int
}

func trimSpan(runes []rune, start, end int) span {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return span{start: start, end: end}
}

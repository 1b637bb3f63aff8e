package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HashingProvider is an offline embedding model based on signed feature
// hashing of words and character trigrams. It needs no network access and is
// deterministic across processes, so it backs local runs and tests.
type HashingProvider struct {
	dimension int
}

func NewHashingProvider(dimension int) *HashingProvider {
	return &HashingProvider{dimension: dimension}
}

var _ BatchEmbeddingProvider = &HashingProvider{}

const trigramWeight = 0.5

func (p *HashingProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: p.vector(text)},
	}, nil
}

func (p *HashingProvider) GenerateBatch(ctx context.Context, texts []string, taskType string) ([]EmbeddingResponse, error) {
	out := make([]EmbeddingResponse, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i].Embedding.Values = p.vector(t)
	}
	return out, nil
}

func (p *HashingProvider) vector(text string) []float32 {
	vec := make([]float32, p.dimension)
	if p.dimension <= 0 {
		return vec
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		// Punctuation-only input still gets a stable, non-zero vector.
		p.add(vec, strings.TrimSpace(text), 1)
		return vec
	}
	for _, tok := range tokens {
		p.add(vec, tok, 1)
		padded := []rune("^" + tok + "$")
		for i := 0; i+3 <= len(padded); i++ {
			p.add(vec, "#"+string(padded[i:i+3]), trigramWeight)
		}
	}
	return vec
}

func (p *HashingProvider) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(p.dimension)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize lowercases, strips diacritics and splits on anything that is not
// a letter or digit, so "Educación" and "EDUCACION" hash identically.
func tokenize(text string) []string {
	// Chained transformers keep state, so each call builds its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, text)
	if err != nil {
		folded = text
	}
	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package prompt

import (
	"strings"
	"testing"

	"cv-rag/pkg/store"

	"github.com/stretchr/testify/assert"
)

func hit(seq int, text string) store.ScoredRecord {
	return store.ScoredRecord{ID: text, Score: 0.9, Metadata: store.RecordMetadata{SequenceIndex: seq, Text: text}}
}

func TestBuildContextRendersInOrder(t *testing.T) {
	b := NewBuilder("", 0)
	ctx, included := b.BuildContext([]store.ScoredRecord{hit(2, "Go"), hit(0, "Ana")})

	assert.Equal(t, "[Chunk 3]: Go\n\n[Chunk 1]: Ana", ctx)
	assert.Len(t, included, 2)
}

func TestBuildContextBudget(t *testing.T) {
	records := []store.ScoredRecord{hit(0, "aaaa"), hit(1, "bbbb"), hit(2, "c")}
	first := len("[Chunk 1]: aaaa")

	tests := []struct {
		name   string
		budget int
		want   int
	}{
		{"unlimited", 0, 3},
		{"exactly one", first, 1},
		{"one plus partial room", first + 5, 1},
		{"first too large", first - 1, 0},
		{"two", 2*first + 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, included := NewBuilder("", tt.budget).BuildContext(records)
			assert.Len(t, included, tt.want)
			if tt.budget > 0 {
				assert.LessOrEqual(t, len([]rune(ctx)), tt.budget)
			}
		})
	}
}

func TestBuildContextStopsAtFirstOverflow(t *testing.T) {
	// The third chunk would fit on its own but follows one that does not.
	records := []store.ScoredRecord{hit(0, "a"), hit(1, strings.Repeat("x", 50)), hit(2, "b")}
	_, included := NewBuilder("", 30).BuildContext(records)
	assert.Len(t, included, 1)
}

func TestBuildSectionsAndMarker(t *testing.T) {
	b := NewBuilder("Sé breve.", 0)

	p := b.Build("¿Dónde estudió?", "")
	assert.Contains(t, p, NoContextMarker)

	p = b.Build("¿Qué estudió?", "[Chunk 1]: Maestría en Inteligencia Artificial, UBA, 2018-2020")
	assert.NotContains(t, p, NoContextMarker)
	task := strings.Index(p, "Sé breve.")
	ctx := strings.Index(p, "Maestría en Inteligencia Artificial, UBA, 2018-2020")
	q := strings.Index(p, "¿Qué estudió?")
	assert.True(t, task < ctx && ctx < q, "instruction, context, question order")
}

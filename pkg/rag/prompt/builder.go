package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cv-rag/pkg/store"
)

// NoContextMarker replaces the reference material when retrieval produced
// nothing usable.
const NoContextMarker = "[NO CONTEXT FOUND]"

const chunkSeparator = "\n\n"

const DefaultSystemInstruction = "You are an assistant that answers questions about a candidate's résumé. " +
	"Answer only from the reference material. If the material does not contain the answer, " +
	"say that the résumé does not mention it. Answer in the language of the question."

// Builder assembles the generator prompt from retrieved chunks.
type Builder struct {
	SystemInstruction string
	// MaxContextLength caps the rendered context in characters. 0 means no cap.
	MaxContextLength int
}

func NewBuilder(systemInstruction string, maxContextLength int) *Builder {
	if systemInstruction == "" {
		systemInstruction = DefaultSystemInstruction
	}
	return &Builder{SystemInstruction: systemInstruction, MaxContextLength: maxContextLength}
}

// RenderChunk formats one retrieved chunk. Chunks are numbered from 1.
func RenderChunk(r store.ScoredRecord) string {
	return fmt.Sprintf("[Chunk %d]: %s", r.Metadata.SequenceIndex+1, r.Metadata.Text)
}

// BuildContext renders records in order until the next one would exceed
// MaxContextLength. It returns the context and the records it includes; a
// chunk is never cut.
func (b *Builder) BuildContext(records []store.ScoredRecord) (string, []store.ScoredRecord) {
	var (
		sb       strings.Builder
		length   int
		included []store.ScoredRecord
	)
	for _, r := range records {
		entry := RenderChunk(r)
		add := utf8.RuneCountInString(entry)
		if len(included) > 0 {
			add += utf8.RuneCountInString(chunkSeparator)
		}
		if b.MaxContextLength > 0 && length+add > b.MaxContextLength {
			break
		}
		if len(included) > 0 {
			sb.WriteString(chunkSeparator)
		}
		sb.WriteString(entry)
		length += add
		included = append(included, r)
	}
	return sb.String(), included
}

// Build lays out instruction, context and question. An empty context is
// replaced by NoContextMarker.
func (b *Builder) Build(question, context string) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString(b.SystemInstruction)
	prompt.WriteString("\n</task>\n\n")

	prompt.WriteString("<reference_material>\n")
	if strings.TrimSpace(context) == "" {
		prompt.WriteString(NoContextMarker)
	} else {
		prompt.WriteString(context)
	}
	prompt.WriteString("\n</reference_material>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now answer the question using only the reference material:")

	return prompt.String()
}

package store

import "time"

// Document is a loaded source text. It is never mutated after loading.
type Document struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Chunk is a contiguous retrievable unit of a Document.
// Offsets count characters (runes) of Document.Text; EndOffset is exclusive.
type Chunk struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
	SequenceIndex int    `json:"sequence_index"`
	SourceDocID   string `json:"source_doc_id"`
}

// RecordMetadata travels with a vector into the index and back.
type RecordMetadata struct {
	Text          string            `json:"text"`
	SourceDocID   string            `json:"source_doc_id"`
	SequenceIndex int               `json:"sequence_index"`
	StartOffset   int               `json:"start_offset"`
	EndOffset     int               `json:"end_offset"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// IndexRecord is the unit written to a vector index namespace.
type IndexRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"-"`
	Metadata RecordMetadata `json:"metadata"`
}

// ScoredRecord is one retrieval hit. Higher Score means more similar.
type ScoredRecord struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata RecordMetadata `json:"metadata"`
}

// NewIndexRecord pairs a chunk with its embedding.
func NewIndexRecord(c Chunk, vector []float32, extra map[string]string) IndexRecord {
	return IndexRecord{
		ID:     c.ID,
		Vector: vector,
		Metadata: RecordMetadata{
			Text:          c.Text,
			SourceDocID:   c.SourceDocID,
			SequenceIndex: c.SequenceIndex,
			StartOffset:   c.StartOffset,
			EndOffset:     c.EndOffset,
			Extra:         extra,
		},
	}
}

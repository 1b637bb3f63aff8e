package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConversationEntry is one answered question kept for display.
type ConversationEntry struct {
	Id        uuid.UUID
	Question  string
	Answer    string
	NoContext bool
	Sources   []ConversationSource
	CreatedAt time.Time
}

type ConversationSource struct {
	ChunkId       string
	Score         float64
	SequenceIndex int
}

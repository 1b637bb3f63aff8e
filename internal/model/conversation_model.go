package model

import "time"

// ConversationEntry is the serialized form stored in the history list.
type ConversationEntry struct {
	ID        string               `json:"id"`
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	NoContext bool                 `json:"no_context,omitempty"`
	Sources   []ConversationSource `json:"sources"`
	CreatedAt time.Time            `json:"created_at"`
}

type ConversationSource struct {
	ID            string  `json:"id"`
	Score         float64 `json:"score"`
	SequenceIndex int     `json:"sequence_index"`
}

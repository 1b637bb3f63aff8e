package dto

import (
	"time"

	"github.com/google/uuid"
)

type AnswerRequest struct {
	Question    string `json:"question" validate:"required,max=2000"`
	SourceDocId string `json:"sourceDocId,omitempty" validate:"omitempty,max=128"`
}

type SourceDTO struct {
	Id            string  `json:"id"`
	Score         float64 `json:"score"`
	SequenceIndex int     `json:"sequenceIndex"`
}

type AnswerResponse struct {
	Id        uuid.UUID   `json:"id"`
	Answer    string      `json:"answer"`
	Sources   []SourceDTO `json:"sources"`
	Retrieved int         `json:"retrieved"`
	NoContext bool        `json:"noContext"`
}

type HistoryEntryResponse struct {
	Id        uuid.UUID   `json:"id"`
	Question  string      `json:"question"`
	Answer    string      `json:"answer"`
	NoContext bool        `json:"noContext"`
	Sources   []SourceDTO `json:"sources"`
	CreatedAt time.Time   `json:"createdAt"`
}

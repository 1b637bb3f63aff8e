package mapper

import (
	"cv-rag/internal/entity"
	"cv-rag/internal/model"

	"github.com/google/uuid"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ToModel(e *entity.ConversationEntry) *model.ConversationEntry {
	if e == nil {
		return nil
	}
	sources := make([]model.ConversationSource, len(e.Sources))
	for i, s := range e.Sources {
		sources[i] = model.ConversationSource{
			ID:            s.ChunkId,
			Score:         s.Score,
			SequenceIndex: s.SequenceIndex,
		}
	}
	return &model.ConversationEntry{
		ID:        e.Id.String(),
		Question:  e.Question,
		Answer:    e.Answer,
		NoContext: e.NoContext,
		Sources:   sources,
		CreatedAt: e.CreatedAt,
	}
}

// ToEntity tolerates a malformed id; the entry then gets the nil UUID.
func (m *ConversationMapper) ToEntity(md *model.ConversationEntry) *entity.ConversationEntry {
	if md == nil {
		return nil
	}
	id, _ := uuid.Parse(md.ID)
	sources := make([]entity.ConversationSource, len(md.Sources))
	for i, s := range md.Sources {
		sources[i] = entity.ConversationSource{
			ChunkId:       s.ID,
			Score:         s.Score,
			SequenceIndex: s.SequenceIndex,
		}
	}
	return &entity.ConversationEntry{
		Id:        id,
		Question:  md.Question,
		Answer:    md.Answer,
		NoContext: md.NoContext,
		Sources:   sources,
		CreatedAt: md.CreatedAt,
	}
}

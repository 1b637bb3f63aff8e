package pgvector

import (
	"fmt"
	"time"

	"cv-rag/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// VectorNamespace records the shape every vector in a namespace must have.
type VectorNamespace struct {
	Name      string    `gorm:"primaryKey;type:text"`
	Dimension int       `gorm:"not null"`
	Metric    string    `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorNamespace) TableName() string {
	return "vector_namespaces"
}

// VectorRecord is one chunk vector. The embedding column is declared without
// a dimension so namespaces of different models can share the table.
type VectorRecord struct {
	Namespace     string            `gorm:"primaryKey;type:text"`
	ID            string            `gorm:"primaryKey;type:text"`
	Embedding     pgvector.Vector   `gorm:"type:vector;not null"`
	Text          string            `gorm:"type:text"`
	SourceDocID   string            `gorm:"type:text;index:idx_vector_records_source"`
	SequenceIndex int               `gorm:"default:0"`
	StartOffset   int               `gorm:"default:0"`
	EndOffset     int               `gorm:"default:0"`
	Extra         datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime"`
}

func (VectorRecord) TableName() string {
	return "vector_records"
}

func toModel(namespace string, r store.IndexRecord) VectorRecord {
	var extra datatypes.JSONMap
	if len(r.Metadata.Extra) > 0 {
		extra = make(datatypes.JSONMap, len(r.Metadata.Extra))
		for k, v := range r.Metadata.Extra {
			extra[k] = v
		}
	}
	return VectorRecord{
		Namespace:     namespace,
		ID:            r.ID,
		Embedding:     pgvector.NewVector(r.Vector),
		Text:          r.Metadata.Text,
		SourceDocID:   r.Metadata.SourceDocID,
		SequenceIndex: r.Metadata.SequenceIndex,
		StartOffset:   r.Metadata.StartOffset,
		EndOffset:     r.Metadata.EndOffset,
		Extra:         extra,
	}
}

func (m VectorRecord) metadata() store.RecordMetadata {
	var extra map[string]string
	if len(m.Extra) > 0 {
		extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			extra[k] = fmt.Sprint(v)
		}
	}
	return store.RecordMetadata{
		Text:          m.Text,
		SourceDocID:   m.SourceDocID,
		SequenceIndex: m.SequenceIndex,
		StartOffset:   m.StartOffset,
		EndOffset:     m.EndOffset,
		Extra:         extra,
	}
}

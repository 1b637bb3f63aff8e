// Package pgvector stores namespaces in PostgreSQL with the pgvector
// extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ vectorindex.Store = &Store{}

// Migrate enables the extension and creates both tables.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&VectorNamespace{}, &VectorRecord{}); err != nil {
		return fmt.Errorf("migrate vector tables: %w", err)
	}
	return nil
}

func (s *Store) EnsureNamespace(ctx context.Context, spec vectorindex.NamespaceSpec) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := VectorNamespace{Name: spec.Name, Dimension: spec.Dimension, Metric: string(spec.Metric)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}

		var existing VectorNamespace
		if err := tx.Where("name = ?", spec.Name).First(&existing).Error; err != nil {
			return err
		}
		return spec.Conflict(vectorindex.NamespaceSpec{
			Name:      existing.Name,
			Dimension: existing.Dimension,
			Metric:    vectorindex.Metric(existing.Metric),
		})
	})
}

func (s *Store) Upsert(ctx context.Context, namespace string, records []store.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]VectorRecord, len(records))
	for i, r := range records {
		models[i] = toModel(namespace, r)
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "text", "source_doc_id", "sequence_index", "start_offset", "end_offset", "extra", "updated_at"}),
		}).
		Create(&models).Error
}

func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter) ([]store.ScoredRecord, error) {
	ns, err := s.namespace(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return []store.ScoredRecord{}, nil
	}

	// <=> is cosine distance and <#> is negative inner product.
	scoreExpr := "1 - (embedding <=> ?)"
	if vectorindex.Metric(ns.Metric) == vectorindex.MetricDot {
		scoreExpr = "(embedding <#> ?) * -1"
	}

	type result struct {
		VectorRecord
		Score float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)
	q := s.db.WithContext(ctx).
		Model(&VectorRecord{}).
		Select("vector_records.*, "+scoreExpr+" AS score", queryVector).
		Where("namespace = ?", namespace)
	if filter.SourceDocID != "" {
		q = q.Where("source_doc_id = ?", filter.SourceDocID)
	}
	err = q.Order("score DESC").Order("id").
		Limit(topK).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	out := make([]store.ScoredRecord, len(results))
	for i, r := range results {
		out[i] = store.ScoredRecord{ID: r.ID, Score: r.Score, Metadata: r.metadata()}
	}
	return out, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("namespace = ?", namespace).Delete(&VectorRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", namespace).Delete(&VectorNamespace{}).Error
	})
}

func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&VectorRecord{}).Where("namespace = ?", namespace).Count(&count).Error
	return int(count), err
}

func (s *Store) DeleteStale(ctx context.Context, namespace, sourceDocID string, keep []string) (int, error) {
	q := s.db.WithContext(ctx).Where("namespace = ? AND source_doc_id = ?", namespace, sourceDocID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Delete(&VectorRecord{})
	return int(res.RowsAffected), res.Error
}

func (s *Store) namespace(ctx context.Context, name string) (*VectorNamespace, error) {
	var ns VectorNamespace
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&ns).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ns, nil
}

// Package memory is a process-local vector store for tests and offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"
)

type namespace struct {
	spec    vectorindex.NamespaceSpec
	records map[string]store.IndexRecord
}

type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

func NewStore() *Store {
	return &Store{namespaces: make(map[string]*namespace)}
}

var _ vectorindex.Store = &Store{}

func (s *Store) EnsureNamespace(ctx context.Context, spec vectorindex.NamespaceSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.namespaces[spec.Name]; ok {
		return spec.Conflict(ns.spec)
	}
	s.namespaces[spec.Name] = &namespace{spec: spec, records: make(map[string]store.IndexRecord)}
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, records []store.IndexRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return fmt.Errorf("namespace %q does not exist", name)
	}
	for _, r := range records {
		if len(r.Vector) != ns.spec.Dimension {
			return fmt.Errorf("record %s: dimension %d, namespace has %d", r.ID, len(r.Vector), ns.spec.Dimension)
		}
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		r.Metadata.Extra = copyExtra(r.Metadata.Extra)
		ns.records[r.ID] = r
	}
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int, filter vectorindex.Filter) ([]store.ScoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[name]
	if !ok || len(ns.records) == 0 {
		return []store.ScoredRecord{}, nil
	}
	if len(vector) != ns.spec.Dimension {
		return nil, fmt.Errorf("query dimension %d, namespace has %d", len(vector), ns.spec.Dimension)
	}

	hits := make([]store.ScoredRecord, 0, len(ns.records))
	for _, r := range ns.records {
		if !filter.Match(r.Metadata) {
			continue
		}
		md := r.Metadata
		md.Extra = copyExtra(md.Extra)
		hits = append(hits, store.ScoredRecord{
			ID:       r.ID,
			Score:    vectorindex.Similarity(ns.spec.Metric, vector, r.Vector),
			Metadata: md,
		})
	}

	// Ties break by id so results are stable across map iteration order.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, name)
	return nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.namespaces[name]; ok {
		return len(ns.records), nil
	}
	return 0, nil
}

func (s *Store) DeleteStale(ctx context.Context, name, sourceDocID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[name]
	if !ok {
		return 0, nil
	}
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	removed := 0
	for id, r := range ns.records {
		if r.Metadata.SourceDocID != sourceDocID {
			continue
		}
		if _, ok := kept[id]; !ok {
			delete(ns.records, id)
			removed++
		}
	}
	return removed, nil
}

func copyExtra(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

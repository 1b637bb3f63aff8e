// Package chromem is an embedded vector store backed by chromem-go, either
// in memory or persisted to a directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"cv-rag/pkg/apperror"
	"cv-rag/pkg/store"
	"cv-rag/pkg/vectorindex"

	"github.com/philippgille/chromem-go"
)

// Collection metadata is not readable through the chromem API, so namespace
// specs live as documents of a dedicated registry collection.
const registryCollection = "_cv_rag_namespaces"

const (
	keySource   = "source_doc_id"
	keySequence = "sequence_index"
	keyStart    = "start_offset"
	keyEnd      = "end_offset"
	extraPrefix = "x."
)

type Store struct {
	// mu serializes namespace creation and deletion.
	mu       sync.Mutex
	db       *chromem.DB
	registry *chromem.Collection
}

// NewStore opens a persistent store at path, or an in-memory one when path
// is empty.
func NewStore(path string, compress bool) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}

	registry, err := db.GetOrCreateCollection(registryCollection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open namespace registry: %w", err)
	}
	return &Store{db: db, registry: registry}, nil
}

var _ vectorindex.Store = &Store{}

// Vectors always arrive precomputed.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem store requires precomputed embeddings")
}

func (s *Store) EnsureNamespace(ctx context.Context, spec vectorindex.NamespaceSpec) error {
	// chromem scores by cosine; records arrive unit-length, where cosine
	// and dot agree, so a dot namespace is served the same way.
	if spec.Metric != vectorindex.MetricCosine && spec.Metric != vectorindex.MetricDot {
		return apperror.Configuration("chromem", "namespace %q: unsupported metric %q", spec.Name, spec.Metric)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok, err := s.spec(ctx, spec.Name)
	if err != nil {
		return err
	}
	if ok {
		return spec.Conflict(existing)
	}

	if _, err := s.db.GetOrCreateCollection(spec.Name, nil, noEmbedding); err != nil {
		return fmt.Errorf("create collection %q: %w", spec.Name, err)
	}
	return s.registry.AddDocument(ctx, chromem.Document{
		ID:      spec.Name,
		Content: spec.Name,
		Metadata: map[string]string{
			"dimension": strconv.Itoa(spec.Dimension),
			"metric":    string(spec.Metric),
		},
		Embedding: []float32{1},
	})
}

func (s *Store) Upsert(ctx context.Context, namespace string, records []store.IndexRecord) error {
	col := s.db.GetCollection(namespace, noEmbedding)
	if col == nil {
		return fmt.Errorf("namespace %q does not exist", namespace)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Metadata.Text,
			Metadata:  toMetadata(r.Metadata),
			Embedding: vec,
		}
	}
	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int, filter vectorindex.Filter) ([]store.ScoredRecord, error) {
	col := s.db.GetCollection(namespace, noEmbedding)
	if col == nil || col.Count() == 0 {
		return []store.ScoredRecord{}, nil
	}

	// chromem rejects nResults above the collection size.
	if n := col.Count(); topK > n {
		topK = n
	}
	var where map[string]string
	if filter.SourceDocID != "" {
		where = map[string]string{keySource: filter.SourceDocID}
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, err
	}

	out := make([]store.ScoredRecord, len(results))
	for i, r := range results {
		md, err := fromMetadata(r.Metadata)
		if err != nil {
			return nil, apperror.IndexUnavailable("chromem.query", fmt.Errorf("record %q: %w", r.ID, err))
		}
		md.Text = r.Content
		out[i] = store.ScoredRecord{ID: r.ID, Score: float64(r.Similarity), Metadata: md}
	}
	return out, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(namespace, noEmbedding) != nil {
		if err := s.db.DeleteCollection(namespace); err != nil {
			return fmt.Errorf("delete collection %q: %w", namespace, err)
		}
	}
	if _, ok, err := s.spec(ctx, namespace); err != nil || !ok {
		return err
	}
	return s.registry.Delete(ctx, nil, nil, namespace)
}

func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	col := s.db.GetCollection(namespace, noEmbedding)
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}

// DeleteStale lists the document's records through a filtered query, since
// chromem has no scan API.
func (s *Store) DeleteStale(ctx context.Context, namespace, sourceDocID string, keep []string) (int, error) {
	col := s.db.GetCollection(namespace, noEmbedding)
	if col == nil || col.Count() == 0 {
		return 0, nil
	}
	spec, ok, err := s.spec(ctx, namespace)
	if err != nil || !ok {
		return 0, err
	}

	probe := make([]float32, spec.Dimension)
	probe[0] = 1
	results, err := col.QueryEmbedding(ctx, probe, col.Count(), map[string]string{keySource: sourceDocID}, nil)
	if err != nil {
		return 0, fmt.Errorf("list records of %q: %w", sourceDocID, err)
	}

	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	var stale []string
	for _, r := range results {
		if _, ok := kept[r.ID]; !ok {
			stale = append(stale, r.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := col.Delete(ctx, nil, nil, stale...); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *Store) spec(ctx context.Context, name string) (vectorindex.NamespaceSpec, bool, error) {
	doc, err := s.registry.GetByID(ctx, name)
	if err != nil {
		// GetByID reports a missing id as an error.
		if strings.Contains(err.Error(), "not found") {
			return vectorindex.NamespaceSpec{}, false, nil
		}
		return vectorindex.NamespaceSpec{}, false, err
	}
	dim, err := strconv.Atoi(doc.Metadata["dimension"])
	if err != nil {
		return vectorindex.NamespaceSpec{}, false, fmt.Errorf("namespace %q has a corrupt registry entry: %w", name, err)
	}
	return vectorindex.NamespaceSpec{Name: name, Dimension: dim, Metric: vectorindex.Metric(doc.Metadata["metric"])}, true, nil
}

func toMetadata(m store.RecordMetadata) map[string]string {
	out := map[string]string{
		keySource:   m.SourceDocID,
		keySequence: strconv.Itoa(m.SequenceIndex),
		keyStart:    strconv.Itoa(m.StartOffset),
		keyEnd:      strconv.Itoa(m.EndOffset),
	}
	for k, v := range m.Extra {
		out[extraPrefix+k] = v
	}
	return out
}

func fromMetadata(in map[string]string) (store.RecordMetadata, error) {
	md := store.RecordMetadata{SourceDocID: in[keySource]}
	for key, dst := range map[string]*int{
		keySequence: &md.SequenceIndex,
		keyStart:    &md.StartOffset,
		keyEnd:      &md.EndOffset,
	} {
		n, err := strconv.Atoi(in[key])
		if err != nil {
			return store.RecordMetadata{}, fmt.Errorf("malformed %s %q", key, in[key])
		}
		*dst = n
	}
	for k, v := range in {
		if strings.HasPrefix(k, extraPrefix) {
			if md.Extra == nil {
				md.Extra = make(map[string]string)
			}
			md.Extra[strings.TrimPrefix(k, extraPrefix)] = v
		}
	}
	return md, nil
}

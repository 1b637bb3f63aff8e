package service

import (
	"context"

	"cv-rag/internal/dto"
	"cv-rag/internal/pkg/logger"
	"cv-rag/pkg/events"
	"cv-rag/pkg/vectorindex"
)

// NamespaceAdmin exposes namespace maintenance on the index.
type NamespaceAdmin interface {
	Stats(ctx context.Context) (vectorindex.Stats, error)
	DeleteNamespace(ctx context.Context) error
}

type INamespaceService interface {
	Stats(ctx context.Context) (*dto.NamespaceStatsResponse, error)
	Reset(ctx context.Context) error
}

type namespaceService struct {
	index     NamespaceAdmin
	publisher events.Publisher
	logger    logger.ILogger
}

func NewNamespaceService(index NamespaceAdmin, publisher events.Publisher, log logger.ILogger) INamespaceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &namespaceService{index: index, publisher: publisher, logger: log}
}

func (s *namespaceService) Stats(ctx context.Context) (*dto.NamespaceStatsResponse, error) {
	st, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.NamespaceStatsResponse{
		Namespace: st.Namespace,
		Backend:   st.Backend,
		Records:   st.Records,
		Dimension: st.Dimension,
		Metric:    string(st.Metric),
		Cloud:     st.Cloud,
		Region:    st.Region,
	}, nil
}

// Reset deletes every record of the namespace.
func (s *namespaceService) Reset(ctx context.Context) error {
	st, err := s.index.Stats(ctx)
	if err != nil {
		return err
	}
	if err := s.index.DeleteNamespace(ctx); err != nil {
		return err
	}

	s.logger.Warn("NAMESPACE", "Namespace deleted", map[string]interface{}{
		"namespace": st.Namespace,
		"records":   st.Records,
	})

	if err := s.publisher.Publish(ctx, events.NamespaceDeleted(st.Namespace)); err != nil {
		s.logger.Warn("NAMESPACE", "Failed to publish namespace.deleted", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

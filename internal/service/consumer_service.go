package service

import (
	"context"
	"encoding/json"
	"sync"

	"cv-rag/internal/dto"
	"cv-rag/internal/entity"
	"cv-rag/internal/pkg/logger"
	"cv-rag/internal/repository/memory"
	"cv-rag/pkg/apperror"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "CONSUMER"

// DefaultMaxDeliveries bounds redelivery of a message whose ingestion keeps
// failing with a retryable error.
const DefaultMaxDeliveries = 3

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber    message.Subscriber
	topicName     string
	ingestion     IIngestionService
	jobRepo       *memory.IngestJobRepository
	logger        logger.ILogger
	maxDeliveries int

	mu         sync.Mutex
	deliveries map[string]int
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ingestion IIngestionService,
	jobRepo *memory.IngestJobRepository,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:    subscriber,
		topicName:     topicName,
		ingestion:     ingestion,
		jobRepo:       jobRepo,
		logger:        log,
		maxDeliveries: DefaultMaxDeliveries,
		deliveries:    make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID, "error": err.Error(),
		})
		// Ack invalid messages to prevent infinite redelivery.
		msg.Ack()
		return
	}

	attempt := cs.nextDelivery(msg.UUID)
	cs.jobRepo.Update(payload.JobId, func(j *entity.IngestJob) {
		j.Status = dto.JobStatusRunning
		j.Attempts = attempt
	})

	res, err := cs.ingestion.Ingest(ctx, &payload.Request)
	if err != nil {
		if apperror.IsRetryable(err) && attempt < cs.maxDeliveries && ctx.Err() == nil {
			cs.logger.Warn(consumerModule, "Ingestion failed, redelivering", map[string]interface{}{
				"job_id": payload.JobId, "attempt": attempt, "error": err.Error(),
			})
			msg.Nack()
			return
		}

		cs.logger.Error(consumerModule, "Ingestion failed", map[string]interface{}{
			"job_id": payload.JobId, "attempt": attempt, "error": err.Error(),
		})
		cs.jobRepo.Update(payload.JobId, func(j *entity.IngestJob) {
			j.Status = dto.JobStatusFailed
			j.ErrorKind = string(apperror.KindOf(err))
			j.ErrorMessage = apperror.UserMessage(err)
		})
		cs.forget(msg.UUID)
		msg.Ack()
		return
	}

	cs.jobRepo.Update(payload.JobId, func(j *entity.IngestJob) {
		j.Status = dto.JobStatusSucceeded
		j.RunId = res.RunId
		j.DocumentId = res.DocumentId
		j.Chunks = res.Chunks
		j.Pruned = res.Pruned
		j.DurationMs = res.DurationMs
	})
	cs.forget(msg.UUID)
	msg.Ack()
}

func (cs *consumerService) nextDelivery(id string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.deliveries[id]++
	return cs.deliveries[id]
}

func (cs *consumerService) forget(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.deliveries, id)
}

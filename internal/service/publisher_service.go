package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cv-rag/internal/dto"
	"cv-rag/internal/entity"
	"cv-rag/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	// EnqueueIngest queues request for the consumer and returns the job.
	EnqueueIngest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestJobResponse, error)
	GetJob(ctx context.Context, jobID string) (*dto.IngestJobResponse, bool)
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	jobRepo   *memory.IngestJobRepository
}

func NewPublisherService(topicName string, publisher message.Publisher, jobRepo *memory.IngestJobRepository) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		jobRepo:   jobRepo,
	}
}

func (ps *publisherService) EnqueueIngest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestJobResponse, error) {
	now := time.Now().UTC()
	job := &entity.IngestJob{
		Id:         watermill.NewUUID(),
		Status:     dto.JobStatusQueued,
		Source:     request.Source,
		DocumentId: request.DocumentId,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ps.jobRepo.Save(job)

	payload, err := json.Marshal(dto.PublishIngestDocumentMessage{JobId: job.Id, Request: *request})
	if err != nil {
		return nil, fmt.Errorf("marshal ingest message: %w", err)
	}

	msg := message.NewMessage(job.Id, payload)
	msg.SetContext(ctx)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.jobRepo.Update(job.Id, func(j *entity.IngestJob) {
			j.Status = dto.JobStatusFailed
			j.ErrorKind = "INTERNAL"
			j.ErrorMessage = "failed to queue ingestion"
		})
		return nil, fmt.Errorf("publish to %s: %w", ps.topicName, err)
	}

	return jobResponse(job), nil
}

func (ps *publisherService) GetJob(_ context.Context, jobID string) (*dto.IngestJobResponse, bool) {
	job, ok := ps.jobRepo.Get(jobID)
	if !ok {
		return nil, false
	}
	return jobResponse(job), true
}

func jobResponse(job *entity.IngestJob) *dto.IngestJobResponse {
	res := &dto.IngestJobResponse{
		JobId:     job.Id,
		Status:    job.Status,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == dto.JobStatusSucceeded {
		res.Result = &dto.IngestDocumentResponse{
			RunId:      job.RunId,
			DocumentId: job.DocumentId,
			Chunks:     job.Chunks,
			Pruned:     job.Pruned,
			DurationMs: job.DurationMs,
		}
	}
	if job.Status == dto.JobStatusFailed {
		res.Error = &dto.ErrorBody{Kind: job.ErrorKind, Message: job.ErrorMessage}
	}
	return res
}

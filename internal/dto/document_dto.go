package dto

import "time"

// IngestDocumentRequest carries either inline text or a source to load
// (local path or s3://bucket/key).
type IngestDocumentRequest struct {
	DocumentId string `json:"documentId,omitempty" validate:"omitempty,max=128"`
	Text       string `json:"text,omitempty" validate:"required_without=Source"`
	Source     string `json:"source,omitempty" validate:"required_without=Text"`
}

type IngestDocumentResponse struct {
	RunId      string `json:"runId"`
	DocumentId string `json:"documentId"`
	Namespace  string `json:"namespace"`
	Strategy   string `json:"strategy"`
	Chunks     int    `json:"chunks"`
	Pruned     int    `json:"pruned"`
	DurationMs int64  `json:"durationMs"`
}

// PublishIngestDocumentMessage is the queued form of an async ingestion.
type PublishIngestDocumentMessage struct {
	JobId   string                `json:"jobId"`
	Request IngestDocumentRequest `json:"request"`
}

const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
)

type IngestJobResponse struct {
	JobId     string                  `json:"jobId"`
	Status    string                  `json:"status"`
	Result    *IngestDocumentResponse `json:"result,omitempty"`
	Error     *ErrorBody              `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

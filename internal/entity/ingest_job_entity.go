package entity

import "time"

// IngestJob tracks an ingestion queued for the background consumer.
type IngestJob struct {
	Id           string
	Status       string
	Source       string
	DocumentId   string
	RunId        string
	Chunks       int
	Pruned       int
	DurationMs   int64
	ErrorKind    string
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

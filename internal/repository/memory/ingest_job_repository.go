package memory

import (
	"time"

	"cv-rag/internal/entity"

	"github.com/patrickmn/go-cache"
)

// IngestJobRepository keeps async ingestion status for a day.
type IngestJobRepository struct {
	cache *cache.Cache
}

func NewIngestJobRepository() *IngestJobRepository {
	return &IngestJobRepository{
		cache: cache.New(24*time.Hour, 30*time.Minute),
	}
}

func (r *IngestJobRepository) Save(job *entity.IngestJob) {
	cp := *job
	r.cache.Set(job.Id, &cp, cache.DefaultExpiration)
}

func (r *IngestJobRepository) Get(jobID string) (*entity.IngestJob, bool) {
	if x, found := r.cache.Get(jobID); found {
		cp := *x.(*entity.IngestJob)
		return &cp, true
	}
	return nil, false
}

// Update applies fn to a stored job. It reports false for unknown ids.
func (r *IngestJobRepository) Update(jobID string, fn func(job *entity.IngestJob)) bool {
	job, ok := r.Get(jobID)
	if !ok {
		return false
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	r.Save(job)
	return true
}

// Package jobs manages asynchronous pipeline runs: submission, queuing,
// worker execution, status tracking, and cancellation.
package jobs

import (
	"errors"
	"sync"

	"github.com/lensflow/lensflow/pkg/models"
)

// ErrJobNotFound indicates a job id that was never submitted.
var ErrJobNotFound = errors.New("job not found")

// errSkipTransition aborts an Update without treating it as a failure.
var errSkipTransition = errors.New("job transition skipped")

// JobStore is the in-memory record of every submitted job. Reads return
// clones; mutations run under the store lock so status transitions are
// atomic with respect to concurrent cancels.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.Job)}
}

func (s *JobStore) Put(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	return job.Clone(), nil
}

// Update applies fn to the stored job under the write lock. fn may return
// errSkipTransition to leave the job untouched.
func (s *JobStore) Update(id string, fn func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	return fn(job)
}

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, id)
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
)

const (
	cancelPhaseQueued  = "queued"
	cancelPhaseRunning = "running"

	failureKindInternal = "internal"
)

// PipelineSource resolves registered pipeline definitions.
type PipelineSource interface {
	Get(id string) (*models.PipelineDefinition, error)
}

// Runner executes a validated pipeline and returns its final result.
type Runner interface {
	Execute(ctx context.Context, runID string, def *models.PipelineDefinition, initialPayload map[string]any) (map[string]any, error)
}

// Emitter receives job lifecycle events. Fire-and-forget.
type Emitter interface {
	Emit(key string, event eventbus.Event)
}

// Manager owns the job lifecycle: Submit creates a queued job, a worker pool
// drains the queue and executes runs, Status reads job records, and Cancel
// stops queued or running jobs. Cancelling a running job interrupts it at
// the next node boundary; the in-flight tool call always completes.
type Manager struct {
	logger    *slog.Logger
	pipelines PipelineSource
	runner    Runner
	queue     Queue
	emitter   Emitter
	store     *JobStore

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

func NewManager(logger *slog.Logger, pipelines PipelineSource, runner Runner, queue Queue, emitter Emitter) *Manager {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Manager{
		logger:     logger.With("module", "jobs"),
		pipelines:  pipelines,
		runner:     runner,
		queue:      queue,
		emitter:    emitter,
		store:      NewJobStore(),
		cancels:    make(map[string]context.CancelFunc),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Submit creates a job for the given pipeline and queues it. The pipeline
// must be registered: an unknown id is rejected without creating a job.
func (m *Manager) Submit(ctx context.Context, pipelineID string, payload map[string]any) (*models.Job, error) {
	def, err := m.pipelines.Get(pipelineID)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:         uuid.New().String(),
		PipelineID: def.ID,
		Status:     models.JobStatusQueued,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}

	m.store.Put(job)

	// Snapshot before the id reaches the queue: once enqueued, a worker may
	// claim the job and mutate it under the store lock at any moment.
	snapshot := job.Clone()

	err = m.queue.Enqueue(ctx, job.ID)
	if err != nil {
		m.store.Delete(job.ID)

		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	event := events.JobEnqueued{
		BaseEvent: events.NewBaseEvent(events.JobEnqueuedEvent, def.ID),
		JobID:     job.ID,
	}
	m.emit(def.ID, event)

	m.logger.InfoContext(ctx, "Job submitted", "job_id", snapshot.ID, "pipeline_id", def.ID)

	return snapshot, nil
}

// Status returns the current job record. Unknown ids yield a synthetic
// record with status not_found rather than an error, so pollers see a
// stable shape.
func (m *Manager) Status(jobID string) *models.Job {
	job, err := m.store.Get(jobID)
	if err != nil {
		return &models.Job{ID: jobID, Status: models.JobStatusNotFound}
	}

	return job
}

// Cancel requests cancellation of a job. A queued job is cancelled
// immediately and will be skipped by workers; a running job is interrupted
// at its next node boundary. Cancel of a terminal job is a no-op returning
// the current record.
func (m *Manager) Cancel(jobID string) (*models.Job, error) {
	var (
		phase      string
		pipelineID string
	)

	err := m.store.Update(jobID, func(job *models.Job) error {
		pipelineID = job.PipelineID

		switch job.Status {
		case models.JobStatusQueued:
			now := time.Now().UTC()
			job.Status = models.JobStatusCancelled
			job.CompletedAt = &now
			phase = cancelPhaseQueued

		case models.JobStatusRunning:
			phase = cancelPhaseRunning

		default:
			// Terminal already; nothing to do.
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	switch phase {
	case cancelPhaseQueued:
		m.emit(pipelineID, events.JobCancelled{
			BaseEvent: events.NewBaseEvent(events.JobCancelledEvent, pipelineID),
			JobID:     jobID,
			Phase:     cancelPhaseQueued,
		})
		m.logger.Info("Cancelled queued job", "job_id", jobID)

	case cancelPhaseRunning:
		m.mu.Lock()
		cancel, ok := m.cancels[jobID]
		m.mu.Unlock()

		if ok {
			cancel()
		}

		m.logger.Info("Cancellation requested for running job", "job_id", jobID)
	}

	return m.store.Get(jobID)
}

// Start launches the worker pool. Each worker drains the queue until Stop.
func (m *Manager) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)

		m.wg.Add(1)

		go m.work(workerID)
	}

	m.logger.Info("Job workers started", "workers", workers)
}

// Stop shuts the pool down: the queue stops handing out jobs, in-flight runs
// are allowed to finish until ctx expires, then cancelled.
func (m *Manager) Stop(ctx context.Context) error {
	err := m.queue.Close()
	if err != nil {
		m.logger.Error("Failed to close job queue", "error", err)
	}

	done := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.baseCancel()
		<-done
	}

	m.baseCancel()

	return nil
}

func (m *Manager) work(workerID string) {
	defer m.wg.Done()

	logger := m.logger.With("worker_id", workerID)

	for {
		jobID, err := m.queue.Dequeue(m.baseCtx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || errors.Is(err, context.Canceled) {
				logger.Info("Worker stopped")

				return
			}

			logger.Error("Failed to dequeue job", "error", err)
			time.Sleep(1 * time.Second)

			continue
		}

		m.runJob(logger, workerID, jobID)
	}
}

func (m *Manager) runJob(logger *slog.Logger, workerID, jobID string) {
	ctx, cancel := context.WithCancel(m.baseCtx)
	defer cancel()

	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.cancels, jobID)
		m.mu.Unlock()
	}()

	var (
		pipelineID string
		payload    map[string]any
	)

	err := m.store.Update(jobID, func(job *models.Job) error {
		if job.Status != models.JobStatusQueued {
			return errSkipTransition
		}

		now := time.Now().UTC()
		job.Status = models.JobStatusRunning
		job.StartedAt = &now
		pipelineID = job.PipelineID
		payload = job.Payload

		return nil
	})
	if err != nil {
		if errors.Is(err, errSkipTransition) {
			logger.Info("Skipping job no longer queued", "job_id", jobID)
		} else {
			logger.Error("Failed to claim job", "job_id", jobID, "error", err)
		}

		return
	}

	logger.Info("Job started", "job_id", jobID, "pipeline_id", pipelineID)

	startedAt := time.Now()

	def, err := m.pipelines.Get(pipelineID)
	if err != nil {
		m.finishError(workerID, jobID, pipelineID, startedAt, &models.JobFailure{
			Kind:    failureKindInternal,
			Message: err.Error(),
		})

		return
	}

	result, err := m.runner.Execute(ctx, jobID, def, payload)

	switch {
	case err == nil:
		m.finishDone(workerID, jobID, pipelineID, startedAt, result)
		logger.Info("Job finished", "job_id", jobID, "duration_ms", time.Since(startedAt).Milliseconds())

	case errors.Is(err, context.Canceled):
		m.finishCancelled(workerID, jobID, pipelineID)
		logger.Info("Job cancelled", "job_id", jobID)

	default:
		failure := &models.JobFailure{Kind: failureKindInternal, Message: err.Error()}

		var execErr *pipeline.ExecutionError
		if errors.As(err, &execErr) {
			failure = &models.JobFailure{
				Kind:    pipeline.ErrKindToolInvocation,
				Message: execErr.Err.Error(),
				NodeID:  execErr.NodeID,
			}
		}

		m.finishError(workerID, jobID, pipelineID, startedAt, failure)
		logger.Error("Job failed", "job_id", jobID, "error", err)
	}
}

func (m *Manager) finishDone(workerID, jobID, pipelineID string, startedAt time.Time, result map[string]any) {
	_ = m.store.Update(jobID, func(job *models.Job) error {
		now := time.Now().UTC()
		job.Status = models.JobStatusDone
		job.Result = result
		job.CompletedAt = &now

		return nil
	})

	event := events.JobFinished{
		BaseEvent:  events.NewBaseEvent(events.JobFinishedEvent, pipelineID),
		JobID:      jobID,
		Status:     string(models.JobStatusDone),
		DurationMs: time.Since(startedAt).Milliseconds(),
		Result:     result,
	}
	event.WorkerID = workerID
	m.emit(pipelineID, event)
}

func (m *Manager) finishError(workerID, jobID, pipelineID string, startedAt time.Time, failure *models.JobFailure) {
	_ = m.store.Update(jobID, func(job *models.Job) error {
		now := time.Now().UTC()
		job.Status = models.JobStatusError
		job.Error = failure
		job.CompletedAt = &now

		return nil
	})

	event := events.JobFinished{
		BaseEvent:  events.NewBaseEvent(events.JobFinishedEvent, pipelineID),
		JobID:      jobID,
		Status:     string(models.JobStatusError),
		DurationMs: time.Since(startedAt).Milliseconds(),
		Error: &events.RunError{
			Kind:    failure.Kind,
			NodeID:  failure.NodeID,
			Message: failure.Message,
		},
	}
	event.WorkerID = workerID
	m.emit(pipelineID, event)
}

func (m *Manager) finishCancelled(workerID, jobID, pipelineID string) {
	_ = m.store.Update(jobID, func(job *models.Job) error {
		now := time.Now().UTC()
		job.Status = models.JobStatusCancelled
		job.CompletedAt = &now

		return nil
	})

	event := events.JobCancelled{
		BaseEvent: events.NewBaseEvent(events.JobCancelledEvent, pipelineID),
		JobID:     jobID,
		Phase:     cancelPhaseRunning,
	}
	event.WorkerID = workerID
	m.emit(pipelineID, event)
}

func (m *Manager) emit(key string, event eventbus.Event) {
	if m.emitter == nil {
		return
	}

	m.emitter.Emit(key, event)
}

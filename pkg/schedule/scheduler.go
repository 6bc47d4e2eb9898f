// Package schedule submits pipeline runs on cron schedules.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/robfig/cron/v3"
)

// Entry binds a cron expression to a pipeline submission.
type Entry struct {
	ID         string         `json:"id"`
	Cron       string         `json:"cron"`
	PipelineID string         `json:"pipeline_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	Enabled    bool           `json:"enabled"`
}

func (e *Entry) Validate() error {
	if e.ID == "" {
		return errors.New("schedule entry id is required")
	}

	if e.PipelineID == "" {
		return errors.New("schedule entry pipeline_id is required")
	}

	if e.Cron == "" {
		return errors.New("schedule entry cron expression is required")
	}

	if _, err := cron.ParseStandard(e.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Submitter hands scheduled runs to the job manager.
type Submitter interface {
	Submit(ctx context.Context, pipelineID string, payload map[string]any) (*models.Job, error)
}

type Scheduler struct {
	logger    *slog.Logger
	submitter Submitter
	cron      *cron.Cron
}

func NewScheduler(logger *slog.Logger, submitter Submitter) *Scheduler {
	return &Scheduler{
		logger:    logger.With("module", "scheduler"),
		submitter: submitter,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
	}
}

// Add registers an entry. Disabled entries are validated but not scheduled.
func (s *Scheduler) Add(entry Entry) error {
	err := entry.Validate()
	if err != nil {
		return err
	}

	if !entry.Enabled {
		s.logger.Info("Schedule entry disabled, skipping", "entry_id", entry.ID)

		return nil
	}

	_, err = s.cron.AddFunc(entry.Cron, func() {
		s.submit(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for entry %s: %w", entry.ID, err)
	}

	s.logger.Info("Schedule entry added",
		"entry_id", entry.ID,
		"cron", entry.Cron,
		"pipeline_id", entry.PipelineID,
	)

	return nil
}

func (s *Scheduler) submit(entry Entry) {
	job, err := s.submitter.Submit(context.Background(), entry.PipelineID, entry.Payload)
	if err != nil {
		s.logger.Error("Scheduled submission failed",
			"entry_id", entry.ID,
			"pipeline_id", entry.PipelineID,
			"error", err,
		)

		return
	}

	s.logger.Info("Scheduled job submitted",
		"entry_id", entry.ID,
		"pipeline_id", entry.PipelineID,
		"job_id", job.ID,
	)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight submissions.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// LoadEntries reads schedule entries from a JSON file. A missing file means
// no schedules.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read schedules file %s: %w", path, err)
	}

	var entries []Entry

	err = json.Unmarshal(data, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedules file %s: %w", path, err)
	}

	return entries, nil
}

// Package events defines event types and structures for pipeline and job
// lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event emitted by the engine.
const Topic = "lensflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Pipeline run lifecycle events.
	PipelineRunStartedEvent  EventType = "pipeline.run.started"
	PipelineRunFinishedEvent EventType = "pipeline.run.finished"
	PipelineRunFailedEvent   EventType = "pipeline.run.failed"

	// Per-node execution events.
	NodeExecutionStartedEvent  EventType = "node.execution.started"
	NodeExecutionFinishedEvent EventType = "node.execution.finished"
	NodeExecutionFailedEvent   EventType = "node.execution.failed"

	// Job lifecycle events.
	JobEnqueuedEvent  EventType = "job.enqueued"
	JobFinishedEvent  EventType = "job.finished"
	JobCancelledEvent EventType = "job.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	PipelineID string         `json:"pipeline_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, pipelineID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		PipelineID: pipelineID,
		Metadata:   make(map[string]any),
	}
}

// RunError describes a tool invocation failure inside a run.
type RunError struct {
	Kind     string `json:"kind"`
	NodeID   string `json:"node_id"`
	PluginID string `json:"plugin_id"`
	ToolID   string `json:"tool_id"`
	Message  string `json:"message"`
}

// Pipeline run lifecycle events

type PipelineRunStarted struct {
	BaseEvent

	JobID        string         `json:"job_id"`
	PipelineName string         `json:"pipeline_name"`
	NodeCount    int            `json:"node_count"`
	Payload      map[string]any `json:"payload,omitempty"`
}

func (e PipelineRunStarted) GetType() EventType {
	return PipelineRunStartedEvent
}

type PipelineRunFinished struct {
	BaseEvent

	JobID         string         `json:"job_id"`
	DurationMs    int64          `json:"duration_ms"`
	NodesExecuted int            `json:"nodes_executed"`
	Result        map[string]any `json:"result,omitempty"`
}

func (e PipelineRunFinished) GetType() EventType {
	return PipelineRunFinishedEvent
}

type PipelineRunFailed struct {
	BaseEvent

	JobID         string   `json:"job_id"`
	DurationMs    int64    `json:"duration_ms"`
	NodesExecuted int      `json:"nodes_executed"`
	Error         RunError `json:"error"`
}

func (e PipelineRunFailed) GetType() EventType {
	return PipelineRunFailedEvent
}

// Per-node execution events

type NodeExecutionStarted struct {
	BaseEvent

	JobID     string `json:"job_id"`
	NodeID    string `json:"node_id"`
	PluginID  string `json:"plugin_id"`
	ToolID    string `json:"tool_id"`
	StepIndex int    `json:"step_index"`
}

func (e NodeExecutionStarted) GetType() EventType {
	return NodeExecutionStartedEvent
}

type NodeExecutionFinished struct {
	BaseEvent

	JobID      string         `json:"job_id"`
	NodeID     string         `json:"node_id"`
	PluginID   string         `json:"plugin_id"`
	ToolID     string         `json:"tool_id"`
	StepIndex  int            `json:"step_index"`
	DurationMs int64          `json:"duration_ms"`
	OutputData map[string]any `json:"output_data,omitempty"`
}

func (e NodeExecutionFinished) GetType() EventType {
	return NodeExecutionFinishedEvent
}

type NodeExecutionFailed struct {
	BaseEvent

	JobID      string `json:"job_id"`
	NodeID     string `json:"node_id"`
	PluginID   string `json:"plugin_id"`
	ToolID     string `json:"tool_id"`
	StepIndex  int    `json:"step_index"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error"`
}

func (e NodeExecutionFailed) GetType() EventType {
	return NodeExecutionFailedEvent
}

// Job lifecycle events

type JobEnqueued struct {
	BaseEvent

	JobID string `json:"job_id"`
}

func (e JobEnqueued) GetType() EventType {
	return JobEnqueuedEvent
}

// JobFinished reports a job reaching a terminal state, Done or Error. The
// push gateway relays these to subscribed clients.
type JobFinished struct {
	BaseEvent

	JobID      string         `json:"job_id"`
	Status     string         `json:"status"`
	DurationMs int64          `json:"duration_ms"`
	Result     map[string]any `json:"result,omitempty"`
	Error      *RunError      `json:"error,omitempty"`
}

func (e JobFinished) GetType() EventType {
	return JobFinishedEvent
}

type JobCancelled struct {
	BaseEvent

	JobID string `json:"job_id"`
	// Phase records whether the job was still queued or already running when
	// the cancel landed.
	Phase string `json:"phase"`
}

func (e JobCancelled) GetType() EventType {
	return JobCancelledEvent
}

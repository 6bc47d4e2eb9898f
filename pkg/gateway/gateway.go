// Package gateway provides the WebSocket push channel. Clients send frame
// requests; frames carrying a pipeline_id are routed to the DAG engine as
// jobs with status pushed back on completion, frames without one take the
// legacy single-tool invoke path.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/jobs"
)

const frameType = "frame"

// FrameRequest is one client message. The pipeline_id discriminator selects
// the execution path: present means DAG run, absent means direct tool call.
type FrameRequest struct {
	Type       string         `json:"type"`
	PluginID   string         `json:"plugin_id"`
	ToolID     string         `json:"tool_id"`
	PipelineID *string        `json:"pipeline_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

// FrameResponse is one server message.
type FrameResponse struct {
	Type   string         `json:"type"`
	JobID  string         `json:"job_id,omitempty"`
	Status string         `json:"status,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

// client serializes writes: job updates arrive from bus handler goroutines
// while the read loop may be replying to a frame.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(v)
}

type Gateway struct {
	logger  *slog.Logger
	catalog catalog.Catalog
	manager *jobs.Manager

	mu       sync.Mutex
	watchers map[string]*client
}

func NewGateway(logger *slog.Logger, cat catalog.Catalog, manager *jobs.Manager) *Gateway {
	return &Gateway{
		logger:   logger.With("module", "gateway"),
		catalog:  cat,
		manager:  manager,
		watchers: make(map[string]*client),
	}
}

// RegisterHandlers wires job terminal events from the bus into connected
// clients.
func (g *Gateway) RegisterHandlers(sub eventbus.EventSubscriber) error {
	err := sub.Handle(events.JobFinishedEvent, g.onJobFinished)
	if err != nil {
		return err
	}

	return sub.Handle(events.JobCancelledEvent, g.onJobCancelled)
}

// Handler upgrades the connection and serves frames until the client
// disconnects.
func (g *Gateway) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("Failed to upgrade websocket", "error", err)

		return
	}

	cl := &client{conn: conn}

	g.logger.Info("Gateway client connected", "remote", conn.RemoteAddr().String())

	defer func() {
		g.dropClient(cl)
		_ = conn.Close()
		g.logger.Info("Gateway client disconnected", "remote", conn.RemoteAddr().String())
	}()

	for {
		var req FrameRequest

		err := conn.ReadJSON(&req)
		if err != nil {
			return
		}

		g.handleFrame(r.Context(), cl, &req)
	}
}

func (g *Gateway) handleFrame(ctx context.Context, cl *client, req *FrameRequest) {
	if req.Type != frameType {
		_ = cl.send(FrameResponse{Type: "error", Error: "unsupported message type: " + req.Type})

		return
	}

	if req.PipelineID != nil {
		g.submitPipeline(ctx, cl, req)

		return
	}

	g.invokeTool(ctx, cl, req)
}

// submitPipeline hands the frame payload to the job manager and watches the
// job for this client.
func (g *Gateway) submitPipeline(ctx context.Context, cl *client, req *FrameRequest) {
	job, err := g.manager.Submit(ctx, *req.PipelineID, req.Payload)
	if err != nil {
		g.logger.Warn("Gateway job submission failed", "pipeline_id", *req.PipelineID, "error", err)
		_ = cl.send(FrameResponse{Type: "error", Error: err.Error()})

		return
	}

	g.mu.Lock()
	g.watchers[job.ID] = cl
	g.mu.Unlock()

	_ = cl.send(FrameResponse{
		Type:   "job_accepted",
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// invokeTool is the legacy path: one synchronous tool call, result sent back
// on the same connection.
func (g *Gateway) invokeTool(ctx context.Context, cl *client, req *FrameRequest) {
	output, err := g.catalog.Invoke(ctx, req.PluginID, req.ToolID, req.Payload)
	if err != nil {
		g.logger.Warn("Gateway tool invocation failed",
			"plugin_id", req.PluginID,
			"tool_id", req.ToolID,
			"error", err,
		)
		_ = cl.send(FrameResponse{Type: "error", Error: err.Error()})

		return
	}

	_ = cl.send(FrameResponse{Type: "tool_result", Result: output})
}

func (g *Gateway) onJobFinished(_ context.Context, event interface{}) error {
	finished, ok := event.(*events.JobFinished)
	if !ok {
		return nil
	}

	update := FrameResponse{
		Type:   "job_update",
		JobID:  finished.JobID,
		Status: finished.Status,
		Result: finished.Result,
	}
	if finished.Error != nil {
		update.Error = finished.Error.Message
	}

	g.push(finished.JobID, update)

	return nil
}

func (g *Gateway) onJobCancelled(_ context.Context, event interface{}) error {
	cancelled, ok := event.(*events.JobCancelled)
	if !ok {
		return nil
	}

	g.push(cancelled.JobID, FrameResponse{
		Type:   "job_update",
		JobID:  cancelled.JobID,
		Status: "cancelled",
	})

	return nil
}

// push delivers a terminal update to the watching client, if any, and drops
// the watch.
func (g *Gateway) push(jobID string, update FrameResponse) {
	g.mu.Lock()
	cl, ok := g.watchers[jobID]
	delete(g.watchers, jobID)
	g.mu.Unlock()

	if !ok {
		return
	}

	err := cl.send(update)
	if err != nil {
		g.logger.Warn("Failed to push job update", "job_id", jobID, "error", err)
	}
}

func (g *Gateway) dropClient(cl *client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for jobID, watcher := range g.watchers {
		if watcher == cl {
			delete(g.watchers, jobID)
		}
	}
}

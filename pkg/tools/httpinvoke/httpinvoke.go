// Package httpinvoke provides the tool implementation behind manifest
// declared plugins: each invocation POSTs the input payload to the plugin's
// HTTP endpoint and returns the decoded JSON response as the output payload.
package httpinvoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/protocol"
)

const defaultTimeoutSeconds = 30

// ToolFactory builds HTTP-delegating tools for one declared capability. The
// capability comes from the plugin manifest, not from the factory itself.
type ToolFactory struct {
	capability models.ToolCapability
}

func NewToolFactory(capability models.ToolCapability) *ToolFactory {
	return &ToolFactory{capability: capability}
}

func (f *ToolFactory) Create(config map[string]any) (protocol.Tool, error) {
	endpoint, _ := config["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("missing or invalid 'endpoint' in configuration")
	}

	timeout := defaultTimeoutSeconds * time.Second

	if raw, ok := config["timeout_seconds"].(float64); ok && raw > 0 {
		timeout = time.Duration(raw) * time.Second
	}

	return &Tool{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (f *ToolFactory) Capability() models.ToolCapability {
	return f.capability
}

func (f *ToolFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "HTTP endpoint the payload is POSTed to",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     defaultTimeoutSeconds,
			},
		},
		"required": []string{"endpoint"},
	}
}

type Tool struct {
	endpoint string
	client   *http.Client
}

func (t *Tool) Invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", t.endpoint, err)
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint %s returned status %d: %s", t.endpoint, resp.StatusCode, string(raw))
	}

	var output map[string]any

	err = json.Unmarshal(raw, &output)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s returned invalid JSON: %w", t.endpoint, err)
	}

	return output, nil
}

// Package protocol defines the contracts between the engine and node executors.
package protocol

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/storage"
)

// NodeOutput is what a node produced during a run.
type NodeOutput struct {
	NodeID string          `json:"node_id"`
	Kind   models.NodeKind `json:"kind"`
	Label  string          `json:"label"`
	Fields []models.Field  `json:"fields,omitempty"`
	Data   map[string]any  `json:"data,omitempty"`
}

// ExecutionRequest is handed to an executor for one node of one run.
type ExecutionRequest struct {
	RunID      string
	PipelineID string
	Node       models.Node

	// Upstream holds the outputs of the nodes that already ran, in run order.
	Upstream []NodeOutput
}

// NodeExecutor performs the work of a node. A returned error marks the node
// failed and its Error() text becomes the node error message.
type NodeExecutor interface {
	Execute(ctx context.Context, req ExecutionRequest) (NodeOutput, error)
}

// NodeFactory creates executors and describes a node kind.
type NodeFactory interface {
	// Create returns the executor for a node snapshot.
	Create(ctx context.Context, node models.Node) (NodeExecutor, error)

	// Kind returns the node kind this factory serves.
	Kind() models.NodeKind

	// Name returns the human-readable name.
	Name() string

	Description() string

	// Schema returns the JSON schema of a configuration update for the kind.
	Schema() map[string]any
}

// Simulator stands in for work the service does not perform for real.
type Simulator interface {
	Simulate(ctx context.Context) error
}

// Dependencies are shared by every node factory.
type Dependencies struct {
	Logger     *slog.Logger
	Invoker    extraction.Invoker
	Files      storage.Store
	Simulator  Simulator
	HTTPClient *http.Client

	// PostAllowedHosts lists the hosts https_post nodes may deliver to.
	// Empty refuses every delivery.
	PostAllowedHosts []string
}

// ConfigurationError means the node cannot run until the user completes its
// configuration. The backend is never called in that case.
type ConfigurationError struct {
	NodeID  string
	Missing []string
}

func (e *ConfigurationError) Error() string {
	project, file := false, false

	for _, m := range e.Missing {
		switch m {
		case "project":
			project = true
		case "file":
			file = true
		}
	}

	switch {
	case project && file:
		return "Select an extraction project and upload a document before running this node."
	case project:
		return "Select an extraction project before running this node."
	case file:
		return "Upload a document before running this node."
	default:
		return "Node configuration is incomplete: " + strings.Join(e.Missing, ", ")
	}
}

// CommonSchemaProperties are the configuration fields every kind accepts.
func CommonSchemaProperties() map[string]any {
	return map[string]any{
		"label": map[string]any{
			"type":        "string",
			"description": "Display label of the node",
			"minLength":   1,
		},
		"description": map[string]any{
			"type":        "string",
			"description": "Free text notes about the node",
		},
	}
}

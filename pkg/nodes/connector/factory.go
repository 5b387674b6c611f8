package connector

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

// ConnectorNodeFactory creates ConnectorNode instances for one mailbox kind.
type ConnectorNodeFactory struct {
	kind      models.NodeKind
	simulator protocol.Simulator
	logger    *slog.Logger
}

func NewConnectorNodeFactory(kind models.NodeKind, deps protocol.Dependencies) protocol.NodeFactory {
	return &ConnectorNodeFactory{
		kind:      kind,
		simulator: deps.Simulator,
		logger:    deps.Logger.With("node_kind", string(kind)),
	}
}

func (f *ConnectorNodeFactory) Create(_ context.Context, node models.Node) (protocol.NodeExecutor, error) {
	if node.Kind != f.kind {
		return nil, fmt.Errorf("connector factory for %s cannot run %s nodes", f.kind, node.Kind)
	}

	return NewConnectorNode(node, f.simulator, f.logger), nil
}

func (f *ConnectorNodeFactory) Kind() models.NodeKind {
	return f.kind
}

func (f *ConnectorNodeFactory) Name() string {
	return f.kind.Label()
}

func (f *ConnectorNodeFactory) Description() string {
	return fmt.Sprintf("Collects incoming documents from a %s mailbox", f.kind.Label())
}

func (f *ConnectorNodeFactory) Schema() map[string]any {
	properties := protocol.CommonSchemaProperties()
	maps.Copy(properties, map[string]any{
		"credentials": map[string]any{
			"type":        "object",
			"description": "Mailbox login",
			"properties": map[string]any{
				"username": map[string]any{"type": "string", "minLength": 1},
				"password": map[string]any{"type": "string"},
			},
			"required":             []string{"username"},
			"additionalProperties": false,
		},
	})

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

// Package connector implements the mailbox connector nodes (Gmail, Outlook).
package connector

import (
	"context"
	"log/slog"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

// ConnectorNode pulls documents from a mailbox. The mailbox access itself is simulated.
type ConnectorNode struct {
	node      models.Node
	simulator protocol.Simulator
	logger    *slog.Logger
}

func NewConnectorNode(node models.Node, simulator protocol.Simulator, logger *slog.Logger) *ConnectorNode {
	return &ConnectorNode{
		node:      node,
		simulator: simulator,
		logger:    logger,
	}
}

func (n *ConnectorNode) Execute(ctx context.Context, req protocol.ExecutionRequest) (protocol.NodeOutput, error) {
	mailbox := ""
	if settings := n.node.Config.Connector(); settings != nil && settings.Credentials != nil {
		mailbox = settings.Credentials.Username
	}

	n.logger.DebugContext(ctx, "Polling mailbox", "run_id", req.RunID, "node_id", n.node.ID, "mailbox", mailbox)

	if err := n.simulator.Simulate(ctx); err != nil {
		return protocol.NodeOutput{}, err
	}

	return protocol.NodeOutput{
		NodeID: n.node.ID,
		Kind:   n.node.Kind,
		Label:  n.node.Config.Label,
		Data: map[string]any{
			"provider": string(n.node.Kind),
			"mailbox":  mailbox,
		},
	}, nil
}

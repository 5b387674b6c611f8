// Package review implements the human review step (Document Compare).
package review

import (
	"context"
	"log/slog"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

// DocumentCompareNode queues the extracted fields of earlier nodes for review
// in the comparison view.
type DocumentCompareNode struct {
	node      models.Node
	simulator protocol.Simulator
	logger    *slog.Logger
}

func NewDocumentCompareNode(node models.Node, simulator protocol.Simulator, logger *slog.Logger) *DocumentCompareNode {
	return &DocumentCompareNode{node: node, simulator: simulator, logger: logger}
}

func (n *DocumentCompareNode) Execute(ctx context.Context, req protocol.ExecutionRequest) (protocol.NodeOutput, error) {
	documents, fields := 0, 0

	for _, out := range req.Upstream {
		if len(out.Fields) > 0 {
			documents++
			fields += len(out.Fields)
		}
	}

	if err := n.simulator.Simulate(ctx); err != nil {
		return protocol.NodeOutput{}, err
	}

	n.logger.DebugContext(ctx, "Queued documents for review", "node_id", n.node.ID, "documents", documents, "fields", fields)

	return protocol.NodeOutput{
		NodeID: n.node.ID,
		Kind:   n.node.Kind,
		Label:  n.node.Config.Label,
		Data: map[string]any{
			"documents": documents,
			"fields":    fields,
		},
	}, nil
}

// Package docai implements the document AI nodes that send a document to the
// extraction backend.
package docai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/storage"
)

type DocumentAINode struct {
	node    models.Node
	invoker extraction.Invoker
	files   storage.Store
	logger  *slog.Logger
}

func NewDocumentAINode(node models.Node, invoker extraction.Invoker, files storage.Store, logger *slog.Logger) *DocumentAINode {
	return &DocumentAINode{
		node:    node,
		invoker: invoker,
		files:   files,
		logger:  logger,
	}
}

// Execute checks the node is configured, then submits its document for
// extraction. An incomplete node fails with *protocol.ConfigurationError
// without calling the backend.
func (n *DocumentAINode) Execute(ctx context.Context, req protocol.ExecutionRequest) (protocol.NodeOutput, error) {
	settings := n.node.Config.DocumentAI()
	if settings == nil {
		return protocol.NodeOutput{}, &protocol.ConfigurationError{NodeID: n.node.ID, Missing: []string{"project", "file"}}
	}

	if ready, missing := settings.Ready(); !ready {
		return protocol.NodeOutput{}, &protocol.ConfigurationError{NodeID: n.node.ID, Missing: missing}
	}

	doc, err := n.files.Open(ctx, *settings.File)
	if err != nil {
		return protocol.NodeOutput{}, fmt.Errorf("Uploaded document %q is no longer available.", settings.File.Name)
	}
	defer doc.Close()

	documentType := settings.Project.DocumentType
	if documentType == "" {
		documentType = string(n.node.Kind)
	}

	n.logger.InfoContext(ctx, "Submitting document for extraction",
		"run_id", req.RunID,
		"node_id", n.node.ID,
		"project_id", settings.Project.ID,
		"file_id", settings.File.ID,
	)

	fields, err := n.invoker.Extract(ctx, extraction.Request{
		ProjectID:    settings.Project.ID,
		DocumentType: documentType,
		FileName:     settings.File.Name,
		File:         doc,
	})
	if err != nil {
		return protocol.NodeOutput{}, err
	}

	return protocol.NodeOutput{
		NodeID: n.node.ID,
		Kind:   n.node.Kind,
		Label:  n.node.Config.Label,
		Fields: fields,
		Data: map[string]any{
			"project_id":  settings.Project.ID,
			"file_id":     settings.File.ID,
			"field_count": len(fields),
		},
	}, nil
}

package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

type DocumentCompareNodeFactory struct {
	simulator protocol.Simulator
	logger    *slog.Logger
}

func NewDocumentCompareNodeFactory(deps protocol.Dependencies) protocol.NodeFactory {
	return &DocumentCompareNodeFactory{
		simulator: deps.Simulator,
		logger:    deps.Logger.With("node_kind", string(models.KindDocumentCompare)),
	}
}

func (f *DocumentCompareNodeFactory) Create(_ context.Context, node models.Node) (protocol.NodeExecutor, error) {
	if node.Kind != models.KindDocumentCompare {
		return nil, fmt.Errorf("document compare factory cannot run %s nodes", node.Kind)
	}

	return NewDocumentCompareNode(node, f.simulator, f.logger), nil
}

func (f *DocumentCompareNodeFactory) Kind() models.NodeKind {
	return models.KindDocumentCompare
}

func (f *DocumentCompareNodeFactory) Name() string {
	return models.KindDocumentCompare.Label()
}

func (f *DocumentCompareNodeFactory) Description() string {
	return "Opens extracted fields side by side with the source document for review"
}

func (f *DocumentCompareNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           protocol.CommonSchemaProperties(),
		"additionalProperties": false,
	}
}

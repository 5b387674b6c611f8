package docai

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/storage"
)

var descriptions = map[models.NodeKind]string{
	models.KindInvoice:       "Extracts header and line item fields from invoices",
	models.KindContract:      "Extracts parties, dates and terms from contracts",
	models.KindBankStatement: "Extracts balances and transactions from bank statements",
}

type DocumentAINodeFactory struct {
	kind    models.NodeKind
	invoker extraction.Invoker
	files   storage.Store
	logger  *slog.Logger
}

func NewDocumentAINodeFactory(kind models.NodeKind, deps protocol.Dependencies) protocol.NodeFactory {
	return &DocumentAINodeFactory{
		kind:    kind,
		invoker: deps.Invoker,
		files:   deps.Files,
		logger:  deps.Logger.With("node_kind", string(kind)),
	}
}

func (f *DocumentAINodeFactory) Create(_ context.Context, node models.Node) (protocol.NodeExecutor, error) {
	if node.Kind != f.kind {
		return nil, fmt.Errorf("document AI factory for %s cannot run %s nodes", f.kind, node.Kind)
	}

	return NewDocumentAINode(node, f.invoker, f.files, f.logger), nil
}

func (f *DocumentAINodeFactory) Kind() models.NodeKind {
	return f.kind
}

func (f *DocumentAINodeFactory) Name() string {
	return f.kind.Label()
}

func (f *DocumentAINodeFactory) Description() string {
	return descriptions[f.kind]
}

// Schema covers the project selection. Documents are attached by upload, not
// through a configuration update.
func (f *DocumentAINodeFactory) Schema() map[string]any {
	properties := protocol.CommonSchemaProperties()
	maps.Copy(properties, map[string]any{
		"project_id": map[string]any{
			"type":        "string",
			"description": "Extraction project used for this document type",
			"minLength":   1,
		},
	})

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

package registry

import (
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/nodes/connector"
	"github.com/dukex/idpflow/pkg/nodes/docai"
	"github.com/dukex/idpflow/pkg/nodes/integration"
	"github.com/dukex/idpflow/pkg/nodes/review"
	"github.com/dukex/idpflow/pkg/protocol"
)

// RegisterDefaultNodes registers a factory for every catalog kind.
func (r *Registry) RegisterDefaultNodes(deps protocol.Dependencies) {
	for _, kind := range models.AllKinds() {
		switch kind.Family() {
		case models.FamilyConnector:
			r.RegisterNode(connector.NewConnectorNodeFactory(kind, deps))
		case models.FamilyDocumentAI:
			r.RegisterNode(docai.NewDocumentAINodeFactory(kind, deps))
		case models.FamilyIntegration:
			r.RegisterNode(integration.NewIntegrationNodeFactory(kind, deps))
		case models.FamilyReview:
			r.RegisterNode(review.NewDocumentCompareNodeFactory(deps))
		}
	}
}

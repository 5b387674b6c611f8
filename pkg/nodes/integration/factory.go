package integration

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

var descriptions = map[models.NodeKind]string{
	models.KindSalesforce: "Creates or updates Salesforce records from extracted fields",
	models.KindSAP:        "Posts extracted documents to SAP S/4HANA",
	models.KindSlack:      "Sends a Slack message when the pipeline reaches this step",
	models.KindHTTPSPost:  "POSTs the run output as JSON to an HTTPS endpoint",
}

type IntegrationNodeFactory struct {
	kind      models.NodeKind
	simulator protocol.Simulator
	client    *http.Client
	hosts     HostPolicy
	logger    *slog.Logger
}

func NewIntegrationNodeFactory(kind models.NodeKind, deps protocol.Dependencies) protocol.NodeFactory {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &IntegrationNodeFactory{
		kind:      kind,
		simulator: deps.Simulator,
		client:    client,
		hosts:     NewHostPolicy(deps.PostAllowedHosts),
		logger:    deps.Logger.With("node_kind", string(kind)),
	}
}

func (f *IntegrationNodeFactory) Create(_ context.Context, node models.Node) (protocol.NodeExecutor, error) {
	if node.Kind != f.kind {
		return nil, fmt.Errorf("integration factory for %s cannot run %s nodes", f.kind, node.Kind)
	}

	return NewIntegrationNode(node, f.simulator, f.client, f.hosts, f.logger), nil
}

func (f *IntegrationNodeFactory) Kind() models.NodeKind {
	return f.kind
}

func (f *IntegrationNodeFactory) Name() string {
	return f.kind.Label()
}

func (f *IntegrationNodeFactory) Description() string {
	return descriptions[f.kind]
}

func (f *IntegrationNodeFactory) Schema() map[string]any {
	properties := protocol.CommonSchemaProperties()

	if f.kind == models.KindHTTPSPost {
		maps.Copy(properties, map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "URL receiving the run output. Empty disables delivery",
				"pattern":     "^(https?://.+)?$",
			},
		})
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

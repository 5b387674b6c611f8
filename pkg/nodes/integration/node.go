// Package integration implements the nodes that hand results to downstream
// systems (Salesforce, SAP, Slack, HTTPS Post).
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

const maxResponseBody = 64 << 10

// IntegrationNode delivers run output. Only https_post with an endpoint makes
// a real request, and only to hosts the policy allows; every other case is
// simulated.
type IntegrationNode struct {
	node      models.Node
	simulator protocol.Simulator
	client    *http.Client
	hosts     HostPolicy
	logger    *slog.Logger
}

func NewIntegrationNode(node models.Node, simulator protocol.Simulator, client *http.Client, hosts HostPolicy, logger *slog.Logger) *IntegrationNode {
	return &IntegrationNode{
		node:      node,
		simulator: simulator,
		client:    client,
		hosts:     hosts,
		logger:    logger,
	}
}

// Delivery is the body posted to an https_post endpoint.
type Delivery struct {
	PipelineID  string                `json:"pipeline_id"`
	RunID       string                `json:"run_id"`
	NodeID      string                `json:"node_id"`
	DeliveredAt time.Time             `json:"delivered_at"`
	Results     []protocol.NodeOutput `json:"results"`
}

func (n *IntegrationNode) Execute(ctx context.Context, req protocol.ExecutionRequest) (protocol.NodeOutput, error) {
	output := protocol.NodeOutput{
		NodeID: n.node.ID,
		Kind:   n.node.Kind,
		Label:  n.node.Config.Label,
	}

	endpoint := ""
	if settings := n.node.Config.Integration(); settings != nil {
		endpoint = settings.Endpoint
	}

	if n.node.Kind != models.KindHTTPSPost || endpoint == "" {
		if err := n.simulator.Simulate(ctx); err != nil {
			return protocol.NodeOutput{}, err
		}

		output.Data = map[string]any{"simulated": true, "results": len(req.Upstream)}

		return output, nil
	}

	if err := n.hosts.Check(endpoint); err != nil {
		n.logger.WarnContext(ctx, "Refused delivery", "node_id", n.node.ID, "endpoint", endpoint, "error", err)

		return protocol.NodeOutput{}, fmt.Errorf("HTTPS Post refused: %w", err)
	}

	statusCode, err := n.post(ctx, endpoint, Delivery{
		PipelineID:  req.PipelineID,
		RunID:       req.RunID,
		NodeID:      n.node.ID,
		DeliveredAt: time.Now().UTC(),
		Results:     req.Upstream,
	})
	if err != nil {
		return protocol.NodeOutput{}, err
	}

	output.Data = map[string]any{"endpoint": endpoint, "status_code": statusCode}

	return output, nil
}

// HTTPError is a non-2xx answer from the endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTPS Post failed with status %d", e.StatusCode)
	}

	return fmt.Sprintf("HTTPS Post failed with status %d: %s", e.StatusCode, e.Body)
}

func (n *IntegrationNode) post(ctx context.Context, endpoint string, delivery Delivery) (int, error) {
	body, err := json.Marshal(delivery)
	if err != nil {
		return 0, fmt.Errorf("failed to encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}

		return 0, fmt.Errorf("HTTPS Post failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	n.logger.InfoContext(ctx, "Delivered run output", "node_id", n.node.ID, "endpoint", endpoint, "status_code", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return resp.StatusCode, nil
}

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/nodes/simulate"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/testutil"
)

func httpsPostNode(endpoint string) models.Node {
	node := testutil.Node("dndnode_3", models.KindHTTPSPost)
	node.Config.Settings = &models.IntegrationSettings{Endpoint: endpoint}

	return node
}

func TestIntegrationNode_PostsRunOutput(t *testing.T) {
	t.Parallel()

	var received Delivery

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	node := httpsPostNode(server.URL)
	factory := NewIntegrationNodeFactory(models.KindHTTPSPost, protocol.Dependencies{
		Logger:     testutil.Logger(),
		Simulator:  simulate.Never("simulation must not run"),
		HTTPClient: server.Client(),

		PostAllowedHosts: []string{"127.0.0.1"},
	})

	executor, err := factory.Create(context.Background(), node)
	require.NoError(t, err)

	out, err := executor.Execute(context.Background(), protocol.ExecutionRequest{
		RunID:      "run-1",
		PipelineID: "pipe-1",
		Node:       node,
		Upstream: []protocol.NodeOutput{
			{NodeID: "dndnode_1", Kind: models.KindInvoice, Fields: []models.Field{{ID: "1", Key: "Invoice Number", Value: "INV-1"}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, out.Data["status_code"])
	assert.Equal(t, "pipe-1", received.PipelineID)
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, "dndnode_3", received.NodeID)
	require.Len(t, received.Results, 1)
	assert.Equal(t, "INV-1", received.Results[0].Fields[0].Value)
}

func TestIntegrationNode_EndpointError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	node := httpsPostNode(server.URL)
	executor := NewIntegrationNode(node, simulate.Always(), server.Client(), NewHostPolicy([]string{"*"}), testutil.Logger())

	_, err := executor.Execute(context.Background(), protocol.ExecutionRequest{Node: node})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, "HTTPS Post failed with status 429: quota exceeded", err.Error())
}

func TestIntegrationNode_RefusesHostsOutsideAllowlist(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	node := httpsPostNode(server.URL)

	for _, hosts := range [][]string{nil, {"hooks.example.com"}, {"*.example.com"}} {
		factory := NewIntegrationNodeFactory(models.KindHTTPSPost, protocol.Dependencies{
			Logger:     testutil.Logger(),
			Simulator:  simulate.Always(),
			HTTPClient: server.Client(),

			PostAllowedHosts: hosts,
		})

		executor, err := factory.Create(context.Background(), node)
		require.NoError(t, err)

		_, err = executor.Execute(context.Background(), protocol.ExecutionRequest{Node: node})
		require.ErrorIs(t, err, ErrEndpointNotAllowed, "hosts %v", hosts)
	}

	assert.Zero(t, hits.Load())
}

func TestHostPolicy_Check(t *testing.T) {
	t.Parallel()

	policy := NewHostPolicy([]string{" Hooks.Example.com ", "*.erp.internal", ""})

	tests := []struct {
		endpoint string
		allowed  bool
	}{
		{"https://hooks.example.com/ap", true},
		{"https://HOOKS.example.com:8443/ap", true},
		{"https://sap.erp.internal/inbound", true},
		{"https://erp.internal/inbound", false},
		{"https://example.com/ap", false},
		{"http://169.254.169.254/latest/meta-data", false},
		{"ftp://hooks.example.com/ap", false},
		{"hooks.example.com/ap", false},
	}

	for _, tt := range tests {
		err := policy.Check(tt.endpoint)
		if tt.allowed {
			assert.NoError(t, err, tt.endpoint)
		} else {
			assert.ErrorIs(t, err, ErrEndpointNotAllowed, tt.endpoint)
		}
	}

	require.NoError(t, NewHostPolicy([]string{"*"}).Check("http://10.0.0.5:8080/hook"))
	require.ErrorIs(t, HostPolicy{}.Check("https://hooks.example.com/ap"), ErrEndpointNotAllowed)
}

func TestIntegrationNode_Simulated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node models.Node
	}{
		{name: "salesforce", node: testutil.Node("dndnode_1", models.KindSalesforce)},
		{name: "slack", node: testutil.Node("dndnode_1", models.KindSlack)},
		{name: "https post without endpoint", node: httpsPostNode("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			executor := NewIntegrationNode(tt.node, simulate.Always(), http.DefaultClient, HostPolicy{}, testutil.Logger())

			out, err := executor.Execute(context.Background(), protocol.ExecutionRequest{Node: tt.node})
			require.NoError(t, err)
			assert.Equal(t, true, out.Data["simulated"])

			failing := NewIntegrationNode(tt.node, simulate.Never(simulate.DefaultMessage), http.DefaultClient, HostPolicy{}, testutil.Logger())

			_, err = failing.Execute(context.Background(), protocol.ExecutionRequest{Node: tt.node})
			require.EqualError(t, err, simulate.DefaultMessage)
		})
	}
}

func TestIntegrationNodeFactory_Schema(t *testing.T) {
	t.Parallel()

	deps := protocol.Dependencies{Logger: testutil.Logger(), Simulator: simulate.Always()}

	post := NewIntegrationNodeFactory(models.KindHTTPSPost, deps).Schema()["properties"].(map[string]any)
	assert.Contains(t, post, "endpoint")

	slack := NewIntegrationNodeFactory(models.KindSlack, deps).Schema()["properties"].(map[string]any)
	assert.NotContains(t, slack, "endpoint")
}

package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/nodes/simulate"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/testutil"
)

func deps(sim protocol.Simulator) protocol.Dependencies {
	return protocol.Dependencies{Logger: testutil.Logger(), Simulator: sim}
}

func TestConnectorNode_Execute(t *testing.T) {
	t.Parallel()

	node := testutil.Node("dndnode_0", models.KindGmail)
	node.Config.Settings = &models.ConnectorSettings{Credentials: &models.Credentials{Username: "ap@acme.test"}}

	executor, err := NewConnectorNodeFactory(models.KindGmail, deps(simulate.Always())).Create(context.Background(), node)
	require.NoError(t, err)

	out, err := executor.Execute(context.Background(), protocol.ExecutionRequest{RunID: "run-1", Node: node})
	require.NoError(t, err)

	assert.Equal(t, "dndnode_0", out.NodeID)
	assert.Equal(t, "Gmail", out.Label)
	assert.Equal(t, "gmail", out.Data["provider"])
	assert.Equal(t, "ap@acme.test", out.Data["mailbox"])
}

func TestConnectorNode_SimulatedFailure(t *testing.T) {
	t.Parallel()

	node := testutil.Node("dndnode_0", models.KindOutlook)
	executor := NewConnectorNode(node, simulate.Never(simulate.DefaultMessage), testutil.Logger())

	_, err := executor.Execute(context.Background(), protocol.ExecutionRequest{Node: node})
	require.Error(t, err)
	assert.Equal(t, "Connection timeout: Failed to reach external service.", err.Error())
}

func TestConnectorNodeFactory_RejectsOtherKinds(t *testing.T) {
	t.Parallel()

	factory := NewConnectorNodeFactory(models.KindGmail, deps(simulate.Always()))

	_, err := factory.Create(context.Background(), testutil.Node("dndnode_0", models.KindSlack))
	require.Error(t, err)

	assert.Equal(t, models.KindGmail, factory.Kind())
	assert.Equal(t, "Gmail", factory.Name())
	assert.Contains(t, factory.Schema()["properties"], "credentials")
}

package docai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/mocks"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/storage"
	"github.com/dukex/idpflow/pkg/testutil"
)

func setup(t *testing.T) (*mocks.MockInvoker, *storage.DiskStore, protocol.NodeFactory) {
	t.Helper()

	invoker := &mocks.MockInvoker{}
	store := storage.NewDiskStore(t.TempDir(), testutil.Logger())

	factory := NewDocumentAINodeFactory(models.KindInvoice, protocol.Dependencies{
		Logger:  testutil.Logger(),
		Invoker: invoker,
		Files:   store,
	})

	return invoker, store, factory
}

func invoiceNode(project *models.ProjectRef, file *models.UploadedFile) models.Node {
	node := testutil.Node("dndnode_1", models.KindInvoice)
	node.Config.Settings = &models.DocumentAISettings{Project: project, File: file}

	return node
}

func TestDocumentAINode_Extracts(t *testing.T) {
	t.Parallel()

	invoker, store, factory := setup(t)
	ctx := context.Background()

	file, err := store.Put(ctx, "inv-001.pdf", "application/pdf", strings.NewReader("%PDF-fake"))
	require.NoError(t, err)

	fields := []models.Field{
		{ID: "1", Key: "Invoice Number", Value: "INV-001", Confidence: 0.85, PageReference: 1},
		{ID: "2", Key: "Total Amount", Value: "1250.5", Confidence: 0.85, PageReference: 1},
	}
	invoker.On("Extract", mock.Anything, "proj-1", "invoice", "inv-001.pdf").Return(fields, nil).Once()

	node := invoiceNode(testutil.Project("proj-1"), &file)

	executor, err := factory.Create(ctx, node)
	require.NoError(t, err)

	out, err := executor.Execute(ctx, protocol.ExecutionRequest{RunID: "run-1", Node: node})
	require.NoError(t, err)

	assert.Equal(t, fields, out.Fields)
	assert.Equal(t, 2, out.Data["field_count"])
	assert.Equal(t, "%PDF-fake", string(invoker.Body))
	invoker.AssertExpectations(t)
}

func TestDocumentAINode_DocumentTypeFallsBackToKind(t *testing.T) {
	t.Parallel()

	invoker, store, factory := setup(t)
	ctx := context.Background()

	file, err := store.Put(ctx, "inv.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	project := testutil.Project("proj-2")
	project.DocumentType = ""

	invoker.On("Extract", mock.Anything, "proj-2", "invoice", "inv.pdf").Return([]models.Field{}, nil).Once()

	node := invoiceNode(project, &file)
	executor, err := factory.Create(ctx, node)
	require.NoError(t, err)

	_, err = executor.Execute(ctx, protocol.ExecutionRequest{Node: node})
	require.NoError(t, err)
	invoker.AssertExpectations(t)
}

func TestDocumentAINode_NotReady(t *testing.T) {
	t.Parallel()

	file := models.UploadedFile{ID: "f1", Name: "a.pdf"}

	tests := []struct {
		name    string
		project *models.ProjectRef
		file    *models.UploadedFile
		message string
	}{
		{
			name:    "nothing configured",
			message: "Select an extraction project and upload a document before running this node.",
		},
		{
			name:    "missing file",
			project: testutil.Project("proj-1"),
			message: "Upload a document before running this node.",
		},
		{
			name:    "missing project",
			file:    &file,
			message: "Select an extraction project before running this node.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			invoker, _, factory := setup(t)
			node := invoiceNode(tt.project, tt.file)

			executor, err := factory.Create(context.Background(), node)
			require.NoError(t, err)

			_, err = executor.Execute(context.Background(), protocol.ExecutionRequest{Node: node})
			require.EqualError(t, err, tt.message)

			var cfgErr *protocol.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "dndnode_1", cfgErr.NodeID)
			invoker.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDocumentAINode_MissingStoredFile(t *testing.T) {
	t.Parallel()

	invoker, store, factory := setup(t)
	ctx := context.Background()

	file, err := store.Put(ctx, "gone.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, file))

	node := invoiceNode(testutil.Project("proj-1"), &file)
	executor, err := factory.Create(ctx, node)
	require.NoError(t, err)

	_, err = executor.Execute(ctx, protocol.ExecutionRequest{Node: node})
	require.EqualError(t, err, `Uploaded document "gone.pdf" is no longer available.`)
	invoker.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentAINode_BackendError(t *testing.T) {
	t.Parallel()

	invoker, store, factory := setup(t)
	ctx := context.Background()

	file, err := store.Put(ctx, "inv.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	backendErr := &extraction.InvocationError{Kind: extraction.ErrUpstream, StatusCode: 502, Message: "Model is warming up"}
	invoker.On("Extract", mock.Anything, "proj-1", "invoice", "inv.pdf").Return(nil, backendErr).Once()

	node := invoiceNode(testutil.Project("proj-1"), &file)
	executor, err := factory.Create(ctx, node)
	require.NoError(t, err)

	_, err = executor.Execute(ctx, protocol.ExecutionRequest{Node: node})
	require.EqualError(t, err, "Model is warming up")
	assert.True(t, extraction.IsUpstream(err))
}

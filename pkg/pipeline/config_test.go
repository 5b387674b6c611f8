package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/models"
)

func TestGraph_UpdateMergesPatch(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindGmail)

	cfg, err := g.Update(id, ConfigPatch{
		Label:       ptr("Shared inbox"),
		Credentials: &models.Credentials{Username: "ops@example.com", Password: "secret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shared inbox", cfg.Label)

	cfg, err = g.Update(id, ConfigPatch{Description: ptr("AP mailbox")})
	require.NoError(t, err)
	assert.Equal(t, "Shared inbox", cfg.Label)
	assert.Equal(t, "AP mailbox", cfg.Description)
	assert.Equal(t, "ops@example.com", cfg.Connector().Credentials.Username)
}

func TestGraph_UpdateRejectsForeignFields(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	gmail := addNode(t, g, models.KindGmail)
	invoice := addNode(t, g, models.KindInvoice)
	slack := addNode(t, g, models.KindSlack)
	post := addNode(t, g, models.KindHTTPSPost)
	review := addNode(t, g, models.KindDocumentCompare)

	testCases := []struct {
		name   string
		nodeID string
		patch  ConfigPatch
	}{
		{"credentials on document ai", invoice, ConfigPatch{Credentials: &models.Credentials{Username: "u"}}},
		{"project on connector", gmail, ConfigPatch{Project: &models.ProjectRef{ID: "p"}}},
		{"file on integration", slack, ConfigPatch{File: &models.UploadedFile{ID: "f", Name: "a.pdf"}}},
		{"endpoint on slack", slack, ConfigPatch{Endpoint: ptr("https://example.com")}},
		{"endpoint on review", review, ConfigPatch{Endpoint: ptr("https://example.com")}},
		{"empty label", gmail, ConfigPatch{Label: ptr("  ")}},
		{"credentials without username", gmail, ConfigPatch{Credentials: &models.Credentials{Password: "x"}}},
		{"project without id", invoice, ConfigPatch{Project: &models.ProjectRef{Name: "x"}}},
		{"endpoint not a url", post, ConfigPatch{Endpoint: ptr("ftp://example.com/x")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := g.Get(tc.nodeID)
			require.NoError(t, err)

			_, err = g.Update(tc.nodeID, tc.patch)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.True(t, IsValidation(err))

			after, err := g.Get(tc.nodeID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestGraph_UpdateEndpoint(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	post := addNode(t, g, models.KindHTTPSPost)

	cfg, err := g.Update(post, ConfigPatch{Endpoint: ptr(" https://hooks.example.com/in ")})
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/in", cfg.Integration().Endpoint)

	cfg, err = g.Update(post, ConfigPatch{Endpoint: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, cfg.Integration().Endpoint)
}

func TestGraph_UpdateMissingNode(t *testing.T) {
	t.Parallel()

	g := New("p1", "")

	_, err := g.Update("dndnode_4", ConfigPatch{Label: ptr("x")})
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.True(t, IsNotFound(err))

	_, err = g.Get("dndnode_4")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestGraph_NewFileClearsResult(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindInvoice)

	_, err := g.Update(id, ConfigPatch{
		Project: &models.ProjectRef{ID: "proj-1"},
		File:    &models.UploadedFile{ID: "f1", Name: "a.pdf"},
	})
	require.NoError(t, err)
	require.NoError(t, g.SetExtractionResult(id, "f1", []models.Field{{ID: "1", Key: "Total", Value: "10"}}))
	require.NoError(t, g.SetStatus(id, models.StatusError, "boom"))

	cfg, err := g.Update(id, ConfigPatch{File: &models.UploadedFile{ID: "f2", Name: "b.pdf"}})
	require.NoError(t, err)

	settings := cfg.DocumentAI()
	assert.Equal(t, "f2", settings.File.ID)
	assert.Empty(t, settings.Result)
	assert.Equal(t, "proj-1", settings.Project.ID)
	assert.Equal(t, models.StatusIdle, cfg.Status)
	assert.Empty(t, cfg.ErrorMessage)
}

func TestGraph_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindInvoice)
	require.NoError(t, g.SetExtractionResult(id, "", []models.Field{{ID: "1", Value: "a"}}))

	cfg, err := g.Get(id)
	require.NoError(t, err)
	cfg.DocumentAI().Result[0].Value = "changed"

	cfg, err = g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.DocumentAI().Result[0].Value)
}

func TestGraph_SetStatus(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindSlack)

	require.NoError(t, g.SetStatus(id, models.StatusError, "Connection timeout"))

	cfg, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, cfg.Status)
	assert.Equal(t, "Connection timeout", cfg.ErrorMessage)

	require.NoError(t, g.SetStatus(id, models.StatusRunning, "ignored"))

	cfg, err = g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, cfg.Status)
	assert.Empty(t, cfg.ErrorMessage)

	assert.ErrorIs(t, g.SetStatus("missing", models.StatusIdle, ""), ErrNodeNotFound)
}

func TestGraph_SetExtractionResultOnlyForDocumentAI(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindSlack)

	err := g.SetExtractionResult(id, "", []models.Field{{ID: "1"}})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestGraph_SetExtractionResultForReplacedDocument(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindInvoice)

	_, err := g.Update(id, ConfigPatch{
		Project: &models.ProjectRef{ID: "proj-1"},
		File:    &models.UploadedFile{ID: "f1", Name: "a.pdf"},
	})
	require.NoError(t, err)

	_, err = g.Update(id, ConfigPatch{File: &models.UploadedFile{ID: "f2", Name: "b.pdf"}})
	require.NoError(t, err)

	err = g.SetExtractionResult(id, "f1", []models.Field{{ID: "1", Key: "Total", Value: "10"}})
	require.ErrorIs(t, err, ErrStaleResult)

	cfg, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "f2", cfg.DocumentAI().File.ID)
	assert.Empty(t, cfg.DocumentAI().Result)

	require.NoError(t, g.SetExtractionResult(id, "f2", []models.Field{{ID: "1", Key: "Total", Value: "12"}}))

	cfg, err = g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "12", cfg.DocumentAI().Result[0].Value)
}

func TestGraph_EditField(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	id := addNode(t, g, models.KindContract)
	require.NoError(t, g.SetExtractionResult(id, "", []models.Field{
		{ID: "1", Key: "Party", Value: "Acme"},
		{ID: "2", Key: "Term", Value: "12"},
	}))

	field, err := g.EditField(id, "2", "24")
	require.NoError(t, err)
	assert.Equal(t, "24", field.Value)

	cfg, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", cfg.DocumentAI().Result[0].Value)
	assert.Equal(t, "24", cfg.DocumentAI().Result[1].Value)

	_, err = g.EditField(id, "9", "x")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = g.EditField("missing", "1", "x")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestGraph_ResetStatuses(t *testing.T) {
	t.Parallel()

	g := New("p1", "")
	a := addNode(t, g, models.KindGmail)
	b := addNode(t, g, models.KindInvoice)

	require.NoError(t, g.SetStatus(a, models.StatusSuccess, ""))
	require.NoError(t, g.SetStatus(b, models.StatusError, "bad"))

	g.ResetStatuses()

	for _, n := range g.NodesInCreationOrder() {
		assert.Equal(t, models.StatusIdle, n.Config.Status)
		assert.Empty(t, n.Config.ErrorMessage)
	}
}

package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/persistence"
	"github.com/dukex/idpflow/pkg/persistence/postgresql"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/testutil"
)

var (
	containerOnce     sync.Once
	postgresContainer *postgres.PostgresContainer
	containerErr      error
)

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"pipelines", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres tests need docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	containerOnce.Do(func() {
		postgresContainer, containerErr = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("idpflow_test"),
			postgres.WithUsername("idpflow"),
			postgres.WithPassword("idpflow"),
			postgres.BasicWaitStrategies(),
		)
	})
	require.NoError(t, containerErr)

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func samplePipeline(t *testing.T, id string) models.PipelineDocument {
	t.Helper()

	g := pipeline.New(id, "AP inbox")

	outlook, err := g.AddNode(models.KindOutlook, "", models.Position{})
	require.NoError(t, err)

	contract, err := g.AddNode(models.KindContract, "", models.Position{X: 200})
	require.NoError(t, err)

	_, err = g.Connect(outlook, contract)
	require.NoError(t, err)

	_, err = g.Update(contract, pipeline.ConfigPatch{Project: testutil.Project("proj-7")})
	require.NoError(t, err)

	return g.Document()
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'pipelines')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "pipelines table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// a second start finds nothing to apply
	again, err := postgresql.NewPersistence(ctx, testutil.Logger(), databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))

	var applied int

	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	doc := samplePipeline(t, "pipe-1")
	require.NoError(t, p.SavePipeline(ctx, doc))

	loaded, err := p.PipelineByID(ctx, "pipe-1")
	require.NoError(t, err)

	g, err := pipeline.FromDocument(loaded)
	require.NoError(t, err)

	assert.Equal(t, "AP inbox", g.Name())
	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.Edges(), 1)

	cfg, err := g.Get("dndnode_1")
	require.NoError(t, err)
	assert.Equal(t, "proj-7", cfg.DocumentAI().Project.ID)

	doc.Name = "Renamed"
	require.NoError(t, p.SavePipeline(ctx, doc))

	all, err := p.Pipelines(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Name)
}

func TestPersistence_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.SavePipeline(ctx, samplePipeline(t, "pipe-1")))
	require.NoError(t, p.DeletePipeline(ctx, "pipe-1"))

	_, err := p.PipelineByID(ctx, "pipe-1")
	assert.True(t, persistence.IsPipelineNotFound(err))

	err = p.DeletePipeline(ctx, "pipe-1")
	assert.True(t, persistence.IsPipelineNotFound(err))

	all, err := p.Pipelines(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, p.SavePipeline(ctx, samplePipeline(t, "pipe-1")))

	_, err = p.PipelineByID(ctx, "pipe-1")
	require.NoError(t, err)
}

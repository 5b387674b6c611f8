package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/idpflow/pkg/engine"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/persistence"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/projects"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/storage"
)

// PipelineSummary is the list view of a pipeline.
type PipelineSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DropRequest adds a node the way a palette drop does.
type DropRequest struct {
	Type     string
	Label    string
	Position models.Position
}

// NodeUpdate is a partial configuration change. Nil fields are left untouched.
type NodeUpdate struct {
	Label       *string
	Description *string
	Credentials *models.Credentials
	ProjectID   *string
	Endpoint    *string
}

// Pipelines owns the live pipeline graphs. Graphs are loaded from persistence on
// first use and saved after every change.
type Pipelines struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	registry    *registry.Registry
	projects    projects.Directory
	files       storage.Store
	logger      *slog.Logger

	mu     sync.Mutex
	graphs map[string]*pipeline.Graph
}

func NewPipelines(
	persistence persistence.Persistence,
	engine *engine.Engine,
	registry *registry.Registry,
	projects projects.Directory,
	files storage.Store,
	logger *slog.Logger,
) *Pipelines {
	return &Pipelines{
		persistence: persistence,
		engine:      engine,
		registry:    registry,
		projects:    projects,
		files:       files,
		logger:      logger.With("module", "pipelines"),
		graphs:      make(map[string]*pipeline.Graph),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Pipelines) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Catalog lists the node kinds that can be dropped on a pipeline.
func (s *Pipelines) Catalog() []registry.CatalogEntry {
	return s.registry.Catalog()
}

// Projects lists the extraction projects a document AI node can select.
func (s *Pipelines) Projects(ctx context.Context) ([]models.ProjectRef, error) {
	refs, err := s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return refs, nil
}

func (s *Pipelines) List(ctx context.Context) ([]PipelineSummary, error) {
	docs, err := s.persistence.Pipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	summaries := make([]PipelineSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, PipelineSummary{
			ID:        doc.ID,
			Name:      doc.Name,
			NodeCount: len(doc.Nodes),
			EdgeCount: len(doc.Edges),
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return summaries, nil
}

func (s *Pipelines) Create(ctx context.Context, name string) (models.PipelineDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.PipelineDocument{}, NewValidationError("create pipeline", "name_required", "", ErrPipelineNameRequired)
	}

	g := pipeline.New(uuid.NewString(), name)

	if err := s.save(ctx, g); err != nil {
		return models.PipelineDocument{}, err
	}

	s.mu.Lock()
	s.graphs[g.ID()] = g
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "pipeline created", "pipeline_id", g.ID(), "name", name)

	return g.Document(), nil
}

func (s *Pipelines) Get(ctx context.Context, id string) (models.PipelineDocument, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.PipelineDocument{}, err
	}

	return g.Document(), nil
}

// Delete removes a pipeline and the documents uploaded to it. A running
// pipeline cannot be deleted.
func (s *Pipelines) Delete(ctx context.Context, id string) error {
	g, err := s.graph(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ensureIdle("delete pipeline", id); err != nil {
		return err
	}

	if err := s.persistence.DeletePipeline(ctx, id); err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}

	s.mu.Lock()
	delete(s.graphs, id)
	s.mu.Unlock()

	for _, node := range g.NodesInCreationOrder() {
		s.discardFile(ctx, node)
	}

	s.logger.InfoContext(ctx, "pipeline deleted", "pipeline_id", id)

	return nil
}

// Clear removes every node and edge from the pipeline.
func (s *Pipelines) Clear(ctx context.Context, id string) (models.PipelineDocument, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.PipelineDocument{}, err
	}

	nodes := g.NodesInCreationOrder()
	g.Clear()

	if err := s.save(ctx, g); err != nil {
		return models.PipelineDocument{}, err
	}

	for _, node := range nodes {
		s.discardFile(ctx, node)
	}

	return g.Document(), nil
}

// AddNode places a node from a palette drop. A drop without a type is rejected.
func (s *Pipelines) AddNode(ctx context.Context, id string, req DropRequest) (models.Node, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Node{}, err
	}

	nodeID, added, err := g.Drop(pipeline.DropPayload{Type: req.Type, Label: req.Label}, req.Position)
	if err != nil {
		return models.Node{}, err
	}

	if !added {
		return models.Node{}, NewValidationError("add node", "type_required", "drop payload has no node type", ErrInvalidRequest)
	}

	if err := s.save(ctx, g); err != nil {
		return models.Node{}, err
	}

	s.logger.DebugContext(ctx, "node added", "pipeline_id", id, "node_id", nodeID, "kind", req.Type)

	return g.Node(nodeID)
}

func (s *Pipelines) Node(ctx context.Context, id, nodeID string) (models.Node, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Node{}, err
	}

	return g.Node(nodeID)
}

// UpdateNode validates update against the kind's configuration schema,
// resolves the selected project and merges the result into the node.
func (s *Pipelines) UpdateNode(ctx context.Context, id, nodeID string, update NodeUpdate) (models.Node, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Node{}, err
	}

	node, err := g.Node(nodeID)
	if err != nil {
		return models.Node{}, err
	}

	if err := s.registry.ValidateConfiguration(node.Kind, update.raw()); err != nil {
		return models.Node{}, err
	}

	patch := pipeline.ConfigPatch{
		Label:       update.Label,
		Description: update.Description,
		Credentials: update.Credentials,
		Endpoint:    update.Endpoint,
	}

	if update.ProjectID != nil {
		if err := s.ensureIdle("update node", id); err != nil {
			return models.Node{}, err
		}

		project, err := s.projects.Get(ctx, *update.ProjectID)
		if errors.Is(err, projects.ErrProjectNotFound) {
			return models.Node{}, NewValidationError("update node", "unknown_project",
				fmt.Sprintf("project %q does not exist", *update.ProjectID), ErrUnknownProject)
		}

		if err != nil {
			return models.Node{}, fmt.Errorf("failed to resolve project: %w", err)
		}

		patch.Project = &project
	}

	if _, err := g.Update(nodeID, patch); err != nil {
		return models.Node{}, err
	}

	if err := s.save(ctx, g); err != nil {
		return models.Node{}, err
	}

	return g.Node(nodeID)
}

func (s *Pipelines) MoveNode(ctx context.Context, id, nodeID string, position models.Position) (models.Node, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Node{}, err
	}

	if err := g.MoveNode(nodeID, position); err != nil {
		return models.Node{}, err
	}

	if err := s.save(ctx, g); err != nil {
		return models.Node{}, err
	}

	return g.Node(nodeID)
}

// RemoveNode deletes the node and every edge touching it.
func (s *Pipelines) RemoveNode(ctx context.Context, id, nodeID string) error {
	g, err := s.graph(ctx, id)
	if err != nil {
		return err
	}

	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}

	if err := g.RemoveNode(nodeID); err != nil {
		return err
	}

	if err := s.save(ctx, g); err != nil {
		return err
	}

	s.discardFile(ctx, node)

	return nil
}

// UploadFile stores a document on a document AI node, replacing any earlier
// upload and its extraction result.
func (s *Pipelines) UploadFile(ctx context.Context, id, nodeID, name, contentType string, r io.Reader) (models.Node, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Node{}, err
	}

	node, err := g.Node(nodeID)
	if err != nil {
		return models.Node{}, err
	}

	if !node.Kind.IsDocumentAI() {
		return models.Node{}, NewValidationError("upload file", "not_document_node",
			fmt.Sprintf("%s nodes do not accept documents", node.Kind.Label()), ErrNotDocumentNode)
	}

	if err := s.ensureIdle("upload file", id); err != nil {
		return models.Node{}, err
	}

	file, err := s.files.Put(ctx, name, contentType, r)
	if err != nil {
		return models.Node{}, fmt.Errorf("failed to store upload: %w", err)
	}

	if _, err := g.Update(nodeID, pipeline.ConfigPatch{File: &file}); err != nil {
		s.deleteFile(ctx, file)

		return models.Node{}, err
	}

	if err := s.save(ctx, g); err != nil {
		return models.Node{}, err
	}

	s.discardFile(ctx, node)

	s.logger.InfoContext(ctx, "document uploaded",
		"pipeline_id", id, "node_id", nodeID, "file_id", file.ID, "size", file.Size, "pages", file.Pages)

	return g.Node(nodeID)
}

// EditField changes the value of one extracted field.
func (s *Pipelines) EditField(ctx context.Context, id, nodeID, fieldID, value string) (models.Field, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Field{}, err
	}

	field, err := g.EditField(nodeID, fieldID, value)
	if err != nil {
		return models.Field{}, err
	}

	if err := s.save(ctx, g); err != nil {
		return models.Field{}, err
	}

	return field, nil
}

// Result returns the extracted fields of a document AI node for export.
func (s *Pipelines) Result(ctx context.Context, id, nodeID string) ([]models.Field, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg, err := g.Get(nodeID)
	if err != nil {
		return nil, err
	}

	settings := cfg.DocumentAI()
	if settings == nil || len(settings.Result) == 0 {
		return nil, &ServiceError{Op: "export result", Code: "no_result", Err: ErrNoExtractionResult}
	}

	return settings.Result, nil
}

func (s *Pipelines) Connect(ctx context.Context, id, source, target string) (models.Edge, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.Edge{}, err
	}

	edgeID, err := g.Connect(source, target)
	if err != nil {
		return models.Edge{}, err
	}

	if err := s.save(ctx, g); err != nil {
		return models.Edge{}, err
	}

	return models.Edge{ID: edgeID, Source: source, Target: target}, nil
}

func (s *Pipelines) Disconnect(ctx context.Context, id, edgeID string) error {
	g, err := s.graph(ctx, id)
	if err != nil {
		return err
	}

	if err := g.Disconnect(edgeID); err != nil {
		return err
	}

	return s.save(ctx, g)
}

// Readiness lists the document AI nodes that would stop a run.
func (s *Pipelines) Readiness(ctx context.Context, id string) ([]models.ReadinessIssue, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.engine.Readiness(g), nil
}

// Run executes the pipeline and saves the resulting node states, also when the
// run was cancelled.
func (s *Pipelines) Run(ctx context.Context, id string) (models.RunResult, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.RunResult{}, err
	}

	result, err := s.engine.Run(ctx, g)
	if err != nil {
		return models.RunResult{}, err
	}

	if err := s.save(context.WithoutCancel(ctx), g); err != nil {
		return result, err
	}

	return result, nil
}

// TestNode executes one node on its own and saves its new state.
func (s *Pipelines) TestNode(ctx context.Context, id, nodeID string) (models.NodeRunResult, error) {
	g, err := s.graph(ctx, id)
	if err != nil {
		return models.NodeRunResult{}, err
	}

	result, err := s.engine.TestNode(ctx, g, nodeID)
	if err != nil {
		return models.NodeRunResult{}, err
	}

	if err := s.save(context.WithoutCancel(ctx), g); err != nil {
		return result, err
	}

	return result, nil
}

func (s *Pipelines) graph(ctx context.Context, id string) (*pipeline.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.graphs[id]; ok {
		return g, nil
	}

	doc, err := s.persistence.PipelineByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := pipeline.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline %s: %w", id, err)
	}

	s.graphs[id] = g

	return g, nil
}

func (s *Pipelines) save(ctx context.Context, g *pipeline.Graph) error {
	if err := s.persistence.SavePipeline(ctx, g.Document()); err != nil {
		return fmt.Errorf("failed to save pipeline: %w", err)
	}

	return nil
}

// discardFile deletes the upload held by node, if any.
func (s *Pipelines) discardFile(ctx context.Context, node models.Node) {
	settings := node.Config.DocumentAI()
	if settings == nil || settings.File == nil {
		return
	}

	s.deleteFile(ctx, *settings.File)
}

func (s *Pipelines) deleteFile(ctx context.Context, file models.UploadedFile) {
	err := s.files.Delete(ctx, file)
	if err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.WarnContext(ctx, "failed to delete uploaded file", "file_id", file.ID, "error", err)
	}
}

// raw renders the update the way the configuration schemas describe it.
func (u NodeUpdate) raw() map[string]any {
	out := map[string]any{}

	if u.Label != nil {
		out["label"] = *u.Label
	}

	if u.Description != nil {
		out["description"] = *u.Description
	}

	if u.Credentials != nil {
		out["credentials"] = map[string]any{
			"username": u.Credentials.Username,
			"password": u.Credentials.Password,
		}
	}

	if u.ProjectID != nil {
		out["project_id"] = *u.ProjectID
	}

	if u.Endpoint != nil {
		out["endpoint"] = *u.Endpoint
	}

	return out
}

// ensureIdle refuses changes that a run in progress would overwrite.
func (s *Pipelines) ensureIdle(op, id string) error {
	if _, running := s.engine.Running(id); running {
		return &ServiceError{Op: op, Code: "pipeline_running", Err: ErrPipelineRunning}
	}

	return nil
}

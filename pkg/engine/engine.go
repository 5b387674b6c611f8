// Package engine runs pipelines node by node and writes the outcome back to
// the live graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/idpflow/pkg/eventbus"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/otelhelper"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/protocol"
)

var ErrRunInProgress = errors.New("pipeline run already in progress")

// Order decides the sequence nodes run in.
type Order string

const (
	OrderCreation    Order = "creation"
	OrderTopological Order = "topological"
)

func ParseOrder(raw string) (Order, error) {
	switch Order(raw) {
	case OrderCreation, "":
		return OrderCreation, nil
	case OrderTopological:
		return OrderTopological, nil
	default:
		return "", fmt.Errorf("unknown execution order %q", raw)
	}
}

// NodeCreator resolves the executor of a node.
type NodeCreator interface {
	CreateNode(ctx context.Context, node models.Node) (protocol.NodeExecutor, error)
}

type Option func(*Engine)

// WithPublisher sends run and node events to publisher.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) { e.publisher = publisher }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

func WithOrder(order Order) Option {
	return func(e *Engine) { e.order = order }
}

type Engine struct {
	nodes     NodeCreator
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	order     Order

	mu     sync.Mutex
	active map[string]string
}

func New(nodes NodeCreator, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		nodes:  nodes,
		tracer: otelhelper.NewNoopTracer(),
		logger: logger.With("module", "engine"),
		order:  OrderCreation,
		active: make(map[string]string),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes every node of g in order and stops at the first failure.
// Node failures are reported in the result; the returned error is reserved
// for runs that could not start.
func (e *Engine) Run(ctx context.Context, g *pipeline.Graph) (models.RunResult, error) {
	runID := uuid.NewString()

	if err := e.acquire(g.ID(), runID); err != nil {
		return models.RunResult{}, err
	}
	defer e.release(g.ID())

	snapshot := g.Snapshot()

	nodes, err := e.orderNodes(snapshot)
	if err != nil {
		return models.RunResult{}, fmt.Errorf("failed to order pipeline %s: %w", g.ID(), err)
	}

	g.ResetStatuses()

	logger := e.logger.With("pipeline_id", g.ID(), "run_id", runID)
	started := time.Now().UTC()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "pipeline.run",
		attribute.String(otelhelper.PipelineIDKey, g.ID()),
		attribute.String(otelhelper.PipelineNameKey, snapshot.Name()),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer span.End()

	result := models.RunResult{
		RunID:        runID,
		PipelineID:   g.ID(),
		Status:       models.RunSuccess,
		NodeStatuses: make(map[string]models.NodeStatus, len(nodes)),
		StartedAt:    started,
	}

	for _, node := range nodes {
		result.NodeStatuses[node.ID] = models.StatusIdle
	}

	logger.InfoContext(ctx, "Starting pipeline run", "nodes", len(nodes), "order", e.order)
	e.publish(ctx, g.ID(), newRunStarted(g.ID(), runID, len(nodes), false))

	upstream := make([]protocol.NodeOutput, 0, len(nodes))

	for _, node := range nodes {
		if ctx.Err() != nil {
			result.Status = models.RunCancelled

			break
		}

		outcome := e.runNode(ctx, g, runID, node, upstream)
		result.NodeStatuses[node.ID] = outcome.status

		if outcome.cancelled {
			result.Status = models.RunCancelled

			break
		}

		if outcome.err != nil {
			result.Status = models.RunFailed
			result.FailedNodeID = node.ID
			result.FailedNodeLabel = node.Config.Label
			result.Error = outcome.err.Error()

			break
		}

		upstream = append(upstream, outcome.output)
	}

	result.FinishedAt = time.Now().UTC()
	duration := result.FinishedAt.Sub(started)

	otelhelper.RecordRun(span, result)

	switch result.Status {
	case models.RunSuccess:
		logger.InfoContext(ctx, "Pipeline run completed", "duration", duration)
		e.publish(ctx, g.ID(), newRunCompleted(g.ID(), runID, duration, false))
	case models.RunFailed:
		logger.WarnContext(ctx, "Pipeline run failed", "node_id", result.FailedNodeID, "error", result.Error)
		e.publish(ctx, g.ID(), newRunFailed(g.ID(), runID, result, duration, false))
	case models.RunCancelled:
		logger.InfoContext(ctx, "Pipeline run cancelled", "duration", duration)
		e.publish(context.WithoutCancel(ctx), g.ID(), newRunCancelled(g.ID(), runID, duration, false))
	}

	return result, nil
}

// TestNode runs a single node with the same executor a full run uses. Other
// nodes keep their status.
func (e *Engine) TestNode(ctx context.Context, g *pipeline.Graph, nodeID string) (models.NodeRunResult, error) {
	node, err := g.Node(nodeID)
	if err != nil {
		return models.NodeRunResult{}, err
	}

	runID := uuid.NewString()

	if err := e.acquire(g.ID(), runID); err != nil {
		return models.NodeRunResult{}, err
	}
	defer e.release(g.ID())

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "pipeline.test_node",
		attribute.String(otelhelper.PipelineIDKey, g.ID()),
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.Bool(otelhelper.RunTestKey, true),
	)
	defer span.End()

	started := time.Now()
	e.publish(ctx, g.ID(), newRunStarted(g.ID(), runID, 1, true))

	outcome := e.runNode(ctx, g, runID, node, nil)

	result := models.NodeRunResult{
		NodeID: nodeID,
		Status: outcome.status,
		Fields: outcome.output.Fields,
	}

	switch {
	case outcome.cancelled:
		e.publish(context.WithoutCancel(ctx), g.ID(), newRunCancelled(g.ID(), runID, time.Since(started), true))
	case outcome.err != nil:
		result.Error = outcome.err.Error()
		otelhelper.RecordNodeFailure(span, outcome.err)
		e.publish(ctx, g.ID(), newRunFailed(g.ID(), runID, models.RunResult{
			FailedNodeID:    node.ID,
			FailedNodeLabel: node.Config.Label,
			Error:           result.Error,
		}, time.Since(started), true))
	default:
		e.publish(ctx, g.ID(), newRunCompleted(g.ID(), runID, time.Since(started), true))
	}

	return result, nil
}

// Readiness lists the document AI nodes that would fail their readiness
// check, in creation order.
func (e *Engine) Readiness(g *pipeline.Graph) []models.ReadinessIssue {
	issues := []models.ReadinessIssue{}

	for _, node := range g.NodesInCreationOrder() {
		if !node.Kind.IsDocumentAI() {
			continue
		}

		missing := []string{"project", "file"}

		if settings := node.Config.DocumentAI(); settings != nil {
			ready, m := settings.Ready()
			if ready {
				continue
			}

			missing = m
		}

		issues = append(issues, models.ReadinessIssue{
			NodeID:  node.ID,
			Label:   node.Config.Label,
			Missing: missing,
		})
	}

	return issues
}

// Running reports the id of the run in progress for a pipeline.
func (e *Engine) Running(pipelineID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID, ok := e.active[pipelineID]

	return runID, ok
}

func (e *Engine) orderNodes(snapshot *pipeline.Graph) ([]models.Node, error) {
	if e.order == OrderTopological {
		return snapshot.TopologicalOrder()
	}

	return snapshot.NodesInCreationOrder(), nil
}

func (e *Engine) acquire(pipelineID, runID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if current, ok := e.active[pipelineID]; ok {
		return fmt.Errorf("%w: pipeline %s is running %s", ErrRunInProgress, pipelineID, current)
	}

	e.active[pipelineID] = runID

	return nil
}

func (e *Engine) release(pipelineID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.active, pipelineID)
}

func IsRunInProgress(err error) bool {
	return errors.Is(err, ErrRunInProgress)
}

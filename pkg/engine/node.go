package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/otelhelper"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/protocol"
)

type outcome struct {
	status    models.NodeStatus
	output    protocol.NodeOutput
	err       error
	cancelled bool
}

// runNode takes one node through running and then success or error, writing
// every status change back to the live graph. A node interrupted by
// cancellation stays running.
func (e *Engine) runNode(ctx context.Context, g *pipeline.Graph, runID string, node models.Node, upstream []protocol.NodeOutput) outcome {
	logger := e.logger.With("pipeline_id", g.ID(), "run_id", runID, "node_id", node.ID, "node_kind", node.Kind)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "pipeline.node",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind)),
		attribute.String(otelhelper.NodeLabelKey, node.Config.Label),
	)
	defer span.End()

	started := time.Now()

	e.writeBack(ctx, logger, g.SetStatus(node.ID, models.StatusRunning, ""))
	e.publish(ctx, g.ID(), newNodeRunning(g.ID(), runID, node))

	output, err := e.execute(ctx, g.ID(), runID, node, upstream)
	duration := time.Since(started)

	if err != nil && ctx.Err() != nil {
		logger.InfoContext(ctx, "Node interrupted by cancellation")

		return outcome{status: models.StatusRunning, err: err, cancelled: true}
	}

	if err != nil {
		logger.WarnContext(ctx, "Node failed", "error", err, "duration", duration)
		otelhelper.RecordNodeFailure(span, err)

		e.writeBack(ctx, logger, g.SetStatus(node.ID, models.StatusError, err.Error()))
		e.publish(ctx, g.ID(), newNodeFailed(g.ID(), runID, node, err, duration))

		return outcome{status: models.StatusError, err: err}
	}

	stale := false

	if node.Kind.IsDocumentAI() {
		span.SetAttributes(attribute.Int(otelhelper.FieldCountKey, len(output.Fields)))

		err := g.SetExtractionResult(node.ID, documentFileID(node), output.Fields)
		stale = errors.Is(err, pipeline.ErrStaleResult)

		if !stale {
			e.writeBack(ctx, logger, err)
		}
	}

	// A document replaced mid-run leaves the node as the upload reset it.
	if stale {
		logger.WarnContext(ctx, "Dropping extraction of a replaced document")
	} else {
		e.writeBack(ctx, logger, g.SetStatus(node.ID, models.StatusSuccess, ""))
	}

	e.publish(ctx, g.ID(), newNodeSucceeded(g.ID(), runID, node, len(output.Fields), duration))

	logger.InfoContext(ctx, "Node succeeded", "duration", duration, "fields", len(output.Fields))

	return outcome{status: models.StatusSuccess, output: output}
}

func (e *Engine) execute(ctx context.Context, pipelineID, runID string, node models.Node, upstream []protocol.NodeOutput) (protocol.NodeOutput, error) {
	executor, err := e.nodes.CreateNode(ctx, node)
	if err != nil {
		return protocol.NodeOutput{}, fmt.Errorf("failed to create executor for %s: %w", node.Kind, err)
	}

	return executor.Execute(ctx, protocol.ExecutionRequest{
		RunID:      runID,
		PipelineID: pipelineID,
		Node:       node,
		Upstream:   upstream,
	})
}

// writeBack logs a failed update of the live graph. Nodes removed while the
// run is in flight are expected to miss their updates.
func (e *Engine) writeBack(ctx context.Context, logger *slog.Logger, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, pipeline.ErrNodeNotFound) {
		logger.WarnContext(ctx, "Dropping update for node removed during the run")

		return
	}

	logger.ErrorContext(ctx, "Failed to update node", "error", err)
}

func documentFileID(node models.Node) string {
	if settings := node.Config.DocumentAI(); settings != nil && settings.File != nil {
		return settings.File.ID
	}

	return ""
}

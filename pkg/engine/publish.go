package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/idpflow/pkg/eventbus"
	"github.com/dukex/idpflow/pkg/events"
	"github.com/dukex/idpflow/pkg/models"
)

func (e *Engine) publish(ctx context.Context, pipelineID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, pipelineID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "pipeline_id", pipelineID, "error", err)
	}
}

func base(eventType events.EventType, pipelineID, runID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		PipelineID: pipelineID,
		RunID:      runID,
	}
}

func nodeEvent(eventType events.EventType, pipelineID, runID string, node models.Node) events.NodeEvent {
	return events.NodeEvent{
		BaseEvent: base(eventType, pipelineID, runID),
		NodeID:    node.ID,
		Label:     node.Config.Label,
		Kind:      node.Kind,
	}
}

func runBase(eventType events.EventType, pipelineID, runID string, test bool) events.BaseEvent {
	b := base(eventType, pipelineID, runID)
	b.TestRun = test

	return b
}

func newRunStarted(pipelineID, runID string, nodes int, test bool) events.RunStarted {
	return events.RunStarted{
		BaseEvent: runBase(events.RunStartedEvent, pipelineID, runID, test),
		NodeCount: nodes,
	}
}

func newRunCompleted(pipelineID, runID string, duration time.Duration, test bool) events.RunCompleted {
	return events.RunCompleted{
		BaseEvent: runBase(events.RunCompletedEvent, pipelineID, runID, test),
		Duration:  duration,
	}
}

func newRunFailed(pipelineID, runID string, result models.RunResult, duration time.Duration, test bool) events.RunFailed {
	return events.RunFailed{
		BaseEvent:       runBase(events.RunFailedEvent, pipelineID, runID, test),
		FailedNodeID:    result.FailedNodeID,
		FailedNodeLabel: result.FailedNodeLabel,
		Error:           result.Error,
		Duration:        duration,
	}
}

func newRunCancelled(pipelineID, runID string, duration time.Duration, test bool) events.RunCancelled {
	return events.RunCancelled{
		BaseEvent: runBase(events.RunCancelledEvent, pipelineID, runID, test),
		Duration:  duration,
	}
}

func newNodeRunning(pipelineID, runID string, node models.Node) events.NodeRunning {
	return events.NodeRunning{NodeEvent: nodeEvent(events.NodeRunningEvent, pipelineID, runID, node)}
}

func newNodeSucceeded(pipelineID, runID string, node models.Node, fields int, duration time.Duration) events.NodeSucceeded {
	return events.NodeSucceeded{
		NodeEvent:  nodeEvent(events.NodeSucceededEvent, pipelineID, runID, node),
		FieldCount: fields,
		Duration:   duration,
	}
}

func newNodeFailed(pipelineID, runID string, node models.Node, err error, duration time.Duration) events.NodeFailed {
	return events.NodeFailed{
		NodeEvent: nodeEvent(events.NodeFailedEvent, pipelineID, runID, node),
		Error:     err.Error(),
		Duration:  duration,
	}
}

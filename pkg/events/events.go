// Package events defines the notifications emitted while a pipeline runs.
package events

import (
	"time"

	"github.com/dukex/idpflow/pkg/models"
)

type EventType string

// Topic carries every pipeline event.
const Topic = "pipeline.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunCancelledEvent EventType = "run.cancelled"

	NodeRunningEvent   EventType = "node.running"
	NodeSucceededEvent EventType = "node.succeeded"
	NodeFailedEvent    EventType = "node.failed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	PipelineID string    `json:"pipeline_id"`
	RunID      string    `json:"run_id"`

	// TestRun marks run events of a single node test.
	TestRun bool `json:"test_run,omitempty"`
}

type RunStarted struct {
	BaseEvent

	NodeCount int `json:"node_count"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	FailedNodeID    string        `json:"failed_node_id"`
	FailedNodeLabel string        `json:"failed_node_label"`
	Error           string        `json:"error"`
	Duration        time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunCancelled struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

// NodeEvent is the common part of node status notifications.
type NodeEvent struct {
	BaseEvent

	NodeID string          `json:"node_id"`
	Label  string          `json:"label"`
	Kind   models.NodeKind `json:"kind"`
}

type NodeRunning struct {
	NodeEvent
}

func (e NodeRunning) GetType() EventType {
	return NodeRunningEvent
}

type NodeSucceeded struct {
	NodeEvent

	FieldCount int           `json:"field_count,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (e NodeSucceeded) GetType() EventType {
	return NodeSucceededEvent
}

type NodeFailed struct {
	NodeEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

// New returns the typed zero value for an event type, or nil if unknown.
func New(eventType EventType) any {
	switch eventType {
	case RunStartedEvent:
		return &RunStarted{}
	case RunCompletedEvent:
		return &RunCompleted{}
	case RunFailedEvent:
		return &RunFailed{}
	case RunCancelledEvent:
		return &RunCancelled{}
	case NodeRunningEvent:
		return &NodeRunning{}
	case NodeSucceededEvent:
		return &NodeSucceeded{}
	case NodeFailedEvent:
		return &NodeFailed{}
	default:
		return nil
	}
}

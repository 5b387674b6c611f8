package models

import "time"

// PipelineDocument is the persisted form of a pipeline graph.
type PipelineDocument struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	NextNodeSeq int       `json:"next_node_seq"`
	NextEdgeSeq int       `json:"next_edge_seq"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RunStatus string

const (
	RunSuccess   RunStatus = "success"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunResult summarizes one execution of a pipeline.
type RunResult struct {
	RunID           string                `json:"run_id"`
	PipelineID      string                `json:"pipeline_id"`
	Status          RunStatus             `json:"status"`
	FailedNodeID    string                `json:"failed_node_id,omitempty"`
	FailedNodeLabel string                `json:"failed_node_label,omitempty"`
	Error           string                `json:"error,omitempty"`
	NodeStatuses    map[string]NodeStatus `json:"node_statuses"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}

// NodeRunResult is the outcome of testing a single node.
type NodeRunResult struct {
	NodeID string     `json:"node_id"`
	Status NodeStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Fields []Field    `json:"fields,omitempty"`
}

// ReadinessIssue lists what a node is missing before it can run.
type ReadinessIssue struct {
	NodeID  string   `json:"node_id"`
	Label   string   `json:"label"`
	Missing []string `json:"missing"`
}

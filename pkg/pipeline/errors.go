package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates a node id that is not part of the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates an edge id that is not part of the graph.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrUnknownKind indicates a node kind outside the catalog.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrSelfLoop indicates an edge whose source and target are the same node.
	ErrSelfLoop = errors.New("edge cannot connect a node to itself")

	// ErrCycle indicates the edges do not form a DAG.
	ErrCycle = errors.New("pipeline contains a cycle")

	// ErrInvalidConfiguration indicates a configuration update that does not fit the node.
	ErrInvalidConfiguration = errors.New("invalid node configuration")

	// ErrFieldNotFound indicates an extracted field id that is not on the node.
	ErrFieldNotFound = errors.New("field not found")

	// ErrStaleResult indicates an extraction of a document the node no longer holds.
	ErrStaleResult = errors.New("extraction result belongs to a replaced document")
)

// NodeError wraps node-related errors with the operation and node id.
type NodeError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func nodeError(op, nodeID string, err error) error {
	return &NodeError{Op: op, NodeID: nodeID, Err: err}
}

// IsNotFound reports whether err refers to a missing node, edge or field.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound) || errors.Is(err, ErrFieldNotFound)
}

// IsValidation reports whether err was caused by a rejected graph or configuration change.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrSelfLoop) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrInvalidConfiguration)
}

package models

// NodeStatus is the execution state of a node.
type NodeStatus string

const (
	StatusIdle    NodeStatus = "idle"
	StatusRunning NodeStatus = "running"
	StatusSuccess NodeStatus = "success"
	StatusError   NodeStatus = "error"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a step on the pipeline canvas.
type Node struct {
	ID         string        `json:"id"`
	Kind       NodeKind      `json:"kind"`
	Position   Position      `json:"position"`
	Config     Configuration `json:"config"`
	CreatedSeq int           `json:"created_seq"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Config = n.Config.Clone()

	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

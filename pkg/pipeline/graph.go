// Package pipeline implements the pipeline graph and the per-node configuration store.
package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/idpflow/pkg/models"
)

const (
	nodeIDPrefix = "dndnode_"
	edgeIDPrefix = "edge_"
)

// Graph is a pipeline: nodes in creation order and directed edges between them.
// All methods are safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	id          string
	name        string
	nodes       []*models.Node
	index       map[string]*models.Node
	edges       []models.Edge
	nextNodeSeq int
	nextEdgeSeq int
	createdAt   time.Time
	updatedAt   time.Time
}

// DropPayload is what a palette item carries when dropped on the canvas.
type DropPayload struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// New creates an empty graph.
func New(id, name string) *Graph {
	now := time.Now().UTC()

	return &Graph{
		id:        id,
		name:      name,
		index:     make(map[string]*models.Node),
		createdAt: now,
		updatedAt: now,
	}
}

// FromDocument rebuilds a graph from its persisted form.
func FromDocument(doc models.PipelineDocument) (*Graph, error) {
	g := &Graph{
		id:          doc.ID,
		name:        doc.Name,
		index:       make(map[string]*models.Node, len(doc.Nodes)),
		nextNodeSeq: doc.NextNodeSeq,
		nextEdgeSeq: doc.NextEdgeSeq,
		createdAt:   doc.CreatedAt,
		updatedAt:   doc.UpdatedAt,
	}

	for _, node := range doc.Nodes {
		if !node.Kind.Valid() {
			return nil, nodeError("load", node.ID, fmt.Errorf("%w: %q", ErrUnknownKind, node.Kind))
		}

		if node.Config.Settings == nil {
			node.Config.Settings = node.Kind.NewSettings()
		}

		if node.Config.Settings.Family() != node.Kind.Family() {
			return nil, nodeError("load", node.ID, ErrInvalidConfiguration)
		}

		if node.Config.Status == "" {
			node.Config.Status = models.StatusIdle
		}

		n := node.Clone()
		g.nodes = append(g.nodes, &n)
		g.index[n.ID] = &n
	}

	for _, edge := range doc.Edges {
		if g.index[edge.Source] == nil || g.index[edge.Target] == nil {
			return nil, fmt.Errorf("edge %s: %w", edge.ID, ErrNodeNotFound)
		}

		g.edges = append(g.edges, edge)
	}

	return g, nil
}

// Document returns the persisted form of the graph.
func (g *Graph) Document() models.PipelineDocument {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return models.PipelineDocument{
		ID:          g.id,
		Name:        g.name,
		Nodes:       g.cloneNodes(),
		Edges:       slices.Clone(g.edges),
		NextNodeSeq: g.nextNodeSeq,
		NextEdgeSeq: g.nextEdgeSeq,
		CreatedAt:   g.createdAt,
		UpdatedAt:   g.updatedAt,
	}
}

func (g *Graph) ID() string {
	return g.id
}

func (g *Graph) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.name
}

// AddNode appends a node of the given kind with an empty configuration. An
// empty label falls back to the catalog label of the kind.
func (g *Graph) AddNode(kind models.NodeKind, label string, position models.Position) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = kind.Label()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seq := g.nextNodeSeq
	g.nextNodeSeq++

	node := &models.Node{
		ID:       fmt.Sprintf("%s%d", nodeIDPrefix, seq),
		Kind:     kind,
		Position: position,
		Config: models.Configuration{
			Label:    label,
			Status:   models.StatusIdle,
			Settings: kind.NewSettings(),
		},
		CreatedSeq: seq,
	}

	g.nodes = append(g.nodes, node)
	g.index[node.ID] = node
	g.touch()

	return node.ID, nil
}

// Drop adds a node from a palette drop. A payload without a type is ignored.
func (g *Graph) Drop(payload DropPayload, position models.Position) (string, bool, error) {
	if payload.Type == "" {
		return "", false, nil
	}

	id, err := g.AddNode(models.NodeKind(payload.Type), payload.Label, position)
	if err != nil {
		return "", false, err
	}

	return id, true, nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index[id] == nil {
		return nodeError("remove", id, ErrNodeNotFound)
	}

	delete(g.index, id)
	g.nodes = slices.DeleteFunc(g.nodes, func(n *models.Node) bool { return n.ID == id })
	g.edges = slices.DeleteFunc(g.edges, func(e models.Edge) bool { return e.Source == id || e.Target == id })
	g.touch()

	return nil
}

// Connect adds an edge from source to target. Connecting an already connected
// pair returns the existing edge.
func (g *Graph) Connect(source, target string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index[source] == nil {
		return "", nodeError("connect", source, ErrNodeNotFound)
	}

	if g.index[target] == nil {
		return "", nodeError("connect", target, ErrNodeNotFound)
	}

	if source == target {
		return "", nodeError("connect", source, ErrSelfLoop)
	}

	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			return e.ID, nil
		}
	}

	edge := models.Edge{
		ID:     fmt.Sprintf("%s%d", edgeIDPrefix, g.nextEdgeSeq),
		Source: source,
		Target: target,
	}
	g.nextEdgeSeq++
	g.edges = append(g.edges, edge)
	g.touch()

	return edge.ID, nil
}

func (g *Graph) Disconnect(edgeID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	before := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e models.Edge) bool { return e.ID == edgeID })

	if len(g.edges) == before {
		return fmt.Errorf("disconnect %s: %w", edgeID, ErrEdgeNotFound)
	}

	g.touch()

	return nil
}

func (g *Graph) MoveNode(id string, position models.Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.index[id]
	if node == nil {
		return nodeError("move", id, ErrNodeNotFound)
	}

	node.Position = position
	g.touch()

	return nil
}

// Clear removes every node and edge. Id counters keep counting.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = nil
	g.edges = nil
	g.index = make(map[string]*models.Node)
	g.touch()
}

// Node returns a copy of the node.
func (g *Graph) Node(id string) (models.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node := g.index[id]
	if node == nil {
		return models.Node{}, nodeError("get", id, ErrNodeNotFound)
	}

	return node.Clone(), nil
}

// NodesInCreationOrder returns copies of all nodes in the order they were added.
func (g *Graph) NodesInCreationOrder() []models.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cloneNodes()
}

func (g *Graph) Edges() []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Clone(g.edges)
}

// Incoming returns the edges whose target is id.
func (g *Graph) Incoming(id string) []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Edge

	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}

	return out
}

// Outgoing returns the edges whose source is id.
func (g *Graph) Outgoing(id string) []models.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Edge

	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}

	return out
}

// Snapshot returns a detached deep copy. Later changes to g are not visible
// through the snapshot.
func (g *Graph) Snapshot() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &Graph{
		id:          g.id,
		name:        g.name,
		index:       make(map[string]*models.Node, len(g.nodes)),
		edges:       slices.Clone(g.edges),
		nextNodeSeq: g.nextNodeSeq,
		nextEdgeSeq: g.nextEdgeSeq,
		createdAt:   g.createdAt,
		updatedAt:   g.updatedAt,
	}

	for _, n := range g.nodes {
		node := n.Clone()
		s.nodes = append(s.nodes, &node)
		s.index[node.ID] = &node
	}

	return s
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

func (g *Graph) cloneNodes() []models.Node {
	out := make([]models.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}

	return out
}

func (g *Graph) touch() {
	g.updatedAt = time.Now().UTC()
}

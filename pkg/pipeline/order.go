package pipeline

import (
	"fmt"

	"github.com/dukex/idpflow/pkg/models"
)

// TopologicalOrder returns the nodes ordered so every edge source precedes its
// target. Among nodes that are ready at the same time, the earliest created
// goes first.
func (g *Graph) TopologicalOrder() ([]models.Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	depCount := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))

	for _, e := range g.edges {
		depCount[e.Target]++
		dependents[e.Source] = append(dependents[e.Source], e.Target)
	}

	done := make(map[string]bool, len(g.nodes))
	order := make([]models.Node, 0, len(g.nodes))

	// Nodes are few; rescanning in creation order keeps ties stable.
	for len(order) < len(g.nodes) {
		var next *models.Node

		for _, n := range g.nodes {
			if !done[n.ID] && depCount[n.ID] == 0 {
				next = n

				break
			}
		}

		if next == nil {
			return nil, fmt.Errorf("%w: %d nodes unreachable", ErrCycle, len(g.nodes)-len(order))
		}

		done[next.ID] = true
		order = append(order, next.Clone())

		for _, target := range dependents[next.ID] {
			depCount[target]--
		}
	}

	return order, nil
}

package pipeline

import (
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
)

// ExportText renders the pipeline as a line-flattened textual view:
// nodes in flow order (topological over the connections, creation
// order breaking ties), then connections in creation order. The text
// is a one-way view and is never parsed back into a graph.
func (s *Store) ExportText() string {
	s.mu.RLock()
	nodes := s.nodesLocked()
	edges := s.edgesLocked()
	md := s.metadata
	index := make(map[string]int, len(s.nodeOrder))
	for i, id := range s.nodeOrder {
		index[id] = i
	}
	order, err := graph.StableTopologicalSort(s.mirror, func(a, b string) bool {
		return index[a] < index[b]
	})
	s.mu.RUnlock()

	if err != nil {
		// CreateEdge cannot produce a cycle the compatibility table
		// disallows, but an imported document can; fall back to
		// creation order.
		order = make([]string, 0, len(nodes))
		for _, n := range nodes {
			order = append(order, n.ID)
		}
	}

	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pipeline: %s (version %s)\n", md.Name, md.Version)
	b.WriteString("flow:\n")
	for i, id := range order {
		n := byID[id]
		fmt.Fprintf(&b, "  %d. [%s/%s] %s (%s, %s)\n", i+1, n.Category, n.Subtype, n.Name, n.ID, n.Status)
	}
	b.WriteString("connections:\n")
	for _, e := range edges {
		fmt.Fprintf(&b, "  %s -> %s [%s]\n", e.From, e.To, e.Type)
	}

	metrics.RecordExport("text")
	return b.String()
}

// ExportScript renders the pipeline as a procedural listing of store
// calls, one statement per node and per edge in creation order. Like
// ExportText it is a one-way view only.
func (s *Store) ExportScript() string {
	nodes, edges, md := s.snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "// pipeline: %s (version %s)\n", md.Name, md.Version)
	for _, n := range nodes {
		fmt.Fprintf(&b, "store.CreateNode(ctx, %q, %q, %s, %s) // %s\n",
			n.Category, n.Subtype, formatCoord(n.Position.X), formatCoord(n.Position.Y), n.ID)
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "store.CreateEdge(ctx, %q, %q) // %s (%s)\n", e.From, e.To, e.ID, e.Type)
	}

	metrics.RecordExport("script")
	return b.String()
}

// formatCoord prints a canvas coordinate without trailing zeros.
func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}

package library

import (
	"github.com/UjwalAKrishna/drawrag-core/pkg/pipeline"
	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// Stats aggregates every pipeline stored in the library.
type Stats struct {
	// Pipelines is the number of stored pipelines
	Pipelines int `json:"pipelines"`

	// ComponentUses counts components across all pipelines, keyed
	// category/subtype
	ComponentUses map[string]int `json:"componentUses,omitempty"`

	// Complexity summarizes pipeline sizes
	Complexity ComplexityStats `json:"complexity"`

	// Health summarizes pipeline health scores
	Health HealthStats `json:"health"`
}

// ComplexityStats summarizes component and connection counts across
// the library.
type ComplexityStats struct {
	MinComponents  int     `json:"minComponents"`
	MaxComponents  int     `json:"maxComponents"`
	AvgComponents  float64 `json:"avgComponents"`
	MinConnections int     `json:"minConnections"`
	MaxConnections int     `json:"maxConnections"`
	AvgConnections float64 `json:"avgConnections"`
}

// HealthStats summarizes health scores across the library.
type HealthStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Stats computes aggregate statistics over every stored pipeline. An
// empty library yields zero values throughout.
func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{Pipelines: len(l.entries)}
	if len(l.entries) == 0 {
		return stats
	}

	stats.ComponentUses = make(map[string]int)

	var sumComponents, sumConnections int
	var sumHealth float64
	for i, id := range l.order {
		doc := l.entries[id]
		components := len(doc.Components)
		connections := len(doc.Connections)
		score := HealthScore(doc, l.reg)

		sumComponents += components
		sumConnections += connections
		sumHealth += score

		if i == 0 {
			stats.Complexity.MinComponents = components
			stats.Complexity.MaxComponents = components
			stats.Complexity.MinConnections = connections
			stats.Complexity.MaxConnections = connections
			stats.Health.Min = score
			stats.Health.Max = score
		} else {
			stats.Complexity.MinComponents = min(stats.Complexity.MinComponents, components)
			stats.Complexity.MaxComponents = max(stats.Complexity.MaxComponents, components)
			stats.Complexity.MinConnections = min(stats.Complexity.MinConnections, connections)
			stats.Complexity.MaxConnections = max(stats.Complexity.MaxConnections, connections)
			stats.Health.Min = min(stats.Health.Min, score)
			stats.Health.Max = max(stats.Health.Max, score)
		}

		for _, c := range doc.Components {
			stats.ComponentUses[string(c.Category)+"/"+c.Subtype]++
		}
	}

	n := float64(len(l.order))
	stats.Complexity.AvgComponents = float64(sumComponents) / n
	stats.Complexity.AvgConnections = float64(sumConnections) / n
	stats.Health.Avg = sumHealth / n
	return stats
}

// HealthScore scores a document between 0.0 and 1.0 as the fraction
// of structural checks passed: one check for the presence of the
// required categories (datasource, vectordb, llm), one per component
// for a definition known to the registry, and one for connection
// endpoint integrity when any connections exist. A nil or empty
// document scores 0.0.
func HealthScore(doc *pipeline.Document, reg registry.Registry) float64 {
	if doc == nil {
		return 0
	}

	total, passed := 0, 0

	total++
	present := make(map[pipeline.Category]bool, len(doc.Components))
	for _, c := range doc.Components {
		present[c.Category] = true
	}
	if present[pipeline.CategoryDataSource] && present[pipeline.CategoryVectorDB] && present[pipeline.CategoryLLM] {
		passed++
	}

	for _, c := range doc.Components {
		total++
		if reg == nil {
			continue
		}
		if _, ok := reg.Lookup(string(c.Category), c.Subtype); ok {
			passed++
		}
	}

	if len(doc.Connections) > 0 {
		total++
		ids := make(map[string]bool, len(doc.Components))
		for _, c := range doc.Components {
			ids[c.ID] = true
		}
		intact := true
		for _, conn := range doc.Connections {
			if !ids[conn.From] || !ids[conn.To] {
				intact = false
				break
			}
		}
		if intact {
			passed++
		}
	}

	return float64(passed) / float64(total)
}

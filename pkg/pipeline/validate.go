package pipeline

import (
	"fmt"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
)

// Report is the result of validating a pipeline snapshot.
type Report struct {
	// Valid is true when no blocking issue was found. Warnings never
	// affect it.
	Valid bool `json:"valid"`

	// Issues are blocking findings
	Issues []Finding `json:"issues,omitempty"`

	// Warnings are advisory findings
	Warnings []Finding `json:"warnings,omitempty"`
}

// requiredCategories are the categories every runnable pipeline needs.
// embedding is optional; some vector stores embed internally.
var requiredCategories = []Category{CategoryDataSource, CategoryVectorDB, CategoryLLM}

// ValidatePipeline checks the current graph against the structural
// rules: every required category is present, every node is configured,
// and a multi-node graph has at least one connection. It is pull-based
// and performs no I/O; semantic checks (reachability of a database,
// validity of an api key) belong to external collaborators.
func (s *Store) ValidatePipeline() Report {
	nodes, edges, _ := s.snapshot()

	var report Report

	present := make(map[Category]bool, len(nodes))
	for _, n := range nodes {
		present[n.Category] = true
	}
	for _, cat := range requiredCategories {
		if !present[cat] {
			report.Issues = append(report.Issues, Finding{
				Path:     string(cat),
				Message:  fmt.Sprintf("no %s node exists", cat),
				Severity: SeverityError,
			})
		}
	}

	for _, n := range nodes {
		if n.Status == StatusUnconfigured {
			report.Issues = append(report.Issues, Finding{
				Path:     n.ID,
				Message:  fmt.Sprintf("node %s (%s) is not configured", n.ID, n.Name),
				Severity: SeverityError,
			})
		}
	}

	if len(nodes) > 1 && len(edges) == 0 {
		report.Warnings = append(report.Warnings, Finding{
			Path:     "connections",
			Message:  "components are not connected",
			Severity: SeverityWarning,
		})
	}

	report.Valid = len(report.Issues) == 0
	metrics.RecordValidation(report.Valid, len(report.Issues), len(report.Warnings))
	return report
}

// HealthScore scores the pipeline between 0.0 and 1.0 as the fraction
// of structural checks passed: one check for required-category
// presence, one per node for a known definition, and one for edge
// endpoint integrity when edges exist.
func (s *Store) HealthScore() float64 {
	nodes, edges, _ := s.snapshot()

	total, passed := 0, 0

	total++
	present := make(map[Category]bool, len(nodes))
	for _, n := range nodes {
		present[n.Category] = true
	}
	allPresent := true
	for _, cat := range requiredCategories {
		if !present[cat] {
			allPresent = false
			break
		}
	}
	if allPresent {
		passed++
	}

	for _, n := range nodes {
		total++
		if _, ok := s.reg.Lookup(string(n.Category), n.Subtype); ok {
			passed++
		}
	}

	if len(edges) > 0 {
		total++
		ids := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			ids[n.ID] = true
		}
		intact := true
		for _, e := range edges {
			if !ids[e.From] || !ids[e.To] {
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

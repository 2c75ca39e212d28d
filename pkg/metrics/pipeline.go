package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ResultSuccess labels an operation that completed
	ResultSuccess = "success"

	// ResultFailure labels an operation that returned an error
	ResultFailure = "failure"
)

var (
	// Graph store metrics
	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_store_mutations_total",
		Help: "Total number of graph store mutations",
	}, []string{"operation", "result"})

	mutationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drawrag_store_mutation_duration_seconds",
		Help:    "Duration of graph store mutations",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12), // 10µs to ~40ms
	}, []string{"operation"})

	graphNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drawrag_graph_nodes",
		Help: "Current number of nodes in the graph store",
	})

	graphEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drawrag_graph_edges",
		Help: "Current number of edges in the graph store",
	})

	libraryPipelines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drawrag_library_pipelines",
		Help: "Current number of pipelines stored in the library",
	})

	// Validation metrics
	validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_validations_total",
		Help: "Total number of pipeline validation runs",
	}, []string{"result"})

	validationFindingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_validation_findings_total",
		Help: "Total number of validation findings reported",
	}, []string{"severity"})

	// Change notifier metrics
	deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_bus_deliveries_total",
		Help: "Total number of event deliveries to listeners",
	}, []string{"event", "result"})

	// Import/export metrics
	importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_document_imports_total",
		Help: "Total number of pipeline document imports",
	}, []string{"result"})

	importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drawrag_document_import_duration_seconds",
		Help:    "Duration of pipeline document imports",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10), // 100µs to ~50ms
	})

	exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_exports_total",
		Help: "Total number of pipeline exports by format",
	}, []string{"format"})
)

func init() {
	prometheus.MustRegister(
		mutationsTotal,
		mutationDuration,
		graphNodes,
		graphEdges,
		libraryPipelines,
		validationsTotal,
		validationFindingsTotal,
		deliveriesTotal,
		importsTotal,
		importDuration,
		exportsTotal,
	)
}

// RecordMutation records a graph store mutation
// operation: "create_node", "update_config", "set_status", "move_node",
// "delete_node", "create_edge", "delete_edge", or "clear"
// result: ResultSuccess or ResultFailure
func RecordMutation(operation, result string, durationSeconds float64) {
	mutationsTotal.WithLabelValues(operation, result).Inc()
	mutationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// SetGraphSize updates the node and edge gauges
func SetGraphSize(nodes, edges int) {
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
}

// SetLibrarySize updates the stored pipeline gauge
func SetLibrarySize(n int) {
	libraryPipelines.Set(float64(n))
}

// RecordValidation records a pipeline validation run
func RecordValidation(valid bool, issues, warnings int) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	validationsTotal.WithLabelValues(result).Inc()
	validationFindingsTotal.WithLabelValues("Error").Add(float64(issues))
	validationFindingsTotal.WithLabelValues("Warning").Add(float64(warnings))
}

// RecordDelivery records one event delivery to one listener
func RecordDelivery(event, result string) {
	deliveriesTotal.WithLabelValues(event, result).Inc()
}

// RecordImport records a pipeline document import
func RecordImport(result string, durationSeconds float64) {
	importsTotal.WithLabelValues(result).Inc()
	importDuration.Observe(durationSeconds)
}

// RecordExport records a pipeline export
// format: "document", "text", or "script"
func RecordExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}

package pipeline

import (
	"time"
)

// Category is the functional role of a node, governing which
// connections it may participate in
type Category string

const (
	// CategoryDataSource produces raw documents
	CategoryDataSource Category = "datasource"

	// CategoryEmbedding turns documents into vectors
	CategoryEmbedding Category = "embedding"

	// CategoryVectorDB stores and retrieves vectors
	CategoryVectorDB Category = "vectordb"

	// CategoryLLM generates answers; terminal, nothing may follow it
	CategoryLLM Category = "llm"
)

// Categories lists every valid category in pipeline flow order.
func Categories() []Category {
	return []Category{CategoryDataSource, CategoryEmbedding, CategoryVectorDB, CategoryLLM}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryDataSource, CategoryEmbedding, CategoryVectorDB, CategoryLLM:
		return true
	}
	return false
}

// Status is a node's configuration readiness, or an externally
// reported runtime state
type Status string

const (
	// StatusUnconfigured means at least one required field is missing
	StatusUnconfigured Status = "unconfigured"

	// StatusConfigured means every required field is present and non-empty
	StatusConfigured Status = "configured"

	// StatusError is written only by external collaborators, for
	// example a failed connection test
	StatusError Status = "error"

	// StatusProcessing is written only by external collaborators while
	// a node is busy
	StatusProcessing Status = "processing"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusUnconfigured, StatusConfigured, StatusError, StatusProcessing:
		return true
	}
	return false
}

// Config is a node's configuration: string keys to primitive values
// (string, number, bool, or string slice). Only required-field
// presence is ever validated, not value semantics.
type Config map[string]any

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies slice values, including the []any form JSON
// decoding produces; everything else is a primitive and copies by
// assignment.
func cloneValue(v any) any {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		return append([]any(nil), vv...)
	}
	return v
}

// Position is a node's placement on the canvas
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single typed stage in the pipeline
type Node struct {
	// ID uniquely identifies the node within its store ("node-<n>")
	ID string `json:"id"`

	// Category is the node's functional role
	Category Category `json:"category"`

	// Subtype selects the concrete implementation within the category
	Subtype string `json:"subtype"`

	// Name is the display name, seeded from the component definition
	Name string `json:"name"`

	// Position is the canvas placement
	Position Position `json:"position"`

	// Config holds the node's configuration values
	Config Config `json:"config"`

	// Status is the derived or externally injected node status
	Status Status `json:"status"`

	// Inputs is the declared input port count
	Inputs int `json:"inputs,omitempty"`

	// Outputs is the declared output port count
	Outputs int `json:"outputs,omitempty"`
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Config = n.Config.Clone()
	return &out
}

// Edge is a directed connection between two nodes
type Edge struct {
	// ID uniquely identifies the edge within its store ("edge-<n>")
	ID string `json:"id"`

	// From is the source node id
	From string `json:"from"`

	// FromPort is the source output port index
	FromPort int `json:"fromPort,omitempty"`

	// To is the destination node id
	To string `json:"to"`

	// ToPort is the destination input port index
	ToPort int `json:"toPort,omitempty"`

	// Type is the symbolic connection-type label; display metadata
	// only, it never gates the connection
	Type string `json:"type"`

	// CreatedAt is when the edge was created
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of the edge
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	out := *e
	return &out
}

// Metadata describes the pipeline as a whole
type Metadata struct {
	// Name is a human-readable name for the pipeline
	Name string `json:"name"`

	// Description explains what the pipeline does
	Description string `json:"description,omitempty"`

	// Version is the pipeline document format version
	Version string `json:"version"`

	// CreatedAt is when the pipeline was created
	CreatedAt time.Time `json:"createdAt"`

	// LastModified is bumped by every structural or config mutation
	LastModified time.Time `json:"lastModified"`

	// ContentHash is a hash of the serialized graph for change
	// detection, set by Document.SetHash
	ContentHash string `json:"contentHash,omitempty"`
}

// Severity indicates how serious a validation finding is
type Severity string

const (
	// SeverityError indicates a blocking finding
	SeverityError Severity = "Error"

	// SeverityWarning indicates a non-blocking finding
	SeverityWarning Severity = "Warning"
)

// Finding is a single validation result
type Finding struct {
	// Path locates the subject of the finding, e.g. a node id or category
	Path string `json:"path"`

	// Message is a human-readable description
	Message string `json:"message"`

	// Severity indicates whether the finding blocks validity
	Severity Severity `json:"severity"`
}

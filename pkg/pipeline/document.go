package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
)

// Document is the portable serialized form of a pipeline: metadata
// plus components and connections in creation order. It is the only
// form that crosses the library boundary for persistence or transport.
type Document struct {
	// Metadata describes the pipeline
	Metadata Metadata `json:"metadata"`

	// Components are the nodes in creation order
	Components []Component `json:"components"`

	// Connections are the edges in creation order
	Connections []Connection `json:"connections"`
}

// Component is a node in document form.
type Component struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Subtype  string   `json:"subtype"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Config   Config   `json:"config"`
	Status   Status   `json:"status"`
}

// Connection is an edge in document form.
type Connection struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// ToDocument projects the current graph into its portable document
// form. The projection is pure: the document shares no state with the
// store.
func (s *Store) ToDocument() *Document {
	nodes, edges, md := s.snapshot()

	doc := &Document{
		Metadata:    md,
		Components:  make([]Component, 0, len(nodes)),
		Connections: make([]Connection, 0, len(edges)),
	}
	for _, n := range nodes {
		doc.Components = append(doc.Components, Component{
			ID:       n.ID,
			Category: n.Category,
			Subtype:  n.Subtype,
			Name:     n.Name,
			Position: n.Position,
			Config:   n.Config,
			Status:   n.Status,
		})
	}
	for _, e := range edges {
		doc.Connections = append(doc.Connections, Connection{
			ID:   e.ID,
			From: e.From,
			To:   e.To,
			Type: e.Type,
		})
	}
	metrics.RecordExport("document")
	return doc
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Metadata:    d.Metadata,
		Components:  make([]Component, len(d.Components)),
		Connections: make([]Connection, len(d.Connections)),
	}
	copy(out.Connections, d.Connections)
	for i, c := range d.Components {
		c.Config = c.Config.Clone()
		out.Components[i] = c
	}
	return out
}

// ComputeHash computes a hash of the document for change detection.
// Only components and connections are hashed; metadata is excluded so
// a timestamp bump alone never registers as a change.
func (d *Document) ComputeHash() string {
	type hashableDocument struct {
		Components  []Component  `json:"components"`
		Connections []Connection `json:"connections"`
	}

	h := hashableDocument{
		Components:  d.Components,
		Connections: d.Connections,
	}
	data, err := json.Marshal(h)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

// SetHash computes and sets the Metadata.ContentHash field.
func (d *Document) SetHash() {
	d.Metadata.ContentHash = d.ComputeHash()
}

// HasChanged returns true if the document differs from the previous
// content hash. An empty previous hash means there is no baseline, so
// it always reports true.
func (d *Document) HasChanged(previousHash string) bool {
	if previousHash == "" {
		return true
	}
	return d.ComputeHash() != previousHash
}

// Package library stores pipeline documents in memory, keyed by id.
// It is the save/load surface behind the canvas: documents are
// snapshotted on save and cloned on read, so callers never share
// state with the library. Persisting the stored documents to disk or
// network belongs to external collaborators.
package library

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
	"github.com/UjwalAKrishna/drawrag-core/pkg/pipeline"
	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// NotFoundError is returned when no pipeline is stored under an id.
type NotFoundError struct {
	// ID is the pipeline id that was looked up
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pipeline %s not found", e.ID)
}

// Entry pairs a stored document with its library id.
type Entry struct {
	// ID is the library identifier of the pipeline
	ID string `json:"id"`

	// Document is a copy of the stored pipeline
	Document *pipeline.Document `json:"document"`
}

// Summary is one listing row for a stored pipeline.
type Summary struct {
	// ID is the library identifier of the pipeline
	ID string `json:"id"`

	// Name is the pipeline name from its metadata
	Name string `json:"name"`

	// Description explains what the pipeline does
	Description string `json:"description,omitempty"`

	// Components is the number of components in the pipeline
	Components int `json:"components"`

	// Connections is the number of connections in the pipeline
	Connections int `json:"connections"`

	// ContentHash identifies the stored revision
	ContentHash string `json:"contentHash,omitempty"`

	// CreatedAt is when the pipeline was first saved
	CreatedAt time.Time `json:"createdAt"`

	// LastModified is when the pipeline was last saved or updated
	LastModified time.Time `json:"lastModified"`
}

// Library is an in-memory collection of pipeline documents.
type Library struct {
	logger logr.Logger
	reg    registry.Registry

	mu      sync.RWMutex
	entries map[string]*pipeline.Document
	order   []string
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the library's logger. The default discards all
// output.
func WithLogger(logger logr.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New creates an empty library. The registry is consulted when
// scoring pipeline health; stored documents are not validated
// against it.
func New(reg registry.Registry, opts ...Option) *Library {
	l := &Library{
		logger:  logr.Discard(),
		reg:     reg,
		entries: make(map[string]*pipeline.Document),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Save stores a snapshot of doc under id, assigning a fresh uuid when
// id is empty. On first save CreatedAt is taken from the document, or
// set to now when zero; re-saving an existing id preserves the stored
// CreatedAt. LastModified is always bumped and the content hash
// recomputed. Returns the id the document is stored under.
func (l *Library) Save(id string, doc *pipeline.Document) (string, error) {
	if doc == nil {
		return "", errors.New("document is nil")
	}
	if id == "" {
		id = uuid.NewString()
	}

	snapshot := doc.Clone()
	now := time.Now()

	l.mu.Lock()
	if existing, ok := l.entries[id]; ok {
		snapshot.Metadata.CreatedAt = existing.Metadata.CreatedAt
	} else {
		if snapshot.Metadata.CreatedAt.IsZero() {
			snapshot.Metadata.CreatedAt = now
		}
		l.order = append(l.order, id)
	}
	snapshot.Metadata.LastModified = now
	snapshot.SetHash()
	l.entries[id] = snapshot
	size := len(l.entries)
	l.mu.Unlock()

	metrics.SetLibrarySize(size)
	l.logger.V(1).Info("pipeline saved", "pipeline", id, "name", snapshot.Metadata.Name)
	return id, nil
}

// Update replaces the document stored under id, preserving the stored
// CreatedAt. Returns a NotFoundError when the id is absent.
func (l *Library) Update(id string, doc *pipeline.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}

	snapshot := doc.Clone()

	l.mu.Lock()
	existing, ok := l.entries[id]
	if !ok {
		l.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	snapshot.Metadata.CreatedAt = existing.Metadata.CreatedAt
	snapshot.Metadata.LastModified = time.Now()
	snapshot.SetHash()
	l.entries[id] = snapshot
	l.mu.Unlock()

	l.logger.V(1).Info("pipeline updated", "pipeline", id, "name", snapshot.Metadata.Name)
	return nil
}

// Get returns a copy of the document stored under id.
func (l *Library) Get(id string) (*pipeline.Document, bool) {
	l.mu.RLock()
	doc, ok := l.entries[id]
	l.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

// Delete removes the pipeline stored under id. Returns false when the
// id was not present.
func (l *Library) Delete(id string) bool {
	l.mu.Lock()
	if _, ok := l.entries[id]; !ok {
		l.mu.Unlock()
		return false
	}
	delete(l.entries, id)
	for i, stored := range l.order {
		if stored == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	size := len(l.entries)
	l.mu.Unlock()

	metrics.SetLibrarySize(size)
	l.logger.V(1).Info("pipeline deleted", "pipeline", id)
	return true
}

// Exists reports whether a pipeline is stored under id.
func (l *Library) Exists(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[id]
	return ok
}

// Len returns the number of stored pipelines.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// List returns every stored pipeline in the order first saved.
func (l *Library) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(func(*pipeline.Document) bool { return true })
}

// Summaries returns one listing row per stored pipeline, in the order
// first saved.
func (l *Library) Summaries() []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summaries := make([]Summary, 0, len(l.order))
	for _, id := range l.order {
		doc := l.entries[id]
		summaries = append(summaries, Summary{
			ID:           id,
			Name:         doc.Metadata.Name,
			Description:  doc.Metadata.Description,
			Components:   len(doc.Components),
			Connections:  len(doc.Connections),
			ContentHash:  doc.Metadata.ContentHash,
			CreatedAt:    doc.Metadata.CreatedAt,
			LastModified: doc.Metadata.LastModified,
		})
	}
	return summaries
}

// Search returns the pipelines whose name or description contains
// query, case-insensitively. An empty query matches everything.
func (l *Library) Search(query string) []Entry {
	needle := strings.ToLower(query)

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(func(doc *pipeline.Document) bool {
		return strings.Contains(strings.ToLower(doc.Metadata.Name), needle) ||
			strings.Contains(strings.ToLower(doc.Metadata.Description), needle)
	})
}

// UsingComponent returns the pipelines containing at least one
// component of the given category. An empty subtype matches any
// subtype within the category.
func (l *Library) UsingComponent(category pipeline.Category, subtype string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(func(doc *pipeline.Document) bool {
		for _, c := range doc.Components {
			if c.Category == category && (subtype == "" || c.Subtype == subtype) {
				return true
			}
		}
		return false
	})
}

// Clear removes every stored pipeline.
func (l *Library) Clear() {
	l.mu.Lock()
	l.entries = make(map[string]*pipeline.Document)
	l.order = nil
	l.mu.Unlock()

	metrics.SetLibrarySize(0)
	l.logger.Info("library cleared")
}

// collect returns cloned entries matching keep, in first-saved order.
// Callers must hold at least a read lock.
func (l *Library) collect(keep func(*pipeline.Document) bool) []Entry {
	var out []Entry
	for _, id := range l.order {
		doc := l.entries[id]
		if keep(doc) {
			out = append(out, Entry{ID: id, Document: doc.Clone()})
		}
	}
	return out
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/authzed/controller-idioms/handler"
	"github.com/authzed/controller-idioms/queue"
	"github.com/authzed/controller-idioms/typedctx"
	"github.com/dominikbraun/graph"

	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
)

// Handler IDs for the import pipeline
const (
	verifyDocumentID   handler.Key = "verify-document"
	materializeGraphID handler.Key = "materialize-graph"
	commitGraphID      handler.Key = "commit-graph"
)

// Context keys for the import pipeline. Using typedctx keeps the
// values passed between handlers type-safe.
var (
	// ctxQueue signals completion or abort for the running import
	ctxQueue = queue.NewQueueOperationsCtx()

	// ctxDocument is the document being imported
	ctxDocument = typedctx.NewKey[*Document]()

	// ctxStaged is the fully materialized replacement graph
	ctxStaged = typedctx.NewKey[*stagedGraph]()
)

// stagedGraph is a complete replacement graph built off to the side.
// Nothing in the store changes until commit swaps it in, which keeps
// imports all-or-nothing.
type stagedGraph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	mirror    graph.Graph[string, string]
	nextNode  int
	nextEdge  int
}

// newImportPipeline assembles the staged import chain for a store.
func newImportPipeline(s *Store) handler.Handler {
	h := &importHandlers{store: s}
	return handler.Chain(
		h.verifyDocument(),
		h.materializeGraph(),
		h.commitGraph(),
	).Handler("document-import")
}

// importHandlers builds the handlers of the import pipeline.
type importHandlers struct {
	store *Store
}

// FromDocument replaces the graph wholesale with the contents of doc.
// The document is verified first; on any defect an ImportError is
// returned and the existing graph is left untouched. On success the
// id counters are recalibrated past the highest imported ids, and
// graph:cleared then graph:imported are emitted. Insertion trusts the
// input: duplicate-pair and compatibility rules are not re-checked.
func (s *Store) FromDocument(ctx context.Context, doc *Document) error {
	start := time.Now()

	queueOps := queue.NewOperations(func() {}, func(time.Duration) {}, func() {})
	ctx = ctxQueue.WithValue(ctx, queueOps)
	ctx = ctxDocument.WithValue(ctx, doc)

	s.importPipeline.Handle(ctx)

	if err := queueOps.Error(); err != nil {
		metrics.RecordImport(metrics.ResultFailure, time.Since(start).Seconds())
		s.logger.Error(err, "document import rejected")
		return err
	}
	metrics.RecordImport(metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("document imported",
		"components", len(doc.Components), "connections", len(doc.Connections))
	return nil
}

// verifyDocumentHandler checks the document's structure before
// anything is built: both sections present, every component carrying a
// unique id, a valid category, and a subtype, and every connection
// resolving to imported components without self-loops.
type verifyDocumentHandler struct {
	next handler.Handler
}

func (h *verifyDocumentHandler) Handle(ctx context.Context) {
	doc := ctxDocument.MustValue(ctx)

	if doc == nil {
		ctxQueue.RequeueErr(ctx, &ImportError{Reason: "document is nil"})
		return
	}
	if doc.Components == nil {
		ctxQueue.RequeueErr(ctx, &ImportError{Reason: "document has no components section"})
		return
	}
	if doc.Connections == nil {
		ctxQueue.RequeueErr(ctx, &ImportError{Reason: "document has no connections section"})
		return
	}

	ids := make(map[string]bool, len(doc.Components))
	for i, c := range doc.Components {
		if c.ID == "" {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: fmt.Sprintf("component %d has no id", i)})
			return
		}
		if ids[c.ID] {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: fmt.Sprintf("duplicate component id %s", c.ID)})
			return
		}
		if !c.Category.Valid() {
			ctxQueue.RequeueErr(ctx, &ImportError{
				Reason: fmt.Sprintf("component %s has invalid category %q", c.ID, c.Category),
			})
			return
		}
		if c.Subtype == "" {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: fmt.Sprintf("component %s has no subtype", c.ID)})
			return
		}
		ids[c.ID] = true
	}

	connIDs := make(map[string]bool, len(doc.Connections))
	for i, conn := range doc.Connections {
		ref := conn.ID
		if ref == "" {
			ref = fmt.Sprintf("#%d", i)
		}
		if !ids[conn.From] {
			ctxQueue.RequeueErr(ctx, &ImportError{
				Reason: fmt.Sprintf("connection %s references unknown component %q", ref, conn.From),
			})
			return
		}
		if !ids[conn.To] {
			ctxQueue.RequeueErr(ctx, &ImportError{
				Reason: fmt.Sprintf("connection %s references unknown component %q", ref, conn.To),
			})
			return
		}
		if conn.From == conn.To {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: fmt.Sprintf("connection %s is a self-loop", ref)})
			return
		}
		if conn.ID != "" {
			if connIDs[conn.ID] {
				ctxQueue.RequeueErr(ctx, &ImportError{Reason: fmt.Sprintf("duplicate connection id %s", conn.ID)})
				return
			}
			connIDs[conn.ID] = true
		}
	}

	h.next.Handle(ctx)
}

func (h *importHandlers) verifyDocument() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(
			&verifyDocumentHandler{
				next: handler.Handlers(next).MustOne(),
			},
			verifyDocumentID,
		)
	}
}

// materializeGraphHandler builds the replacement graph off to the
// side: nodes with ports re-derived from the registry, statuses
// normalized to the known vocabulary, missing connection ids assigned,
// and both counters recalibrated past the highest imported ids.
type materializeGraphHandler struct {
	store *Store
	next  handler.Handler
}

func (h *materializeGraphHandler) Handle(ctx context.Context) {
	doc := ctxDocument.MustValue(ctx)

	staged := &stagedGraph{
		nodes:  make(map[string]*Node, len(doc.Components)),
		edges:  make(map[string]*Edge, len(doc.Connections)),
		mirror: newMirror(),
	}

	for _, c := range doc.Components {
		node := &Node{
			ID:       c.ID,
			Category: c.Category,
			Subtype:  c.Subtype,
			Name:     c.Name,
			Position: c.Position,
			Config:   c.Config.Clone(),
			Status:   c.Status,
		}
		if node.Config == nil {
			node.Config = Config{}
		}
		if !node.Status.Valid() {
			// Empty statuses and foreign vocabularies normalize to
			// the safe floor.
			node.Status = StatusUnconfigured
		}
		if def, ok := h.store.reg.Lookup(string(c.Category), c.Subtype); ok {
			node.Inputs = def.Inputs
			node.Outputs = def.Outputs
		} else {
			node.Inputs, node.Outputs = portDefaults(c.Category)
		}

		if err := staged.mirror.AddVertex(node.ID); err != nil {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: "failed to stage graph", Err: err})
			return
		}
		staged.nodes[node.ID] = node
		staged.nodeOrder = append(staged.nodeOrder, node.ID)
		if n, ok := parseCounterID(node.ID, "node-"); ok && n > staged.nextNode {
			staged.nextNode = n
		}
	}

	// Explicit edge ids first, so assigned ids never collide.
	for _, conn := range doc.Connections {
		if n, ok := parseCounterID(conn.ID, "edge-"); ok && n > staged.nextEdge {
			staged.nextEdge = n
		}
	}

	for _, conn := range doc.Connections {
		id := conn.ID
		if id == "" {
			staged.nextEdge++
			id = fmt.Sprintf("edge-%d", staged.nextEdge)
		}
		label := conn.Type
		if label == "" {
			label = ConnectionType(staged.nodes[conn.From].Category, staged.nodes[conn.To].Category)
		}

		// A repeated directed pair is trusted into the edge set; it
		// only degrades the mirror, which keeps a single edge per pair.
		if err := staged.mirror.AddEdge(conn.From, conn.To); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			ctxQueue.RequeueErr(ctx, &ImportError{Reason: "failed to stage graph", Err: err})
			return
		}
		staged.edges[id] = &Edge{
			ID:        id,
			From:      conn.From,
			To:        conn.To,
			Type:      label,
			CreatedAt: time.Now(),
		}
		staged.edgeOrder = append(staged.edgeOrder, id)
	}

	ctx = ctxStaged.WithValue(ctx, staged)
	h.next.Handle(ctx)
}

func (h *importHandlers) materializeGraph() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(
			&materializeGraphHandler{
				store: h.store,
				next:  handler.Handlers(next).MustOne(),
			},
			materializeGraphID,
		)
	}
}

// commitGraphHandler swaps the staged graph into the store and adopts
// the document's metadata. Events fire only after the lock is
// released.
type commitGraphHandler struct {
	store *Store
}

func (h *commitGraphHandler) Handle(ctx context.Context) {
	doc := ctxDocument.MustValue(ctx)
	staged := ctxStaged.MustValue(ctx)
	s := h.store

	md := doc.Metadata
	if md.Name == "" {
		md.Name = "untitled-pipeline"
	}
	if md.Version == "" {
		md.Version = "1.0.0"
	}
	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now()
	}
	md.LastModified = time.Now()

	s.mu.Lock()
	s.nodes = staged.nodes
	s.nodeOrder = staged.nodeOrder
	s.edges = staged.edges
	s.edgeOrder = staged.edgeOrder
	s.mirror = staged.mirror
	s.nextNode = staged.nextNode
	s.nextEdge = staged.nextEdge
	s.metadata = md
	nodes, edges := len(s.nodes), len(s.edges)
	s.mu.Unlock()

	metrics.SetGraphSize(nodes, edges)

	s.bus.Publish(ctx, EventGraphCleared, nil)
	s.bus.Publish(ctx, EventGraphImported, ImportEvent{Nodes: nodes, Edges: edges})

	ctxQueue.Done(ctx)
}

func (h *importHandlers) commitGraph() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(
			&commitGraphHandler{
				store: h.store,
			},
			commitGraphID,
		)
	}
}

// parseCounterID extracts n from ids of the form "<prefix><n>".
// Foreign id formats return false and never advance a counter.
func parseCounterID(id, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// portDefaults supplies port counts for imported components whose
// definition is not in the registry.
func portDefaults(cat Category) (inputs, outputs int) {
	switch cat {
	case CategoryDataSource:
		return 0, 1
	case CategoryLLM:
		return 1, 0
	default:
		return 1, 1
	}
}

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authzed/controller-idioms/handler"
	"github.com/dominikbraun/graph"
	"github.com/go-logr/logr"

	"github.com/UjwalAKrishna/drawrag-core/pkg/events"
	"github.com/UjwalAKrishna/drawrag-core/pkg/metrics"
	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// Mutation operation names used in metrics labels
const (
	opCreateNode   = "create_node"
	opUpdateConfig = "update_config"
	opSetStatus    = "set_status"
	opMoveNode     = "move_node"
	opDeleteNode   = "delete_node"
	opCreateEdge   = "create_edge"
	opDeleteEdge   = "delete_edge"
	opClear        = "clear"
)

// Store holds one pipeline graph: nodes, edges, and metadata. All
// mutations are atomic; either the full effect (collection change,
// status recompute, event emission) completes or nothing changes and a
// typed error is returned. Events are published only after the
// mutation has committed and the lock has been released, so listeners
// may safely read the store.
//
// The id counter and definition registry are instance state, never
// process-wide; construct one Store per pipeline with NewStore.
type Store struct {
	logger logr.Logger
	reg    registry.Registry
	bus    *events.Bus

	importPipeline handler.Handler

	mu        sync.RWMutex
	metadata  Metadata
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	mirror    graph.Graph[string, string]
	nextNode  int
	nextEdge  int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger. The default discards all output.
func WithLogger(logger logr.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetadata seeds the pipeline metadata. Zero timestamps are filled
// with the construction time; an empty name or version falls back to
// the defaults.
func WithMetadata(md Metadata) StoreOption {
	return func(s *Store) {
		s.metadata = md
	}
}

// newMirror builds the directed graph that mirrors the store's
// topology for duplicate-edge checks and ordering queries.
func newMirror() graph.Graph[string, string] {
	return graph.New(graph.StringHash, graph.Directed())
}

// NewStore returns an empty Store reading component definitions from
// reg and publishing change events on bus. A nil bus gets a private
// one, reachable through Bus.
func NewStore(reg registry.Registry, bus *events.Bus, opts ...StoreOption) *Store {
	s := &Store{
		logger: logr.Discard(),
		reg:    reg,
		bus:    bus,
		nodes:  make(map[string]*Node),
		edges:  make(map[string]*Edge),
		mirror: newMirror(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = events.New(events.WithLogger(s.logger))
	}

	now := time.Now()
	if s.metadata.Name == "" {
		s.metadata.Name = "untitled-pipeline"
	}
	if s.metadata.Version == "" {
		s.metadata.Version = "1.0.0"
	}
	if s.metadata.CreatedAt.IsZero() {
		s.metadata.CreatedAt = now
	}
	if s.metadata.LastModified.IsZero() {
		s.metadata.LastModified = now
	}

	s.importPipeline = newImportPipeline(s)
	return s
}

// Bus returns the notifier the store publishes change events on.
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// CreateNode adds a node of the given category and subtype at (x, y),
// seeding its configuration from the component definition's defaults
// and deriving its initial status. It returns DefinitionNotFoundError
// when the registry has no definition for the pair. Emits node:created.
func (s *Store) CreateNode(ctx context.Context, category, subtype string, x, y float64) (*Node, error) {
	start := time.Now()
	node, err := s.createNode(category, subtype, x, y)
	if err != nil {
		metrics.RecordMutation(opCreateNode, metrics.ResultFailure, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordMutation(opCreateNode, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("node created",
		"node", node.ID, "category", node.Category, "subtype", node.Subtype, "status", node.Status)
	s.bus.Publish(ctx, EventNodeCreated, NodeEvent{Node: node})
	return node, nil
}

func (s *Store) createNode(category, subtype string, x, y float64) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !Category(category).Valid() {
		return nil, &DefinitionNotFoundError{Category: category, Subtype: subtype}
	}
	def, ok := s.reg.Lookup(category, subtype)
	if !ok {
		return nil, &DefinitionNotFoundError{Category: category, Subtype: subtype}
	}

	s.nextNode++
	id := fmt.Sprintf("node-%d", s.nextNode)

	node := &Node{
		ID:       id,
		Category: Category(category),
		Subtype:  subtype,
		Name:     def.Name,
		Position: Position{X: x, Y: y},
		Config:   seedConfig(def),
		Inputs:   def.Inputs,
		Outputs:  def.Outputs,
	}
	node.Status = ComputeStatus(node, def)

	if err := s.mirror.AddVertex(id); err != nil {
		s.nextNode--
		return nil, fmt.Errorf("graph mirror: %w", err)
	}
	s.nodes[id] = node
	s.nodeOrder = append(s.nodeOrder, id)
	s.metadata.LastModified = time.Now()
	metrics.SetGraphSize(len(s.nodes), len(s.edges))
	return node.Clone(), nil
}

// seedConfig copies a definition's default configuration into a fresh
// node config.
func seedConfig(def registry.Definition) Config {
	cfg := Config(def.DefaultConfig).Clone()
	if cfg == nil {
		cfg = Config{}
	}
	return cfg
}

// UpdateNodeConfig merges partial into the node's configuration,
// recomputes the status, and returns the updated node. It returns
// NodeNotFoundError when the id is absent. Emits node:updated.
func (s *Store) UpdateNodeConfig(ctx context.Context, nodeID string, partial Config) (*Node, error) {
	start := time.Now()
	node, err := s.updateNodeConfig(nodeID, partial)
	if err != nil {
		metrics.RecordMutation(opUpdateConfig, metrics.ResultFailure, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordMutation(opUpdateConfig, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("node config updated", "node", node.ID, "status", node.Status)
	s.bus.Publish(ctx, EventNodeUpdated, NodeEvent{Node: node})
	return node, nil
}

func (s *Store) updateNodeConfig(nodeID string, partial Config) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, &NodeNotFoundError{ID: nodeID}
	}
	if node.Config == nil {
		node.Config = Config{}
	}
	for k, v := range partial {
		node.Config[k] = cloneValue(v)
	}

	// A config update always recomputes the status, overwriting any
	// externally injected error/processing state.
	def, _ := s.reg.Lookup(string(node.Category), node.Subtype)
	node.Status = ComputeStatus(node, def)

	s.metadata.LastModified = time.Now()
	return node.Clone(), nil
}

// SetNodeStatus writes a status directly onto a node. This is the
// external collaborator's hook for injecting error or processing; the
// value is preserved until the next config update recomputes it. Emits
// node:updated.
func (s *Store) SetNodeStatus(ctx context.Context, nodeID string, status Status) error {
	start := time.Now()
	node, err := s.setNodeStatus(nodeID, status)
	if err != nil {
		metrics.RecordMutation(opSetStatus, metrics.ResultFailure, time.Since(start).Seconds())
		return err
	}
	metrics.RecordMutation(opSetStatus, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("node status set", "node", node.ID, "status", node.Status)
	s.bus.Publish(ctx, EventNodeUpdated, NodeEvent{Node: node})
	return nil
}

func (s *Store) setNodeStatus(nodeID string, status Status) (*Node, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, &NodeNotFoundError{ID: nodeID}
	}
	node.Status = status
	s.metadata.LastModified = time.Now()
	return node.Clone(), nil
}

// MoveNode updates a node's canvas position. Status is unaffected.
// Emits node:moved.
func (s *Store) MoveNode(ctx context.Context, nodeID string, x, y float64) error {
	start := time.Now()
	node, err := s.moveNode(nodeID, x, y)
	if err != nil {
		metrics.RecordMutation(opMoveNode, metrics.ResultFailure, time.Since(start).Seconds())
		return err
	}
	metrics.RecordMutation(opMoveNode, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(2).Info("node moved", "node", node.ID, "x", x, "y", y)
	s.bus.Publish(ctx, EventNodeMoved, NodeEvent{Node: node})
	return nil
}

func (s *Store) moveNode(nodeID string, x, y float64) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, &NodeNotFoundError{ID: nodeID}
	}
	node.Position = Position{X: x, Y: y}
	s.metadata.LastModified = time.Now()
	return node.Clone(), nil
}

// DeleteNode removes a node, cascading first to every incident edge in
// creation order. Each cascaded edge emits edge:removed, then the node
// emits node:deleted. Deleting an absent id is a no-op returning
// false.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) bool {
	start := time.Now()
	node, removed := s.deleteNode(nodeID)
	if node == nil {
		s.logger.V(2).Info("delete of absent node", "node", nodeID)
		return false
	}
	metrics.RecordMutation(opDeleteNode, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("node deleted", "node", nodeID, "cascadedEdges", len(removed))
	for _, e := range removed {
		s.bus.Publish(ctx, EventEdgeRemoved, EdgeEvent{Edge: e})
	}
	s.bus.Publish(ctx, EventNodeDeleted, NodeDeletedEvent{NodeID: nodeID, Node: node})
	return true
}

func (s *Store) deleteNode(nodeID string) (*Node, []*Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, nil
	}

	var removed []*Edge
	remaining := make([]string, 0, len(s.edgeOrder))
	for _, edgeID := range s.edgeOrder {
		e := s.edges[edgeID]
		if e.From != nodeID && e.To != nodeID {
			remaining = append(remaining, edgeID)
			continue
		}
		if err := s.mirror.RemoveEdge(e.From, e.To); err != nil {
			s.logger.Error(err, "graph mirror out of sync", "edge", edgeID)
		}
		delete(s.edges, edgeID)
		removed = append(removed, e)
	}
	s.edgeOrder = remaining

	if err := s.mirror.RemoveVertex(nodeID); err != nil {
		s.logger.Error(err, "graph mirror out of sync", "node", nodeID)
	}
	delete(s.nodes, nodeID)
	for i, id := range s.nodeOrder {
		if id == nodeID {
			s.nodeOrder = append(s.nodeOrder[:i], s.nodeOrder[i+1:]...)
			break
		}
	}

	s.metadata.LastModified = time.Now()
	metrics.SetGraphSize(len(s.nodes), len(s.edges))
	return node, removed
}

// CreateEdge connects two nodes. It returns EdgeInvalidError on a
// self-loop, a missing endpoint, a disallowed category pair, or a
// duplicate directed pair. The connection-type label is computed from
// the endpoint categories. Emits edge:created.
func (s *Store) CreateEdge(ctx context.Context, fromID, toID string) (*Edge, error) {
	start := time.Now()
	edge, err := s.createEdge(fromID, toID)
	if err != nil {
		metrics.RecordMutation(opCreateEdge, metrics.ResultFailure, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordMutation(opCreateEdge, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("edge created", "edge", edge.ID, "from", edge.From, "to", edge.To, "type", edge.Type)
	s.bus.Publish(ctx, EventEdgeCreated, EdgeEvent{Edge: edge})
	return edge, nil
}

func (s *Store) createEdge(fromID, toID string) (*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromID == toID {
		return nil, &EdgeInvalidError{From: fromID, To: toID, Reason: "self-loops are not allowed"}
	}
	from, ok := s.nodes[fromID]
	if !ok {
		return nil, &EdgeInvalidError{From: fromID, To: toID, Reason: fmt.Sprintf("source node %s not found", fromID)}
	}
	to, ok := s.nodes[toID]
	if !ok {
		return nil, &EdgeInvalidError{From: fromID, To: toID, Reason: fmt.Sprintf("destination node %s not found", toID)}
	}
	if !CanConnect(from.Category, to.Category) {
		return nil, &EdgeInvalidError{
			From: fromID, To: toID,
			Reason: fmt.Sprintf("%s cannot connect to %s", from.Category, to.Category),
		}
	}
	if _, err := s.mirror.Edge(fromID, toID); err == nil {
		return nil, &EdgeInvalidError{From: fromID, To: toID, Reason: "edge already exists"}
	}

	if err := s.mirror.AddEdge(fromID, toID); err != nil {
		return nil, fmt.Errorf("graph mirror: %w", err)
	}

	s.nextEdge++
	id := fmt.Sprintf("edge-%d", s.nextEdge)
	edge := &Edge{
		ID:        id,
		From:      fromID,
		To:        toID,
		Type:      ConnectionType(from.Category, to.Category),
		CreatedAt: time.Now(),
	}
	s.edges[id] = edge
	s.edgeOrder = append(s.edgeOrder, id)
	s.metadata.LastModified = time.Now()
	metrics.SetGraphSize(len(s.nodes), len(s.edges))
	return edge.Clone(), nil
}

// DeleteEdge removes an edge and detaches it from both endpoints.
// Deleting an absent id is a no-op returning false. Emits
// edge:removed.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) bool {
	start := time.Now()
	edge := s.deleteEdge(edgeID)
	if edge == nil {
		s.logger.V(2).Info("delete of absent edge", "edge", edgeID)
		return false
	}
	metrics.RecordMutation(opDeleteEdge, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("edge deleted", "edge", edgeID)
	s.bus.Publish(ctx, EventEdgeRemoved, EdgeEvent{Edge: edge})
	return true
}

func (s *Store) deleteEdge(edgeID string) *Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok {
		return nil
	}
	if err := s.mirror.RemoveEdge(edge.From, edge.To); err != nil {
		s.logger.Error(err, "graph mirror out of sync", "edge", edgeID)
	}
	delete(s.edges, edgeID)
	for i, id := range s.edgeOrder {
		if id == edgeID {
			s.edgeOrder = append(s.edgeOrder[:i], s.edgeOrder[i+1:]...)
			break
		}
	}
	s.metadata.LastModified = time.Now()
	metrics.SetGraphSize(len(s.nodes), len(s.edges))
	return edge
}

// Clear empties the graph and resets both id counters. Metadata other
// than LastModified is preserved. Emits graph:cleared.
func (s *Store) Clear(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()

	metrics.RecordMutation(opClear, metrics.ResultSuccess, time.Since(start).Seconds())
	s.logger.V(1).Info("graph cleared")
	s.bus.Publish(ctx, EventGraphCleared, nil)
}

// reset empties every collection and counter. Callers must hold the
// write lock.
func (s *Store) reset() {
	s.nodes = make(map[string]*Node)
	s.nodeOrder = nil
	s.edges = make(map[string]*Edge)
	s.edgeOrder = nil
	s.mirror = newMirror()
	s.nextNode = 0
	s.nextEdge = 0
	s.metadata.LastModified = time.Now()
	metrics.SetGraphSize(0, 0)
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id string) (*Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[id]
	if !ok {
		return nil, false
	}
	return edge.Clone(), true
}

// Nodes returns copies of all nodes in creation order.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodesLocked()
}

func (s *Store) nodesLocked() []*Node {
	nodes := make([]*Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		nodes = append(nodes, s.nodes[id].Clone())
	}
	return nodes
}

// Edges returns copies of all edges in creation order.
func (s *Store) Edges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesLocked()
}

func (s *Store) edgesLocked() []*Edge {
	edges := make([]*Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		edges = append(edges, s.edges[id].Clone())
	}
	return edges
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Metadata returns a copy of the pipeline metadata.
func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// snapshot returns copies of the full graph state under one read lock.
func (s *Store) snapshot() ([]*Node, []*Edge, Metadata) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodesLocked(), s.edgesLocked(), s.metadata
}

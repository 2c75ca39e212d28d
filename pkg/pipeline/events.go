package pipeline

// Event names published by the Store on its notifier bus. Every event
// fires after the triggering mutation has fully committed, so
// listeners always observe post-mutation state.
const (
	// EventNodeCreated carries a NodeEvent
	EventNodeCreated = "node:created"

	// EventNodeUpdated carries a NodeEvent; fired on config and status
	// changes
	EventNodeUpdated = "node:updated"

	// EventNodeMoved carries a NodeEvent
	EventNodeMoved = "node:moved"

	// EventNodeDeleted carries a NodeDeletedEvent
	EventNodeDeleted = "node:deleted"

	// EventEdgeCreated carries an EdgeEvent
	EventEdgeCreated = "edge:created"

	// EventEdgeRemoved carries an EdgeEvent; fired for direct deletion
	// and for node-deletion cascades
	EventEdgeRemoved = "edge:removed"

	// EventGraphCleared carries a nil payload
	EventGraphCleared = "graph:cleared"

	// EventGraphImported carries an ImportEvent after a successful
	// document import
	EventGraphImported = "graph:imported"
)

// NodeEvent is the payload for node:created, node:updated, and
// node:moved. Node is a copy; mutating it does not affect the store.
type NodeEvent struct {
	Node *Node
}

// NodeDeletedEvent is the payload for node:deleted.
type NodeDeletedEvent struct {
	NodeID string
	Node   *Node
}

// EdgeEvent is the payload for edge:created and edge:removed.
type EdgeEvent struct {
	Edge *Edge
}

// ImportEvent is the payload for graph:imported.
type ImportEvent struct {
	Nodes int
	Edges int
}

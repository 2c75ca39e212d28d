package pipeline

import (
	"fmt"
)

// DefinitionNotFoundError is returned by CreateNode when no component
// definition exists for the requested (category, subtype) pair.
type DefinitionNotFoundError struct {
	Category string
	Subtype  string
}

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("no component definition for %s/%s", e.Category, e.Subtype)
}

// NodeNotFoundError is returned when an operation names a node id that
// is not in the store.
type NodeNotFoundError struct {
	ID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %s not found", e.ID)
}

// EdgeNotFoundError reports an edge id that is not in the store. Edge
// deletion is idempotent, so store operations never return it; hosts
// that need a hard failure for a missing edge construct it themselves.
type EdgeNotFoundError struct {
	ID string
}

func (e *EdgeNotFoundError) Error() string {
	return fmt.Sprintf("edge %s not found", e.ID)
}

// EdgeInvalidError is returned by CreateEdge when the requested
// connection violates a structural rule: a self-loop, a missing
// endpoint, a disallowed category pair, or a duplicate directed pair.
type EdgeInvalidError struct {
	From   string
	To     string
	Reason string
}

func (e *EdgeInvalidError) Error() string {
	return fmt.Sprintf("invalid edge %s -> %s: %s", e.From, e.To, e.Reason)
}

// ImportError is returned by FromDocument when the document is
// malformed. The graph is left untouched.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("import rejected: %s", e.Reason)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

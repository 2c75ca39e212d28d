package pipeline

import (
	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// ComputeStatus derives a node's status from its configuration:
// StatusConfigured iff every required field named by the definition is
// present in the node's config and is neither nil nor an empty string,
// otherwise StatusUnconfigured. It never returns StatusError or
// StatusProcessing; those are written only by external collaborators
// through SetNodeStatus.
func ComputeStatus(node *Node, def registry.Definition) Status {
	for _, field := range def.RequiredFields {
		if !fieldSet(node.Config, field) {
			return StatusUnconfigured
		}
	}
	return StatusConfigured
}

// fieldSet reports whether the config holds a usable value for field.
func fieldSet(config Config, field string) bool {
	v, ok := config[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

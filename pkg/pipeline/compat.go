package pipeline

// allowedSuccessors maps a source category to the destination
// categories its output may connect to. New categories are added here
// without touching the store's mutation logic.
var allowedSuccessors = map[Category][]Category{
	CategoryDataSource: {CategoryEmbedding, CategoryVectorDB},
	CategoryEmbedding:  {CategoryVectorDB},
	CategoryVectorDB:   {CategoryLLM},
	CategoryLLM:        {}, // terminal, nothing may follow an llm stage
}

// connectionLabels maps a destination category to the symbolic label
// attached to edges flowing into it.
var connectionLabels = map[Category]string{
	CategoryEmbedding: "to-embedding",
	CategoryVectorDB:  "to-storage",
	CategoryLLM:       "to-generation",
}

// ConnectionTypeDefault is the fallback connection label for
// destinations with no specific label.
const ConnectionTypeDefault = "default"

// CanConnect reports whether an edge from a node of category from to a
// node of category to is allowed.
func CanConnect(from, to Category) bool {
	for _, allowed := range allowedSuccessors[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ConnectionType returns the display label for an edge between the two
// categories. The label is pure metadata and never gates a connection.
func ConnectionType(from, to Category) string {
	if label, ok := connectionLabels[to]; ok {
		return label
	}
	return ConnectionTypeDefault
}

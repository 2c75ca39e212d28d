// Package pipeline provides the graph model at the core of a visual
// RAG-pipeline builder. It includes the Store holding nodes and edges,
// category compatibility rules, configuration-driven status derivation,
// structural validation, and serialization to and from the portable
// pipeline document form.
package pipeline

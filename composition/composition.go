package composition

import "github.com/visiona/scene-bridge/composition/internal/graph"

// New creates an empty composition graph.
// This is the only public constructor and part of the stable API.
func New() *Graph {
	return graph.New()
}

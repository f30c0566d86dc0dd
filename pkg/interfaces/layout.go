package interfaces

import "context"

// Point is a 2D canvas coordinate produced by the positioning service.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positioner is the external graph positioning service. It consumes the node
// and edge sets plus a canvas size and produces per-node coordinates, usually
// via an iterative physics simulation. The engine has no contract with its
// internals beyond this boundary.
type Positioner interface {
	Position(ctx context.Context, entities []ContactEntity, edges []Edge, width, height float64) (map[string]Point, error)
}

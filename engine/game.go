package engine

import (
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
	"github.com/spaghettifunk/chronos/engine/systems"
)

// Game is the set of hooks the engine calls into. Only FnInitialize is
// required.
type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Scene is what a game sees while it populates the world.
type Scene interface {
	Objects() *systems.ObjectRegistry
	// LoadModel reads a .model.toml asset and uploads it to the GPU.
	LoadModel(path string) (renderer.Geometry, error)
	CreateModel(vertices []math.Vertex2D) (renderer.Geometry, error)
}

type Initialize func(scene Scene) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

package testbed

import (
	"github.com/spaghettifunk/chronos/engine"
	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/systems"
)

const TriangleModelPath = "assets/models/triangle.model.toml"

type TestGame struct {
	*engine.Game
}

type gameState struct {
	triangle systems.ObjectHandle
	width    uint32
	height   uint32
}

func NewTestGame() *engine.Game {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{
				triangle: systems.InvalidHandle,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg.Game
}

// Initialize places one squashed, rotated, green tinted triangle slightly
// right of the centre.
func (g *TestGame) Initialize(scene engine.Scene) error {
	core.LogInfo("initializing testbed...")
	state := g.State.(*gameState)

	model, err := scene.LoadModel(TriangleModelPath)
	if err != nil {
		core.LogError("failed to load the triangle model: %s", err)
		return err
	}

	handle, triangle := scene.Objects().Create()
	triangle.Model = model
	triangle.Color = math.NewVec3(.1, .8, .1)
	triangle.Transform.Translation.X = .2
	triangle.Transform.Scale = math.NewVec2(2, .5)
	triangle.Transform.Rotation = .25 * math.K_PI_2
	state.triangle = handle

	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	state.triangle = systems.InvalidHandle
	core.LogInfo("testbed shut down")
	return nil
}

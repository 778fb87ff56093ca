package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
	"github.com/spaghettifunk/chronos/engine/renderer/renderertest"
)

// fakeWindow closes itself after closeAfter pumps; zero means never.
type fakeWindow struct {
	*renderertest.Surface
	pumps      int
	closeAfter int
	onPump     func(n int)
}

func (w *fakeWindow) PumpMessages() {
	w.pumps++
	if w.onPump != nil {
		w.onPump(w.pumps)
	}
	if w.closeAfter > 0 && w.pumps >= w.closeAfter {
		w.Closed = true
	}
}

func (w *fakeWindow) RequestClose() {
	w.Closed = true
}

type fakePipeline struct {
	*renderertest.Pipeline
	destroyed bool
}

func (p *fakePipeline) Destroy() { p.destroyed = true }

type fakeModel struct {
	*renderertest.Geometry
	destroyed bool
}

func (m *fakeModel) Destroy() { m.destroyed = true }

type testEngine struct {
	*Engine
	rec       *renderertest.Recorder
	win       *fakeWindow
	device    *renderertest.Device
	factory   *renderertest.ChainFactory
	pipelines []*fakePipeline
	models    []*fakeModel
	failBuild error
}

func newTestEngine(t *testing.T, game *Game) *testEngine {
	t.Helper()
	rec := &renderertest.Recorder{}
	te := &testEngine{
		rec:     rec,
		win:     &fakeWindow{Surface: renderertest.NewSurface(renderer.Extent{Width: 800, Height: 600})},
		device:  renderertest.NewDevice(rec),
		factory: &renderertest.ChainFactory{ImageCounts: []int{2}, Recorder: rec},
	}

	config := DefaultApplicationConfig()
	dir := t.TempDir()
	config.Shaders.Vertex = filepath.Join(dir, "simple_shader.vert.spv")
	config.Shaders.Fragment = filepath.Join(dir, "simple_shader.frag.spv")

	e := newEngine(game, config, core.NewEventQueue())
	e.window = te.win
	e.buildPipeline = func(pass renderer.RenderPass) (renderer.Pipeline, error) {
		if te.failBuild != nil {
			return nil, te.failBuild
		}
		p := &fakePipeline{Pipeline: &renderertest.Pipeline{
			Name:     fmt.Sprintf("p%d", len(te.pipelines)),
			Recorder: rec,
		}}
		te.pipelines = append(te.pipelines, p)
		return p, nil
	}
	e.buildModel = func(vertices []math.Vertex2D) (renderer.Geometry, error) {
		m := &fakeModel{Geometry: &renderertest.Geometry{
			Name:     fmt.Sprintf("m%d", len(te.models)),
			Vertices: uint32(len(vertices)),
			Recorder: rec,
		}}
		te.models = append(te.models, m)
		return m, nil
	}
	te.Engine = e

	r, err := renderer.New(te.win, te.device, te.factory)
	require.NoError(t, err)
	require.NoError(t, e.start(te.device, r))
	rec.Reset()
	return te
}

func triangleVertices() []math.Vertex2D {
	return []math.Vertex2D{
		{Position: math.NewVec2(0, -.5), Colour: math.NewVec3(1, 0, 0)},
		{Position: math.NewVec2(.5, .5), Colour: math.NewVec3(0, 1, 0)},
		{Position: math.NewVec2(-.5, .5), Colour: math.NewVec3(0, 0, 1)},
	}
}

func triangleGame() *Game {
	return &Game{
		FnInitialize: func(scene Scene) error {
			model, err := scene.CreateModel(triangleVertices())
			if err != nil {
				return err
			}
			_, obj := scene.Objects().Create()
			obj.Model = model
			return nil
		},
	}
}

func TestNewRequiresInitialize(t *testing.T) {
	_, err := New(&Game{}, nil)
	assert.Error(t, err)

	config := DefaultApplicationConfig()
	config.Window.Width = 0
	_, err = New(triangleGame(), config)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestStartBuildsPipelineAndScene(t *testing.T) {
	te := newTestEngine(t, triangleGame())

	assert.Equal(t, EngineStageInitialized, te.Stage())
	require.Len(t, te.pipelines, 1)
	assert.Same(t, te.pipelines[0], te.renderSystem.Pipeline())
	require.Len(t, te.models, 1)
	assert.Equal(t, 1, te.Objects().Len())
}

func TestRunDrawsUntilWindowCloses(t *testing.T) {
	var updates int
	game := triangleGame()
	game.FnUpdate = func(deltaTime float64) error {
		assert.GreaterOrEqual(t, deltaTime, 0.0)
		updates++
		return nil
	}
	te := newTestEngine(t, game)
	te.win.closeAfter = 3

	require.NoError(t, te.Run())

	assert.Equal(t, 2, updates)
	assert.Equal(t, 2, te.rec.Count("draw 3"))
	assert.Equal(t, 2, te.rec.Count("bind-pipeline p0"))
	assert.Len(t, te.factory.Last().Submitted, 2)
	assert.Equal(t, EngineStageRunning, te.Stage())
}

func TestRunStopsOnUpdateError(t *testing.T) {
	boom := errors.New("boom")
	game := triangleGame()
	game.FnUpdate = func(float64) error { return boom }
	te := newTestEngine(t, game)

	err := te.Run()
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, te.rec.Count("draw 3"))
}

func TestEscapeRequestsClose(t *testing.T) {
	te := newTestEngine(t, triangleGame())
	te.win.onPump = func(int) {
		te.events.Push(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, KeyCode: core.KEY_ESCAPE})
	}

	require.NoError(t, te.Run())
	assert.True(t, te.win.Closed)
	assert.Zero(t, te.rec.Count("draw 3"))
}

func TestQuitEventRequestsClose(t *testing.T) {
	te := newTestEngine(t, triangleGame())
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})

	require.NoError(t, te.handleEvents())
	assert.True(t, te.win.Closed)
}

func TestOutOfDateFrameIsSkipped(t *testing.T) {
	te := newTestEngine(t, triangleGame())
	te.factory.Last().Acquires = []renderertest.AcquireResult{{Status: renderer.StatusOutOfDate}}

	require.NoError(t, te.drawFrame())
	assert.Zero(t, te.rec.Count("draw 3"))
	// The rebuild replaced the pipeline for the new render pass.
	require.Len(t, te.pipelines, 2)
	assert.True(t, te.pipelines[0].destroyed)
	assert.Same(t, te.pipelines[1], te.renderSystem.Pipeline())

	require.NoError(t, te.drawFrame())
	assert.Equal(t, 1, te.rec.Count("draw 3"))
	assert.Equal(t, 1, te.rec.Count("bind-pipeline p1"))
}

func TestShaderChangesCoalesceIntoOneReload(t *testing.T) {
	te := newTestEngine(t, triangleGame())
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Path: te.config.Shaders.Vertex})
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Path: te.config.Shaders.Fragment})
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Path: "assets/models/other.model.toml"})
	waits := te.device.WaitIdleCalls

	require.NoError(t, te.handleEvents())
	require.Len(t, te.pipelines, 2)
	assert.True(t, te.pipelines[0].destroyed)
	assert.Same(t, te.pipelines[1], te.renderSystem.Pipeline())
	assert.Equal(t, waits+1, te.device.WaitIdleCalls)
}

func TestFailedReloadKeepsPipeline(t *testing.T) {
	te := newTestEngine(t, triangleGame())
	te.failBuild = core.ErrShaderInvalid
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, KeyCode: core.KEY_R})

	require.NoError(t, te.handleEvents())
	assert.False(t, te.pipelines[0].destroyed)
	assert.Same(t, te.pipelines[0], te.renderSystem.Pipeline())
}

func TestResizeNotifiesGame(t *testing.T) {
	var sizes [][2]uint32
	game := triangleGame()
	game.FnOnResize = func(w, h uint32) error {
		sizes = append(sizes, [2]uint32{w, h})
		return nil
	}
	te := newTestEngine(t, game)
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: 0, Height: 0})
	te.events.Push(core.EventContext{Type: core.EVENT_CODE_RESIZED, Width: 1024, Height: 768})

	require.NoError(t, te.handleEvents())
	assert.Equal(t, [][2]uint32{{1024, 768}}, sizes)
}

func TestLoadModelFromAsset(t *testing.T) {
	te := newTestEngine(t, &Game{FnInitialize: func(Scene) error { return nil }})
	path := filepath.Join(t.TempDir(), "triangle.model.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[vertices]]
position = [0.0, -0.5]
color = [1.0, 0.0, 0.0]

[[vertices]]
position = [0.5, 0.5]
color = [0.0, 1.0, 0.0]

[[vertices]]
position = [-0.5, 0.5]
color = [0.0, 0.0, 1.0]
`), 0o644))

	model, err := te.LoadModel(path)
	require.NoError(t, err)
	require.Len(t, te.models, 1)
	assert.Same(t, te.models[0], model)
	assert.Equal(t, uint32(3), te.models[0].Vertices)

	_, err = te.LoadModel(filepath.Join(t.TempDir(), "missing.model.toml"))
	assert.Error(t, err)
}

func TestShutdownReleasesResources(t *testing.T) {
	shutdown := false
	game := triangleGame()
	game.FnShutdown = func() error {
		shutdown = true
		return nil
	}
	te := newTestEngine(t, game)
	chain := te.factory.Last()

	require.NoError(t, te.Shutdown())
	assert.True(t, shutdown)
	assert.True(t, te.models[0].destroyed)
	assert.True(t, te.pipelines[0].destroyed)
	assert.True(t, chain.Destroyed)
	assert.Equal(t, EngineStageShuttingDown, te.Stage())
}

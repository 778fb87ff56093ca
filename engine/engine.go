package engine

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/chronos/engine/assets"
	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/platform"
	"github.com/spaghettifunk/chronos/engine/renderer"
	"github.com/spaghettifunk/chronos/engine/renderer/vulkan"
	"github.com/spaghettifunk/chronos/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// window is the part of the platform the frame loop drives.
type window interface {
	renderer.Surface
	PumpMessages()
	RequestClose()
}

type destroyer interface {
	Destroy()
}

type pipelineBuilder func(pass renderer.RenderPass) (renderer.Pipeline, error)
type modelBuilder func(vertices []math.Vertex2D) (renderer.Geometry, error)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig

	events       *core.EventQueue
	platform     *platform.Platform
	window       window
	assetManager *assets.AssetManager

	context       *vulkan.Context
	device        renderer.Device
	renderer      *renderer.Renderer
	buildPipeline pipelineBuilder
	buildModel    modelBuilder

	registry     *systems.ObjectRegistry
	renderSystem *systems.RenderSystem
	models       []renderer.Geometry

	clock      *core.Clock
	metrics    *core.Metrics
	lastTime   float64
	lastReport float64
}

func New(g *Game, config *ApplicationConfig) (*Engine, error) {
	if g == nil || g.FnInitialize == nil {
		err := fmt.Errorf("game must provide an initialize function")
		core.LogError(err.Error())
		return nil, err
	}
	if config == nil {
		config = DefaultApplicationConfig()
	}
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	events := core.NewEventQueue()
	p := platform.New(events)
	e := newEngine(g, config, events)
	e.platform = p
	e.window = p
	return e, nil
}

func newEngine(g *Game, config *ApplicationConfig, events *core.EventQueue) *Engine {
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		events:       events,
		assetManager: assets.NewAssetManager(events),
		registry:     systems.NewObjectRegistry(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
}

// Initialize opens the window, brings up Vulkan and the first swapchain,
// builds the pipeline and lets the game populate the scene.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.config

	if err := core.SetLogLevel(config.Log.Level); err != nil {
		return fmt.Errorf("%w: %s", core.ErrConfig, err)
	}

	if err := e.platform.Startup(config.Window.Title,
		config.Window.PosX,
		config.Window.PosY,
		config.Window.Width,
		config.Window.Height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(config.Assets.Dir, config.Shaders.HotReload); err != nil {
		return err
	}

	ctx, err := vulkan.NewContext(e.platform, vulkan.Config{
		ApplicationName:   config.Window.Title,
		Validation:        config.Renderer.Validation,
		VSync:             config.Renderer.VSync,
		MaxFramesInFlight: config.Renderer.MaxFramesInFlight,
	})
	if err != nil {
		return err
	}
	e.context = ctx

	r, err := renderer.New(e.platform, ctx, ctx, renderer.WithClearValues(config.ClearValues()))
	if err != nil {
		return err
	}

	e.buildPipeline = func(pass renderer.RenderPass) (renderer.Pipeline, error) {
		vertexCode, err := e.assetManager.LoadShader(config.Shaders.Vertex)
		if err != nil {
			return nil, err
		}
		fragmentCode, err := e.assetManager.LoadShader(config.Shaders.Fragment)
		if err != nil {
			return nil, err
		}
		p, err := vulkan.NewPipeline(ctx, pass, vertexCode, fragmentCode, vulkan.DefaultPipelineConfig())
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	e.buildModel = func(vertices []math.Vertex2D) (renderer.Geometry, error) {
		m, err := vulkan.NewModel(ctx, vertices)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	return e.start(ctx, r)
}

// start finishes initialization once a device and a renderer exist.
func (e *Engine) start(device renderer.Device, r *renderer.Renderer) error {
	e.device = device
	e.renderer = r

	pipeline, err := e.buildPipeline(r.RenderPass())
	if err != nil {
		return err
	}
	e.renderSystem = systems.NewRenderSystem(pipeline, e.registry)

	// Pipelines are tied to the render pass of the chain they were built for.
	r.OnRebuild(func(chain renderer.Chain) error {
		return e.replacePipeline(chain.RenderPass())
	})

	if err := e.gameInstance.FnInitialize(e); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized, %d objects in scene", e.registry.Len())
	return nil
}

// Run drives the frame loop until the window is asked to close.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for !e.window.ShouldClose() {
		e.window.PumpMessages()
		if err := e.handleEvents(); err != nil {
			return err
		}
		if e.window.ShouldClose() {
			break
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				err = fmt.Errorf("game update failed: %w", err)
				core.LogError(err.Error())
				return err
			}
		}

		if err := e.drawFrame(); err != nil {
			return err
		}

		e.metrics.Update(delta)
		if currentTime-e.lastReport >= 1.0 {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("fps: %.0f, frame time: %.3fms", fps, frameTime)
			e.lastReport = currentTime
		}
		e.lastTime = currentTime
	}

	return e.device.WaitIdle()
}

// drawFrame records and presents one frame. A frame the renderer skipped
// because the swapchain was rebuilt is not an error.
func (e *Engine) drawFrame() error {
	cb, err := e.renderer.BeginFrame()
	if err != nil {
		return err
	}
	if cb == nil {
		return nil
	}
	e.renderer.BeginRenderPass(cb)
	e.renderSystem.Render(cb)
	e.renderer.EndRenderPass(cb)
	return e.renderer.EndFrame()
}

// handleEvents drains the queue once per iteration, between frames. Several
// shader changes in one iteration cause a single reload.
func (e *Engine) handleEvents() error {
	reload := false
	for _, event := range e.events.Drain() {
		switch event.Type {
		case core.EVENT_CODE_APPLICATION_QUIT:
			core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
			e.window.RequestClose()
		case core.EVENT_CODE_KEY_PRESSED:
			switch event.KeyCode {
			case core.KEY_ESCAPE:
				e.window.RequestClose()
			case core.KEY_R:
				reload = true
			}
		case core.EVENT_CODE_RESIZED:
			if err := e.onResized(event); err != nil {
				return err
			}
		case core.EVENT_CODE_ASSET_CHANGED:
			if e.isShader(event.Path) {
				reload = true
			}
		}
	}
	if reload {
		e.reloadShaders()
	}
	return nil
}

// onResized only informs the game; the renderer picks the new size up from
// the surface's resize flag.
func (e *Engine) onResized(event core.EventContext) error {
	core.LogDebug("Window resize: %d, %d", event.Width, event.Height)
	if event.Width == 0 || event.Height == 0 {
		core.LogInfo("Window minimized, frames paused until it is restored.")
		return nil
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(event.Width, event.Height)
	}
	return nil
}

// reloadShaders rebuilds the pipeline from the shaders on disk. A shader
// that fails to load keeps the current pipeline in place.
func (e *Engine) reloadShaders() {
	if err := e.device.WaitIdle(); err != nil {
		core.LogError("failed to wait for device idle before shader reload: %s", err)
		return
	}
	if err := e.replacePipeline(e.renderer.RenderPass()); err != nil {
		core.LogWarn("shader reload failed, keeping the current pipeline: %s", err)
		return
	}
	core.LogInfo("shaders reloaded")
}

// replacePipeline builds a pipeline for pass and destroys the previous one.
// The device must be idle.
func (e *Engine) replacePipeline(pass renderer.RenderPass) error {
	pipeline, err := e.buildPipeline(pass)
	if err != nil {
		return err
	}
	if old, ok := e.renderSystem.Pipeline().(destroyer); ok {
		old.Destroy()
	}
	e.renderSystem.SetPipeline(pipeline)
	return nil
}

func (e *Engine) isShader(path string) bool {
	return samePath(path, e.config.Shaders.Vertex) || samePath(path, e.config.Shaders.Fragment)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func (e *Engine) Objects() *systems.ObjectRegistry {
	return e.registry
}

// LoadModel reads a model asset and uploads its vertices. The engine owns
// the returned geometry and destroys it on shutdown.
func (e *Engine) LoadModel(path string) (renderer.Geometry, error) {
	res, err := e.assetManager.LoadAsset(path)
	if err != nil {
		return nil, err
	}
	vertices, ok := res.Data.([]math.Vertex2D)
	if !ok {
		err := fmt.Errorf("%s is not a model asset", path)
		core.LogError(err.Error())
		return nil, err
	}
	defer func() {
		if err := e.assetManager.UnloadAsset(res); err != nil {
			core.LogWarn("failed to unload %s: %s", path, err)
		}
	}()
	return e.CreateModel(vertices)
}

// CreateModel uploads vertices to the GPU. The engine owns the returned
// geometry and destroys it on shutdown.
func (e *Engine) CreateModel(vertices []math.Vertex2D) (renderer.Geometry, error) {
	model, err := e.buildModel(vertices)
	if err != nil {
		return nil, err
	}
	e.models = append(e.models, model)
	return model, nil
}

// Shutdown releases everything in reverse creation order. It copes with a
// partially initialized engine.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			core.LogError("failed to wait for device idle on shutdown: %s", err)
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}

	for _, model := range e.models {
		if d, ok := model.(destroyer); ok {
			d.Destroy()
		}
	}
	e.models = nil

	if e.renderSystem != nil {
		if d, ok := e.renderSystem.Pipeline().(destroyer); ok {
			d.Destroy()
		}
		e.renderSystem = nil
	}
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Destroy()
		e.context = nil
	}
	e.device = nil

	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW window. Window callbacks are closures over the
// Platform and only record state or push into the event queue; the frame
// loop drains the queue once per iteration.
type Platform struct {
	Window *glfw.Window

	events  *core.EventQueue
	width   uint32
	height  uint32
	resized bool
}

func New(events *core.EventQueue) *Platform {
	return &Platform{
		Window: nil,
		events: events,
	}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		p.onKey(core.KeyCode(key), action)
	})
	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		p.onFramebufferResize(width, height)
	})
	p.Window.SetCloseCallback(func(w *glfw.Window) {
		p.onClose()
	})
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	fbWidth, fbHeight := p.Window.GetFramebufferSize()
	p.width, p.height = uint32(fbWidth), uint32(fbHeight)

	core.LogInfo("window created: %q %dx%d", applicationName, p.width, p.height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events without blocking.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) onFramebufferResize(width, height int) {
	p.resized = true
	p.width = uint32(width)
	p.height = uint32(height)
	p.events.Push(core.EventContext{
		Type:   core.EVENT_CODE_RESIZED,
		Width:  p.width,
		Height: p.height,
	})
}

func (p *Platform) onClose() {
	p.events.Push(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func (p *Platform) onKey(key core.KeyCode, action glfw.Action) {
	switch action {
	case glfw.Press:
		p.events.Push(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, KeyCode: key})
	case glfw.Release:
		p.events.Push(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, KeyCode: key})
	}
}

// Extent returns the framebuffer size in pixels, which differs from the
// window size on high DPI displays.
func (p *Platform) Extent() renderer.Extent {
	return renderer.Extent{Width: p.width, Height: p.height}
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

// RequestClose flags the window for closing; the loop exits on its next check.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

func (p *Platform) WasResized() bool {
	return p.resized
}

func (p *Platform) ResetResized() {
	p.resized = false
}

func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

// GetRequiredExtensionNames lists the instance extensions GLFW needs to
// create a Vulkan surface for the window.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateWindowSurface creates a VkSurfaceKHR for the window and returns its
// raw handle.
func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

// GetInstanceProcAddress returns the Vulkan loader entry point GLFW found.
func (p *Platform) GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

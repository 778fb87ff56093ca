// Package renderertest provides in-memory implementations of the renderer
// interfaces. Every command is appended to a shared Recorder so tests can
// assert on ordering without a GPU.
package renderertest

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/chronos/engine/renderer"
)

type Recorder struct {
	mu       sync.Mutex
	commands []string
}

func (r *Recorder) Record(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, fmt.Sprintf(format, args...))
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// Count returns how many recorded commands equal cmd.
func (r *Recorder) Count(cmd string) int {
	n := 0
	for _, c := range r.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

type CommandBuffer struct {
	ID       int
	Recorder *Recorder
	BeginErr error
	EndErr   error
	Freed    bool
	// LastClear holds the clear values of the most recent render pass.
	LastClear renderer.ClearValues
}

func (c *CommandBuffer) Begin() error {
	c.Recorder.Record("begin cb%d", c.ID)
	return c.BeginErr
}

func (c *CommandBuffer) End() error {
	c.Recorder.Record("end cb%d", c.ID)
	return c.EndErr
}

func (c *CommandBuffer) BeginRenderPass(pass renderer.RenderPass, framebuffer renderer.Framebuffer, area renderer.Extent, clear renderer.ClearValues) {
	c.LastClear = clear
	c.Recorder.Record("begin-render-pass %dx%d", area.Width, area.Height)
}

func (c *CommandBuffer) EndRenderPass() {
	c.Recorder.Record("end-render-pass")
}

func (c *CommandBuffer) SetViewport(viewport renderer.Viewport) {
	c.Recorder.Record("set-viewport %gx%g", viewport.Width, viewport.Height)
}

func (c *CommandBuffer) SetScissor(scissor renderer.Rect2D) {
	c.Recorder.Record("set-scissor %dx%d", scissor.Extent.Width, scissor.Extent.Height)
}

// Surface returns the queued extents one by one on each WaitEvents call and
// then keeps returning the last one.
type Surface struct {
	Extents    []renderer.Extent
	Closed     bool
	Resized    bool
	WaitCalls  int
	ResetCalls int
	current    int
}

func NewSurface(extents ...renderer.Extent) *Surface {
	return &Surface{Extents: extents}
}

// SetExtents replaces the queued extents and rewinds to the first one.
func (s *Surface) SetExtents(extents ...renderer.Extent) {
	s.Extents = extents
	s.current = 0
}

func (s *Surface) Extent() renderer.Extent {
	if len(s.Extents) == 0 {
		return renderer.Extent{}
	}
	return s.Extents[s.current]
}

func (s *Surface) ShouldClose() bool { return s.Closed }
func (s *Surface) WasResized() bool  { return s.Resized }

func (s *Surface) ResetResized() {
	s.ResetCalls++
	s.Resized = false
}

func (s *Surface) WaitEvents() {
	s.WaitCalls++
	if s.current < len(s.Extents)-1 {
		s.current++
	}
}

type Device struct {
	Recorder      *Recorder
	Allocated     [][]renderer.CommandBuffer
	FreedCount    int
	WaitIdleCalls int
	AllocateErr   error
	nextID        int
}

func NewDevice(rec *Recorder) *Device {
	return &Device{Recorder: rec}
}

func (d *Device) AllocateCommandBuffers(count int) ([]renderer.CommandBuffer, error) {
	if d.AllocateErr != nil {
		return nil, d.AllocateErr
	}
	buffers := make([]renderer.CommandBuffer, count)
	for i := range buffers {
		buffers[i] = &CommandBuffer{ID: d.nextID, Recorder: d.Recorder}
		d.nextID++
	}
	d.Allocated = append(d.Allocated, buffers)
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers []renderer.CommandBuffer) {
	for _, b := range buffers {
		if cb, ok := b.(*CommandBuffer); ok {
			cb.Freed = true
		}
		d.FreedCount++
	}
}

func (d *Device) WaitIdle() error {
	d.WaitIdleCalls++
	return nil
}

// AcquireResult scripts one AcquireNextImage call.
type AcquireResult struct {
	Index  uint32
	Status renderer.Status
	Err    error
}

// PresentResult scripts one Present call.
type PresentResult struct {
	Status renderer.Status
	Err    error
}

type RenderPass struct{}

func (RenderPass) AttachmentCount() uint32 { return 2 }

type Framebuffer struct {
	Size renderer.Extent
}

func (f Framebuffer) Extent() renderer.Extent { return f.Size }

// Chain plays back scripted acquire and present results. When a script runs
// out it cycles through its images and reports StatusOK.
type Chain struct {
	Size      renderer.Extent
	Images    int
	Previous  renderer.Chain
	Acquires  []AcquireResult
	Presents  []PresentResult
	Submitted []uint32
	Destroyed bool
	Recorder  *Recorder

	nextImage uint32
}

func (c *Chain) AcquireNextImage() (uint32, renderer.Status, error) {
	c.Recorder.Record("acquire")
	if len(c.Acquires) > 0 {
		r := c.Acquires[0]
		c.Acquires = c.Acquires[1:]
		return r.Index, r.Status, r.Err
	}
	idx := c.nextImage
	c.nextImage = (c.nextImage + 1) % uint32(c.Images)
	return idx, renderer.StatusOK, nil
}

func (c *Chain) Submit(cb renderer.CommandBuffer, imageIndex uint32) error {
	c.Recorder.Record("submit %d", imageIndex)
	c.Submitted = append(c.Submitted, imageIndex)
	return nil
}

func (c *Chain) Present(imageIndex uint32) (renderer.Status, error) {
	c.Recorder.Record("present %d", imageIndex)
	if len(c.Presents) > 0 {
		r := c.Presents[0]
		c.Presents = c.Presents[1:]
		return r.Status, r.Err
	}
	return renderer.StatusOK, nil
}

func (c *Chain) RenderPass() renderer.RenderPass { return RenderPass{} }

func (c *Chain) Framebuffer(imageIndex uint32) renderer.Framebuffer {
	return Framebuffer{Size: c.Size}
}

func (c *Chain) Extent() renderer.Extent { return c.Size }
func (c *Chain) ImageCount() int         { return c.Images }

func (c *Chain) Destroy() {
	c.Destroyed = true
}

// ChainFactory builds fake chains. ImageCounts is consumed one entry per
// chain; the last entry is reused once the list is exhausted.
type ChainFactory struct {
	ImageCounts []int
	Created     []*Chain
	Recorder    *Recorder
	// Configure, if set, is applied to every chain before it is returned.
	Configure func(c *Chain)
}

func (f *ChainFactory) NewChain(extent renderer.Extent, previous renderer.Chain) (renderer.Chain, error) {
	count := 2
	if n := len(f.Created); n < len(f.ImageCounts) {
		count = f.ImageCounts[n]
	} else if len(f.ImageCounts) > 0 {
		count = f.ImageCounts[len(f.ImageCounts)-1]
	}
	c := &Chain{Size: extent, Images: count, Previous: previous, Recorder: f.Recorder}
	if f.Configure != nil {
		f.Configure(c)
	}
	f.Created = append(f.Created, c)
	return c, nil
}

// Last returns the most recently created chain.
func (f *ChainFactory) Last() *Chain {
	if len(f.Created) == 0 {
		return nil
	}
	return f.Created[len(f.Created)-1]
}

type Pipeline struct {
	Name     string
	Recorder *Recorder
	// Pushed keeps a copy of every push constant block.
	Pushed [][]byte
}

func (p *Pipeline) Bind(cb renderer.CommandBuffer) {
	p.Recorder.Record("bind-pipeline %s", p.Name)
}

func (p *Pipeline) PushConstants(cb renderer.CommandBuffer, data []byte) {
	p.Recorder.Record("push-constants %d", len(data))
	p.Pushed = append(p.Pushed, append([]byte(nil), data...))
}

type Geometry struct {
	Name     string
	Vertices uint32
	Recorder *Recorder
}

func (g *Geometry) Bind(cb renderer.CommandBuffer) {
	g.Recorder.Record("bind-geometry %s", g.Name)
}

func (g *Geometry) Draw(cb renderer.CommandBuffer) {
	g.Recorder.Record("draw %d", g.Vertices)
}

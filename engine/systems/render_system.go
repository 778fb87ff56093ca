package systems

import (
	"github.com/spaghettifunk/chronos/engine/renderer"
)

// RenderSystem records every object of a registry with one pipeline.
type RenderSystem struct {
	pipeline renderer.Pipeline
	registry *ObjectRegistry
}

func NewRenderSystem(pipeline renderer.Pipeline, registry *ObjectRegistry) *RenderSystem {
	return &RenderSystem{
		pipeline: pipeline,
		registry: registry,
	}
}

// SetPipeline swaps the pipeline, used after the presentation chain or the
// shaders were rebuilt.
func (rs *RenderSystem) SetPipeline(pipeline renderer.Pipeline) {
	rs.pipeline = pipeline
}

func (rs *RenderSystem) Pipeline() renderer.Pipeline {
	return rs.pipeline
}

// Render must be called inside the frame's render pass. It binds the
// pipeline once, then for each object pushes its constants and draws.
// Geometry is only rebound when the model differs from the previous
// object's.
func (rs *RenderSystem) Render(cb renderer.CommandBuffer) {
	rs.pipeline.Bind(cb)

	var bound renderer.Geometry
	rs.registry.Each(func(_ ObjectHandle, obj *GameObject) {
		if obj.Model == nil {
			return
		}
		if obj.Model != bound {
			obj.Model.Bind(cb)
			bound = obj.Model
		}
		push := NewPushConstantData(obj)
		rs.pipeline.PushConstants(cb, push.Encode())
		obj.Model.Draw(cb)
	})
}

package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

// DefaultPushConstantSize is the size of the per-object push constant
// block: mat2 transform, vec2 offset, vec3 color padded to 16 bytes.
const DefaultPushConstantSize uint32 = 48

const pushConstantStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

/**
 * @brief Fixed-function state a graphics pipeline is built from.
 */
type PipelineConfig struct {
	/** @brief Vertex buffer bindings. */
	BindingDescriptions []vk.VertexInputBindingDescription
	/** @brief Vertex attributes read by the vertex shader. */
	AttributeDescriptions []vk.VertexInputAttributeDescription
	Topology              vk.PrimitiveTopology
	PolygonMode           vk.PolygonMode
	CullMode              vk.CullModeFlagBits
	FrontFace             vk.FrontFace
	BlendEnable           bool
	DepthTest             bool
	DepthWrite            bool
	/** @brief Size in bytes of the push constant range, 0 for none. */
	PushConstantSize uint32
	/** @brief State set while recording instead of baked in. */
	DynamicStates []vk.DynamicState
}

// DefaultPipelineConfig describes the one pipeline the renderer uses:
// triangle lists of Vertex, filled, no culling, no blending, depth tested
// and written, with viewport and scissor set per frame.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BindingDescriptions:   VertexBindingDescriptions(),
		AttributeDescriptions: VertexAttributeDescriptions(),
		Topology:              vk.PrimitiveTopologyTriangleList,
		PolygonMode:           vk.PolygonModeFill,
		CullMode:              vk.CullModeNone,
		FrontFace:             vk.FrontFaceClockwise,
		BlendEnable:           false,
		DepthTest:             true,
		DepthWrite:            true,
		PushConstantSize:      DefaultPushConstantSize,
		DynamicStates:         []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}
}

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type Pipeline struct {
	context *Context
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	config         PipelineConfig
}

var _ renderer.Pipeline = (*Pipeline)(nil)

// NewPipeline compiles a graphics pipeline for renderPass from a vertex and
// fragment SPIR-V pair. The shader modules only live for the duration of
// the call.
func NewPipeline(context *Context, renderPass renderer.RenderPass, vertexCode, fragmentCode []uint32, config PipelineConfig) (*Pipeline, error) {
	rp := mustRenderPass(renderPass)
	outPipeline := &Pipeline{context: context, config: config}

	vertexStage, err := NewShaderStage(context, vertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	defer vertexStage.Destroy(context)
	fragmentStage, err := NewShaderStage(context, fragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	defer fragmentStage.Destroy(context)

	stages := []vk.PipelineShaderStageCreateInfo{
		vertexStage.ShaderStageCreateInfo,
		fragmentStage.ShaderStageCreateInfo,
	}

	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             config.PolygonMode,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               config.FrontFace,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vkBool(config.DepthTest),
		DepthWriteEnable:      vkBool(config.DepthWrite),
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vkBool(config.BlendEnable),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(config.DynamicStates)),
		PDynamicStates:    config.DynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.BindingDescriptions)),
		PVertexBindingDescriptions:      config.BindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(config.AttributeDescriptions)),
		PVertexAttributeDescriptions:    config.AttributeDescriptions,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               config.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if config.PushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: pushConstantStages,
			Offset:     0,
			Size:       config.PushConstantSize,
		}}
	}

	if err := context.locks.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		result := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &layout)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(result, true))
		}
		outPipeline.PipelineLayout = layout
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          rp.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := context.locks.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pipelines)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		outPipeline.Destroy()
		return nil, err
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

// Bind panics when the pipeline was destroyed or cb is outside a render
// pass; both are programming errors in the frame loop.
func (p *Pipeline) Bind(cb renderer.CommandBuffer) {
	buffer := mustCommandBuffer(cb)
	if p.Handle == nil {
		panic("vulkan: cannot bind a destroyed pipeline")
	}
	if !buffer.InRenderPass() {
		panic(fmt.Sprintf("vulkan: cannot bind pipeline while command buffer is %s", buffer.State))
	}
	vk.CmdBindPipeline(buffer.Handle, vk.PipelineBindPointGraphics, p.Handle)
}

func (p *Pipeline) PushConstants(cb renderer.CommandBuffer, data []byte) {
	if len(data) == 0 {
		return
	}
	if uint32(len(data)) > p.config.PushConstantSize {
		panic(fmt.Sprintf("vulkan: push constant block of %d bytes exceeds range of %d", len(data), p.config.PushConstantSize))
	}
	buffer := mustCommandBuffer(cb)
	vk.CmdPushConstants(buffer.Handle, p.PipelineLayout, pushConstantStages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// Destroy releases the pipeline and its layout. The device must be idle.
func (p *Pipeline) Destroy() {
	_ = p.context.locks.SafeCall(PipelineManagement, func() error {
		if p.Handle != nil {
			vk.DestroyPipeline(p.context.Device.LogicalDevice, p.Handle, p.context.Allocator)
			p.Handle = nil
		}
		if p.PipelineLayout != nil {
			vk.DestroyPipelineLayout(p.context.Device.LogicalDevice, p.PipelineLayout, p.context.Allocator)
			p.PipelineLayout = nil
		}
		return nil
	})
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

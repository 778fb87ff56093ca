package vulkan

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/chronos/engine/core"
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

// VertexStride is the size of one math.Vertex2D in the vertex buffer:
// vec2 position followed by vec3 colour, tightly packed.
const VertexStride = 20

// VertexBindingDescriptions describes the single interleaved vertex buffer.
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions maps position to location 0 and colour to
// location 1.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   0,
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   8,
		},
	}
}

// encodeVertices lays out vertices the way the attribute descriptions
// expect them.
func encodeVertices(vertices []math.Vertex2D) []byte {
	out := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		b := out[i*VertexStride:]
		binary.LittleEndian.PutUint32(b[0:], stdmath.Float32bits(v.Position.X))
		binary.LittleEndian.PutUint32(b[4:], stdmath.Float32bits(v.Position.Y))
		binary.LittleEndian.PutUint32(b[8:], stdmath.Float32bits(v.Colour.X))
		binary.LittleEndian.PutUint32(b[12:], stdmath.Float32bits(v.Colour.Y))
		binary.LittleEndian.PutUint32(b[16:], stdmath.Float32bits(v.Colour.Z))
	}
	return out
}

// Model is an immutable vertex buffer in host visible, coherent memory.
type Model struct {
	context     *Context
	Buffer      vk.Buffer
	Memory      vk.DeviceMemory
	vertexCount uint32
}

var _ renderer.Geometry = (*Model)(nil)

func NewModel(context *Context, vertices []math.Vertex2D) (*Model, error) {
	if len(vertices) < 3 {
		err := fmt.Errorf("model has %d vertices: %w", len(vertices), core.ErrInvalidModel)
		core.LogError(err.Error())
		return nil, err
	}

	data := encodeVertices(vertices)
	m := &Model{context: context, vertexCount: uint32(len(vertices))}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(len(data)),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer); res != vk.Success {
		err := fmt.Errorf("failed to create vertex buffer: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	m.Buffer = buffer

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, m.Buffer, &requirements)
	requirements.Deref()

	memoryType, err := context.FindMemoryIndex(
		requirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		m.Destroy()
		return nil, fmt.Errorf("vertex buffer memory: %w", err)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		m.Destroy()
		err := fmt.Errorf("failed to allocate vertex buffer memory: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	m.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, m.Buffer, m.Memory, 0); res != vk.Success {
		m.Destroy()
		err := fmt.Errorf("failed to bind vertex buffer memory: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, m.Memory, 0, vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		m.Destroy()
		err := fmt.Errorf("failed to map vertex buffer memory: %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, m.Memory)

	core.LogDebug("Model created with %d vertices", m.vertexCount)
	return m, nil
}

func (m *Model) VertexCount() uint32 {
	return m.vertexCount
}

func (m *Model) Bind(cb renderer.CommandBuffer) {
	buffer := mustCommandBuffer(cb)
	vk.CmdBindVertexBuffers(buffer.Handle, 0, 1, []vk.Buffer{m.Buffer}, []vk.DeviceSize{0})
}

func (m *Model) Draw(cb renderer.CommandBuffer) {
	buffer := mustCommandBuffer(cb)
	vk.CmdDraw(buffer.Handle, m.vertexCount, 1, 0, 0)
}

// Destroy frees the buffer and its memory. The device must be idle.
func (m *Model) Destroy() {
	if m.Buffer != vk.NullBuffer {
		vk.DestroyBuffer(m.context.Device.LogicalDevice, m.Buffer, m.context.Allocator)
		m.Buffer = vk.NullBuffer
	}
	if m.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(m.context.Device.LogicalDevice, m.Memory, m.context.Allocator)
		m.Memory = vk.NullDeviceMemory
	}
}

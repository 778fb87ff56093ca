package systems

import (
	"encoding/binary"
	stdmath "math"

	"github.com/spaghettifunk/chronos/engine/math"
)

// PushConstantSize matches the push constant block in simple_shader.vert
// and simple_shader.frag.
const PushConstantSize = 48

// Byte offsets inside the block. The vec3 colour is aligned to 16.
const (
	pushTransformOffset = 0
	pushOffsetOffset    = 16
	pushColorOffset     = 32
)

/**
 * @brief Per-object data pushed before each draw.
 */
type PushConstantData struct {
	Transform math.Mat2
	Offset    math.Vec2
	Color     math.Vec3
}

func NewPushConstantData(obj *GameObject) PushConstantData {
	return PushConstantData{
		Transform: obj.Transform.Mat2(),
		Offset:    obj.Transform.Translation,
		Color:     obj.Color,
	}
}

// Encode lays the block out little endian, mat2 column-major, padding
// bytes left at zero.
func (p PushConstantData) Encode() []byte {
	out := make([]byte, PushConstantSize)
	put := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(out[offset:], stdmath.Float32bits(v))
	}
	for i, v := range p.Transform.Data {
		put(pushTransformOffset+i*4, v)
	}
	put(pushOffsetOffset, p.Offset.X)
	put(pushOffsetOffset+4, p.Offset.Y)
	put(pushColorOffset, p.Color.X)
	put(pushColorOffset+4, p.Color.Y)
	put(pushColorOffset+8, p.Color.Z)
	return out
}

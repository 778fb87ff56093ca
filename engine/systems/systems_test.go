package systems

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer/renderertest"
)

func TestRegistryAssignsIncreasingIDs(t *testing.T) {
	r := NewObjectRegistry()
	_, a := r.Create()
	_, b := r.Create()
	assert.Equal(t, ObjectID(0), a.ID)
	assert.Equal(t, ObjectID(1), b.ID)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, math.NewTransform2D(), a.Transform)
}

func TestRegistryStaleHandleDoesNotResolve(t *testing.T) {
	r := NewObjectRegistry()
	h, _ := r.Create()
	require.True(t, r.Destroy(h))
	assert.False(t, r.Destroy(h))

	_, ok := r.Get(h)
	assert.False(t, ok)

	// The slot is reused with a new generation and a new id.
	h2, obj := r.Create()
	assert.Equal(t, h.index, h2.index)
	assert.NotEqual(t, h.generation, h2.generation)
	assert.Equal(t, ObjectID(1), obj.ID)

	_, ok = r.Get(h)
	assert.False(t, ok)
	got, ok := r.Get(h2)
	require.True(t, ok)
	assert.Same(t, obj, got)
}

func TestRegistryInvalidHandle(t *testing.T) {
	r := NewObjectRegistry()
	r.Create()
	_, ok := r.Get(InvalidHandle)
	assert.False(t, ok)
	_, ok = r.Get(ObjectHandle{index: 99, generation: 1})
	assert.False(t, ok)
}

func TestRegistryEachSkipsDestroyed(t *testing.T) {
	r := NewObjectRegistry()
	_, a := r.Create()
	hb, _ := r.Create()
	_, c := r.Create()
	r.Destroy(hb)

	var ids []ObjectID
	r.Each(func(_ ObjectHandle, obj *GameObject) {
		ids = append(ids, obj.ID)
	})
	assert.Equal(t, []ObjectID{a.ID, c.ID}, ids)
	assert.Equal(t, 2, r.Len())
}

func TestPushConstantLayout(t *testing.T) {
	push := PushConstantData{
		Transform: math.NewMat2Columns(math.NewVec2(1, 2), math.NewVec2(3, 4)),
		Offset:    math.NewVec2(5, 6),
		Color:     math.NewVec3(7, 8, 9),
	}
	data := push.Encode()
	require.Len(t, data, PushConstantSize)

	f := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	assert.Equal(t, []float32{1, 2, 3, 4}, []float32{f(0), f(4), f(8), f(12)})
	assert.Equal(t, []float32{5, 6}, []float32{f(16), f(20)})
	assert.Equal(t, []float32{0, 0}, []float32{f(24), f(28)}, "padding before the colour")
	assert.Equal(t, []float32{7, 8, 9}, []float32{f(32), f(36), f(40)})
	assert.Equal(t, float32(0), f(44))
}

func TestNewPushConstantDataFromObject(t *testing.T) {
	obj := &GameObject{
		Color: math.NewVec3(.1, .8, .1),
		Transform: math.Transform2D{
			Translation: math.NewVec2(.2, 0),
			Scale:       math.NewVec2(2, .5),
			Rotation:    .25 * math.K_PI_2,
		},
	}
	push := NewPushConstantData(obj)
	assert.Equal(t, obj.Transform.Translation, push.Offset)
	assert.Equal(t, obj.Color, push.Color)
	assert.True(t, push.Transform.Compare(obj.Transform.Mat2(), 1e-6))
}

func TestRenderSystemRecordingOrder(t *testing.T) {
	rec := &renderertest.Recorder{}
	pipeline := &renderertest.Pipeline{Name: "simple", Recorder: rec}
	triangle := &renderertest.Geometry{Name: "triangle", Vertices: 3, Recorder: rec}
	quad := &renderertest.Geometry{Name: "quad", Vertices: 6, Recorder: rec}

	r := NewObjectRegistry()
	for _, model := range []*renderertest.Geometry{triangle, triangle, quad} {
		_, obj := r.Create()
		obj.Model = model
	}
	// Objects without a model are not drawn.
	r.Create()

	rs := NewRenderSystem(pipeline, r)
	rs.Render(&renderertest.CommandBuffer{Recorder: rec})

	assert.Equal(t, []string{
		"bind-pipeline simple",
		"bind-geometry triangle",
		"push-constants 48",
		"draw 3",
		"push-constants 48",
		"draw 3",
		"bind-geometry quad",
		"push-constants 48",
		"draw 6",
	}, rec.Commands())
	assert.Len(t, pipeline.Pushed, 3)
}

func TestRenderSystemSetPipeline(t *testing.T) {
	rec := &renderertest.Recorder{}
	r := NewObjectRegistry()
	rs := NewRenderSystem(&renderertest.Pipeline{Name: "old", Recorder: rec}, r)

	next := &renderertest.Pipeline{Name: "new", Recorder: rec}
	rs.SetPipeline(next)
	assert.Same(t, next, rs.Pipeline())

	rs.Render(&renderertest.CommandBuffer{Recorder: rec})
	assert.Equal(t, []string{"bind-pipeline new"}, rec.Commands())
}

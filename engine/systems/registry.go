package systems

import (
	"github.com/spaghettifunk/chronos/engine/containers"
	"github.com/spaghettifunk/chronos/engine/math"
	"github.com/spaghettifunk/chronos/engine/renderer"
)

// ObjectID is unique for the lifetime of a registry; ids are never reused.
type ObjectID uint32

/**
 * @brief Anything the render system draws: a model, a flat colour and a 2D
 * transform.
 */
type GameObject struct {
	/** @brief Assigned by the registry on creation. */
	ID ObjectID
	/** @brief The geometry to draw. Objects without a model are skipped. */
	Model renderer.Geometry
	/** @brief Tint pushed to the fragment shader. */
	Color math.Vec3
	/** @brief Placement in normalised device coordinates. */
	Transform math.Transform2D
}

// ObjectHandle addresses a slot of the registry. A handle kept after its
// object was destroyed no longer resolves, even if the slot was reused.
type ObjectHandle struct {
	index      uint32
	generation uint32
}

// InvalidHandle never resolves.
var InvalidHandle = ObjectHandle{}

type objectSlot struct {
	object     GameObject
	generation uint32
	alive      bool
}

// ObjectRegistry owns every GameObject. Slots are recycled through a free
// list; the generation of a slot is bumped on every destroy.
type ObjectRegistry struct {
	slots  []*objectSlot
	free   *containers.RingQueue[uint32]
	nextID ObjectID
	live   int
}

func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{
		free: containers.NewRingQueue[uint32](16),
	}
}

// Create allocates a new object with a fresh id and an identity transform.
// The returned pointer stays valid until the object is destroyed.
func (r *ObjectRegistry) Create() (ObjectHandle, *GameObject) {
	var index uint32
	if i, err := r.free.Dequeue(); err == nil {
		index = i
	} else {
		index = uint32(len(r.slots))
		// Generation 0 is reserved for InvalidHandle.
		r.slots = append(r.slots, &objectSlot{generation: 1})
	}

	slot := r.slots[index]
	slot.alive = true
	slot.object = GameObject{
		ID:        r.nextID,
		Transform: math.NewTransform2D(),
	}
	r.nextID++
	r.live++

	return ObjectHandle{index: index, generation: slot.generation}, &slot.object
}

// Get resolves a handle, reporting false for stale or invalid handles.
func (r *ObjectRegistry) Get(h ObjectHandle) (*GameObject, bool) {
	slot := r.slot(h)
	if slot == nil {
		return nil, false
	}
	return &slot.object, true
}

// Destroy releases the object behind h. It reports false when h is stale.
func (r *ObjectRegistry) Destroy(h ObjectHandle) bool {
	slot := r.slot(h)
	if slot == nil {
		return false
	}
	slot.alive = false
	slot.object = GameObject{}
	slot.generation++
	if slot.generation == 0 {
		slot.generation = 1
	}
	r.free.Enqueue(h.index)
	r.live--
	return true
}

func (r *ObjectRegistry) Len() int {
	return r.live
}

// Each calls fn for every live object in slot order.
func (r *ObjectRegistry) Each(fn func(ObjectHandle, *GameObject)) {
	for i, slot := range r.slots {
		if !slot.alive {
			continue
		}
		fn(ObjectHandle{index: uint32(i), generation: slot.generation}, &slot.object)
	}
}

func (r *ObjectRegistry) slot(h ObjectHandle) *objectSlot {
	if int(h.index) >= len(r.slots) {
		return nil
	}
	slot := r.slots[h.index]
	if !slot.alive || slot.generation != h.generation {
		return nil
	}
	return slot
}

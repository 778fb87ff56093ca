package core

import "sync"

// System internal event codes.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. KeyCode holds the key.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. KeyCode holds the key.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Framebuffer resized from the OS. Width and Height hold the new size.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A watched asset changed on disk. Path holds the file name.
	EVENT_CODE_ASSET_CHANGED SystemEventCode = 0x09
)

// Key codes the engine reacts to. Values follow GLFW so the platform layer
// can forward them untouched.
type KeyCode int

const (
	KEY_ESCAPE KeyCode = 256
	KEY_R      KeyCode = 82
)

type EventContext struct {
	Type    SystemEventCode
	KeyCode KeyCode
	Width   uint32
	Height  uint32
	Path    string
}

// EventQueue collects events raised by platform callbacks (or helper
// goroutines) so the frame loop can drain them explicitly once per
// iteration. Listeners never run inside the callback itself.
type EventQueue struct {
	mu     sync.Mutex
	events []EventContext
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]EventContext, 0, 16),
	}
}

// Push appends an event. Safe to call from any goroutine.
func (q *EventQueue) Push(event EventContext) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
}

// Drain returns every queued event in arrival order and empties the queue.
func (q *EventQueue) Drain() []EventContext {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]EventContext, 0, cap(out))
	return out
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

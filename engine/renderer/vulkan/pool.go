package vulkan

import "sync"

type LockGroup string

// Vulkan requires external synchronisation on queues and pools; each group
// serialises one family of calls.
const (
	CommandPoolManagement LockGroup = "command_pool_management"
	PipelineManagement    LockGroup = "pipeline_management"
	QueueManagement       LockGroup = "queue_management"
)

// LockPool is a lazily populated set of mutexes, one per LockGroup plus one
// per queue family index.
type LockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewLockPool() *LockPool {
	return &LockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (lp *LockPool) lock(group LockGroup) *sync.Mutex {
	lp.mu.Lock()
	l, exists := lp.locks[group]
	if !exists {
		l = &sync.Mutex{}
		lp.locks[group] = l
	}
	lp.mu.Unlock()
	return l
}

func (lp *LockPool) queueLock(queueFamilyIndex uint32) *sync.Mutex {
	lp.mu.Lock()
	l, exists := lp.queueMutexes[queueFamilyIndex]
	if !exists {
		l = &sync.Mutex{}
		lp.queueMutexes[queueFamilyIndex] = l
	}
	lp.mu.Unlock()
	return l
}

// SafeCall runs fn while holding the mutex of group.
func (lp *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lp.lock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

// SafeQueueCall runs fn while holding the mutex of the given queue family.
func (lp *LockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := lp.queueLock(queueFamilyIndex)
	l.Lock()
	defer l.Unlock()

	return fn()
}

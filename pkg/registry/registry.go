package registry

// The registry is the only shared mutable state in the process.  Every
// mutation goes through Put or Update so concurrent sends against the same
// caller-supplied id serialize on the lock instead of racing on map writes.

import (
	"sync"

	"github.com/theapemachine/a2a-bridge/pkg/a2a"
)

/*
Registry owns task records for the lifetime of the process.  Update gives
exclusive per-key mutation; Get returns a copy so callers never alias the
stored record.
*/
type Registry interface {
	Get(id string) (a2a.Task, bool)
	Put(task a2a.Task)
	Update(id string, fn func(task *a2a.Task)) (a2a.Task, bool)
}

// InMemory is the default Registry backed by a mutex-guarded map.  There is
// no persistence; a restart loses all task history.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[string]a2a.Task
}

func NewInMemory() *InMemory {
	return &InMemory{
		tasks: make(map[string]a2a.Task),
	}
}

func (reg *InMemory) Get(id string) (a2a.Task, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	task, ok := reg.tasks[id]
	return task, ok
}

func (reg *InMemory) Put(task a2a.Task) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.tasks[task.ID] = task
}

/*
Update applies fn to the stored record under the write lock and returns the
mutated copy.  Unknown ids return false without creating a task.
*/
func (reg *InMemory) Update(id string, fn func(task *a2a.Task)) (a2a.Task, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	task, ok := reg.tasks[id]

	if !ok {
		return a2a.Task{}, false
	}

	fn(&task)
	reg.tasks[id] = task

	return task, true
}

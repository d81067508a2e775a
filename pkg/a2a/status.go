package a2a

/*
TaskState enumerates the mutually‑exclusive states a task may be in.
*/
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
)

/*
Terminal reports whether no further transitions are valid from the state.
*/
func (state TaskState) Terminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}

	return false
}

/*
TaskStatus carries the lifecycle state plus optional human-readable detail.
The message is serialized as explicit null unless a failure or cancellation
set it, matching the wire contract.
*/
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *string   `json:"message"`
}

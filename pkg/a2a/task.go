package a2a

import (
	"strings"

	"github.com/google/uuid"
)

/*
Task is one unit of submitted work tracked through its lifecycle states.
The artifacts field serializes as explicit null until the first artifact is
attached, matching the wire contract.
*/
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts"`
}

/*
NewTask creates a task in the submitted state.  A caller-supplied id is kept
verbatim; an empty id gets a generated one.
*/
func NewTask(id string) Task {
	if id == "" {
		id = NewTaskID()
	}

	return Task{
		ID:     id,
		Status: TaskStatus{State: TaskStateSubmitted},
	}
}

/*
NewTaskID generates an opaque task identifier of the form task_<12 hex>.
*/
func NewTaskID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "task_" + hex[:12]
}

/*
ToStatus transitions the task.  The detail message is only retained for
failed and canceled states; every other transition clears it.
*/
func (task *Task) ToStatus(state TaskState, message string) {
	task.Status.State = state
	task.Status.Message = nil

	if message != "" && (state == TaskStateFailed || state == TaskStateCanceled) {
		task.Status.Message = &message
	}
}

func (task *Task) AddArtifact(artifact Artifact) {
	task.Artifacts = append(task.Artifacts, artifact)
}

// TaskSendParams carries the payload of a tasks/send call.
type TaskSendParams struct {
	ID       string         `json:"id,omitempty"`
	Message  Message        `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskIDParams is the shared shape of tasks/get and tasks/cancel params.
type TaskIDParams struct {
	ID string `json:"id"`
}

package a2a

// Stream event type discriminators, in the order a streaming send emits them.
const (
	EventStatusUpdate   = "status.update"
	EventArtifactUpdate = "artifact.update"
	EventArtifactDone   = "artifact.done"
	EventTaskComplete   = "task.complete"
)

/*
StatusUpdateEvent announces a lifecycle transition on the event stream.
*/
type StatusUpdateEvent struct {
	Type   string     `json:"type"`
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
}

func NewStatusUpdateEvent(taskID string, status TaskStatus) StatusUpdateEvent {
	return StatusUpdateEvent{
		Type:   EventStatusUpdate,
		TaskID: taskID,
		Status: status,
	}
}

/*
ArtifactEvent carries partial or final responder output.  The same shape
serves artifact.update and artifact.done, distinguished by Type.
*/
type ArtifactEvent struct {
	Type     string   `json:"type"`
	TaskID   string   `json:"taskId"`
	Artifact Artifact `json:"artifact"`
}

func NewArtifactEvent(eventType string, taskID string, artifact Artifact) ArtifactEvent {
	return ArtifactEvent{
		Type:     eventType,
		TaskID:   taskID,
		Artifact: artifact,
	}
}

/*
TaskCompleteEvent is the terminal success event, carrying the full record.
*/
type TaskCompleteEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Task   Task   `json:"task"`
}

func NewTaskCompleteEvent(task Task) TaskCompleteEvent {
	return TaskCompleteEvent{
		Type:   EventTaskComplete,
		TaskID: task.ID,
		Task:   task,
	}
}

package responder

import "context"

/*
Responder produces the answer text for one task.  It is the only collaborator
the task lifecycle depends on; everything upstream of it (inference, tool
execution, retrieval ranking) belongs to the model gateway.
*/
type Responder interface {
	Answer(ctx context.Context, text string) (string, error)
}

package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"

	"github.com/theapemachine/a2a-bridge/pkg/a2a"
	"github.com/theapemachine/a2a-bridge/pkg/errors"
	"github.com/theapemachine/a2a-bridge/pkg/jsonrpc"
)

/*
handleRPC is the central routing for the task methods.  Every outcome is an
HTTP 200 carrying a JSON-RPC response envelope; only the envelope says
whether the call succeeded.
*/
func (srv *Server) handleRPC(ctx fiber.Ctx) error {
	var request jsonrpc.Request

	if err := json.Unmarshal(ctx.Body(), &request); err != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
	}

	if request.JSONRPC != "2.0" {
		return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, errors.ErrInvalidRequest))
	}

	switch request.Method {
	case "tasks/send":
		var params a2a.TaskSendParams

		if rpcErr := unmarshalParams(request.Params, &params); rpcErr != nil {
			return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, rpcErr))
		}

		if wantsEventStream(ctx) {
			return srv.streamSend(ctx, request, params)
		}

		task := srv.processTask(ctx.RequestCtx(), params, nil)

		return ctx.JSON(jsonrpc.NewResponse(request.ID, task))
	case "tasks/get":
		var params a2a.TaskIDParams

		if rpcErr := unmarshalParams(request.Params, &params); rpcErr != nil {
			return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, rpcErr))
		}

		task, ok := srv.registry.Get(params.ID)

		if !ok {
			return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, errors.TaskNotFound(params.ID)))
		}

		return ctx.JSON(jsonrpc.NewResponse(request.ID, task))
	case "tasks/cancel":
		var params a2a.TaskIDParams

		if rpcErr := unmarshalParams(request.Params, &params); rpcErr != nil {
			return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, rpcErr))
		}

		// cancel is unconditional: it marks even finished tasks canceled and
		// never interrupts an in-flight responder call.
		task, ok := srv.registry.Update(params.ID, func(t *a2a.Task) {
			t.ToStatus(a2a.TaskStateCanceled, "")
		})

		if !ok {
			return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, errors.TaskNotFound(params.ID)))
		}

		return ctx.JSON(jsonrpc.NewResponse(request.ID, task))
	default:
		rpcErr := errors.ErrMethodNotFound.WithMessagef(
			"Method not found: %s", request.Method,
		)

		return ctx.JSON(jsonrpc.NewErrorResponse(request.ID, rpcErr))
	}
}

func unmarshalParams(raw json.RawMessage, out any) *errors.RpcError {
	// absent params behave as an empty object; missing fields surface later
	// as a generated task id or a not-found lookup.
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		log.Error("failed to unmarshal params", "error", err)
		return errors.ErrInvalidParams.WithMessagef("failed to unmarshal params: %v", err)
	}

	return nil
}

func wantsEventStream(ctx fiber.Ctx) bool {
	return strings.Contains(ctx.Get(fiber.HeaderAccept), "text/event-stream")
}

/*
processTask runs the full task lifecycle: register as submitted, mark
working, invoke the responder once, then settle into completed or failed.
A responder failure is captured into the task record, never surfaced as a
protocol error.  The optional emit callback receives each lifecycle event
for per-connection streaming; the /events feed gets them regardless.
*/
func (srv *Server) processTask(ctx context.Context, params a2a.TaskSendParams, emit func(any)) a2a.Task {
	task := a2a.NewTask(params.ID)
	srv.registry.Put(task)

	text := params.Message.Text()

	task, _ = srv.registry.Update(task.ID, func(t *a2a.Task) {
		t.ToStatus(a2a.TaskStateWorking, "")
	})

	srv.publish(emit, a2a.NewStatusUpdateEvent(task.ID, task.Status))
	log.Info("task received", "task", task.ID, "chars", len(text))

	answer, err := srv.responder.Answer(ctx, text)

	if err != nil {
		task, _ = srv.registry.Update(task.ID, func(t *a2a.Task) {
			t.ToStatus(a2a.TaskStateFailed, err.Error())
		})

		srv.publish(emit, a2a.NewStatusUpdateEvent(task.ID, task.Status))
		log.Error("task failed", "task", task.ID, "error", err)

		return task
	}

	artifact := a2a.NewTextArtifact(a2a.ArtifactNameResponse, answer)

	task, _ = srv.registry.Update(task.ID, func(t *a2a.Task) {
		t.AddArtifact(artifact)
		t.ToStatus(a2a.TaskStateCompleted, "")
	})

	srv.publish(emit, a2a.NewArtifactEvent(a2a.EventArtifactUpdate, task.ID, artifact))
	srv.publish(emit, a2a.NewArtifactEvent(a2a.EventArtifactDone, task.ID, artifact))
	srv.publish(emit, a2a.NewTaskCompleteEvent(task))
	log.Info("task completed", "task", task.ID)

	if srv.tracker != nil {
		go srv.logTaskRun(task, text, answer)
	}

	return task
}

func (srv *Server) publish(emit func(any), event any) {
	if emit != nil {
		emit(event)
	}

	if err := srv.broker.Broadcast(event); err != nil {
		log.Error("failed to broadcast event", "error", err)
	}
}

// logTaskRun records the exchange to the tracking backend.  Best effort and
// fully decoupled from the task lifecycle.
func (srv *Server) logTaskRun(task a2a.Task, prompt, answer string) {
	ctx := context.Background()
	run, err := srv.tracker.StartRun(ctx, "a2a-"+task.ID)

	if err != nil {
		log.Warn("failed to start tracking run", "task", task.ID, "error", err)
		return
	}

	run.SetTag(ctx, "component", "a2a-server")
	run.SetTag(ctx, "task_id", task.ID)
	run.SetTag(ctx, "state", string(task.Status.State))
	run.LogText(ctx, "prompt.txt", prompt)
	run.LogText(ctx, "response.txt", answer)
	run.End(ctx)
}

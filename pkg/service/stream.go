package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/theapemachine/a2a-bridge/pkg/a2a"
	"github.com/theapemachine/a2a-bridge/pkg/jsonrpc"
)

// eventBuffer is sized above the maximum number of lifecycle events a task
// can produce, so processTask never blocks on a disconnected client.
const eventBuffer = 8

/*
streamSend serves the event-stream variant of tasks/send.  The task runs in
its own goroutine and hands events over a buffered channel, so the record in
the registry reaches its terminal state even when the connection drops
mid-stream.  The stream is not resumable; a dropped connection loses any
further events.
*/
func (srv *Server) streamSend(ctx fiber.Ctx, request jsonrpc.Request, params a2a.TaskSendParams) error {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	events := make(chan any, eventBuffer)

	go func() {
		defer close(events)

		srv.processTask(context.Background(), params, func(event any) {
			events <- event
		})
	}()

	ctx.RequestCtx().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for event := range events {
			payload, err := json.Marshal(event)

			if err != nil {
				log.Error("failed to marshal stream event", "error", err)
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", payload)

			if err := w.Flush(); err != nil {
				// client went away; the task keeps running off-transport.
				return
			}
		}
	}))

	return nil
}

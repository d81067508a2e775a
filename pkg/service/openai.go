package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	openai "github.com/openai/openai-go"

	"github.com/theapemachine/a2a-bridge/pkg/responder"
	"github.com/theapemachine/a2a-bridge/pkg/retrieval"
)

// chatCompletionRequest is the subset of the OpenAI request the adapter
// accepts from kagent ModelConfig clients.
type chatCompletionRequest struct {
	Model    string                  `json:"model"`
	Messages []responder.ChatMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

/*
handleChatCompletions bridges kagent's OpenAI-style requests to the model
gateway, injecting retrieved context ahead of the caller's messages and
recording the exchange to the tracking backend.
*/
func (srv *Server) handleChatCompletions(ctx fiber.Ctx) error {
	var request chatCompletionRequest

	if err := json.Unmarshal(ctx.Body(), &request); err != nil {
		return chatError(ctx, fiber.StatusBadRequest, "invalid_request_error", "invalid request body: "+err.Error())
	}

	if request.Stream {
		return chatError(ctx, fiber.StatusBadRequest, "invalid_request_error", "streaming is not supported")
	}

	if len(request.Messages) == 0 {
		return chatError(ctx, fiber.StatusBadRequest, "invalid_request_error", "messages are required")
	}

	requestID := hexID("chatcmpl-", 12)
	query := responder.LastUserText(request.Messages)

	retrievalStart := time.Now()
	retrieved, err := srv.searcher.Search(ctx.RequestCtx(), query)

	if err != nil {
		// retrieval is an enrichment; the chat round trip proceeds without it.
		log.Warn("retrieval failed", "request", requestID, "error", err)
		retrieved = retrieval.Context{}
	}

	retrievalSeconds := time.Since(retrievalStart).Seconds()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages)+1)

	if retrieved.Text != "" {
		messages = append(messages, openai.SystemMessage(
			"Use the following retrieved context to answer the user.\n\n"+retrieved.Text,
		))
	}

	messages = append(messages, responder.ConvertMessages(request.Messages)...)

	modelStart := time.Now()
	completion, err := srv.completer.Complete(ctx.RequestCtx(), messages, srv.tools)

	if err != nil {
		log.Error("chat completion failed", "request", requestID, "error", err)
		return chatError(ctx, fiber.StatusBadGateway, "api_error", err.Error())
	}

	modelSeconds := time.Since(modelStart).Seconds()
	answer, err := responder.ExtractText(completion)

	if err != nil {
		log.Error("unusable completion", "request", requestID, "error", err)
		return chatError(ctx, fiber.StatusBadGateway, "api_error", err.Error())
	}

	if srv.tracker != nil {
		go srv.logChatRun(chatRunRecord{
			requestID:        requestID,
			prompt:           query,
			answer:           answer,
			context:          retrieved.Text,
			retrievalSeconds: retrievalSeconds,
			retrievalResults: retrieved.Results,
			modelSeconds:     modelSeconds,
		})
	}

	response := chatCompletionResponse{
		ID:      requestID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   srv.completer.Model(),
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: answer},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}

	return ctx.JSON(response)
}

type chatRunRecord struct {
	requestID        string
	prompt           string
	answer           string
	context          string
	retrievalSeconds float64
	retrievalResults int
	modelSeconds     float64
}

func (srv *Server) logChatRun(rec chatRunRecord) {
	ctx := context.Background()
	run, err := srv.tracker.StartRun(ctx, hexID("kagent-chat-", 8))

	if err != nil {
		log.Warn("failed to start tracking run", "request", rec.requestID, "error", err)
		return
	}

	run.SetTag(ctx, "component", "chat-completions")
	run.SetTag(ctx, "request_id", rec.requestID)
	run.SetTag(ctx, "model", srv.completer.Model())
	run.LogMetric(ctx, "retrieval_seconds", rec.retrievalSeconds)
	run.LogMetric(ctx, "retrieval_results", float64(rec.retrievalResults))
	run.LogMetric(ctx, "model_seconds", rec.modelSeconds)
	run.LogText(ctx, "prompt.txt", rec.prompt)
	run.LogText(ctx, "response.txt", rec.answer)

	if rec.context != "" {
		run.LogText(ctx, "context.txt", rec.context)
	}

	run.End(ctx)
}

func chatError(ctx fiber.Ctx, status int, errType, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message": message,
			"type":    errType,
		},
	})
}

func hexID(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + hex[:n]
}

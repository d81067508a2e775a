package responder

// Llama Stack exposes the OpenAI chat-completions dialect, so the openai-go
// client pointed at the gateway's /v1 prefix is the whole transport.

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

/*
roleMap compresses convertMessages' switch.
*/
var roleMap = map[string]func(string) openai.ChatCompletionMessageParamUnion{
	"system":    openai.SystemMessage[string],
	"user":      openai.UserMessage[string],
	"developer": openai.UserMessage[string],
	"agent":     openai.AssistantMessage[string],
	"assistant": openai.AssistantMessage[string],
}

/*
LlamaStack answers tasks through the model gateway's OpenAI-compatible
chat-completions endpoint.
*/
type LlamaStack struct {
	client       openai.Client
	model        string
	systemPrompt string
}

func NewLlamaStack(baseURL, model, systemPrompt string) *LlamaStack {
	return &LlamaStack{
		client: openai.NewClient(
			option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/v1"),
			option.WithAPIKey("none"), // the gateway does not check credentials
		),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (stack *LlamaStack) Answer(ctx context.Context, text string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(text),
	}

	if stack.systemPrompt != "" {
		messages = append(
			[]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(stack.systemPrompt)},
			messages...,
		)
	}

	completion, err := stack.Complete(ctx, messages, nil)

	if err != nil {
		return "", err
	}

	return ExtractText(completion)
}

/*
Complete issues one chat completion.  Tool definitions pass straight through
to the gateway; it decides whether the model may call them.
*/
func (stack *LlamaStack) Complete(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
	tools []openai.ChatCompletionToolParam,
) (*openai.ChatCompletion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(stack.model),
		Messages: messages,
	}

	if len(tools) > 0 {
		params.Tools = tools
	}

	log.Debug("chat completion", "model", stack.model, "messages", len(messages), "tools", len(tools))

	completion, err := stack.client.Chat.Completions.New(ctx, params)

	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	return completion, nil
}

/*
Model returns the configured model identifier, used for tagging runs.
*/
func (stack *LlamaStack) Model() string {
	return stack.model
}

/*
ExtractText pulls the canonical answer text out of a completion.  Responses
that carry no choices or an empty message fail loudly instead of degrading
into an empty answer.
*/
func ExtractText(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion contained no choices")
	}

	content := completion.Choices[0].Message.Content

	if content == "" {
		return "", fmt.Errorf("completion message carried no text content")
	}

	return content, nil
}

/*
ConvertMessages maps chat roles onto the typed request unions.  Unknown
roles degrade to user messages, matching what the gateway itself does.
*/
func ConvertMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		fn, ok := roleMap[msg.Role]

		if !ok {
			fn = openai.UserMessage[string]
		}

		out = append(out, fn(msg.Text()))
	}

	return out
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/a2a-bridge/pkg/retrieval"
)

type stubCompleter struct {
	completion  *openai.ChatCompletion
	err         error
	gotMessages []openai.ChatCompletionMessageParamUnion
	gotTools    []openai.ChatCompletionToolParam
}

func (s *stubCompleter) Complete(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
	tools []openai.ChatCompletionToolParam,
) (*openai.ChatCompletion, error) {
	s.gotMessages = messages
	s.gotTools = tools
	return s.completion, s.err
}

func (s *stubCompleter) Model() string {
	return "test-model"
}

func completionWith(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: "assistant", Content: text},
		}},
		Usage: openai.CompletionUsage{
			PromptTokens:     12,
			CompletionTokens: 3,
			TotalTokens:      15,
		},
	}
}

func postChat(t *testing.T, srv *Server, body string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	return resp, payload
}

func TestChatCompletionsHappyPath(t *testing.T) {
	completer := &stubCompleter{completion: completionWith("MLflow tracks experiments.")}
	searcher := &stubSearcher{result: retrieval.Context{
		Text:    "[1] mlflow.md (score=0.912, store=...abcdef123456)\nMLflow is a tracking platform.",
		Results: 1,
	}}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(searcher))

	resp, payload := postChat(t, srv, `{
		"model":"anything",
		"messages":[{"role":"user","content":"what is mlflow"}]
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "chat.completion", payload["object"])
	assert.Regexp(t, `^chatcmpl-[0-9a-f]{12}$`, payload["id"])
	assert.Equal(t, "test-model", payload["model"])

	choices := payload["choices"].([]any)
	require.Len(t, choices, 1)

	message := choices[0].(map[string]any)["message"].(map[string]any)
	assert.Equal(t, "assistant", message["role"])
	assert.Equal(t, "MLflow tracks experiments.", message["content"])
	assert.Equal(t, "stop", choices[0].(map[string]any)["finish_reason"])

	usage := payload["usage"].(map[string]any)
	assert.Equal(t, float64(15), usage["total_tokens"])

	// the last user message drives retrieval
	assert.Equal(t, "what is mlflow", searcher.query)

	// retrieved context is injected as a system message ahead of the caller's
	require.Len(t, completer.gotMessages, 2)
	assert.NotNil(t, completer.gotMessages[0].OfSystem)
	assert.NotNil(t, completer.gotMessages[1].OfUser)
}

func TestChatCompletionsWithoutRetrievalContext(t *testing.T) {
	completer := &stubCompleter{completion: completionWith("hi")}
	searcher := &stubSearcher{result: retrieval.Context{}}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(searcher))

	resp, _ := postChat(t, srv, `{"messages":[{"role":"user","content":"hello"}]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, completer.gotMessages, 1)
	assert.NotNil(t, completer.gotMessages[0].OfUser)
}

func TestChatCompletionsRetrievalFailureIsNotFatal(t *testing.T) {
	completer := &stubCompleter{completion: completionWith("hi")}
	searcher := &stubSearcher{err: fmt.Errorf("search exploded")}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(searcher))

	resp, payload := postChat(t, srv, `{"messages":[{"role":"user","content":"hello"}]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hi", payload["choices"].([]any)[0].(map[string]any)["message"].(map[string]any)["content"])
}

func TestChatCompletionsContentBlocks(t *testing.T) {
	completer := &stubCompleter{completion: completionWith("ok")}
	searcher := &stubSearcher{}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(searcher))

	resp, _ := postChat(t, srv, `{
		"messages":[{"role":"user","content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}]
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "part one\npart two", searcher.query)
}

func TestChatCompletionsRejectsStreaming(t *testing.T) {
	srv := testServer(&stubResponder{}, WithCompleter(&stubCompleter{}))

	resp, payload := postChat(t, srv, `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "streaming is not supported", payload["error"].(map[string]any)["message"])
}

func TestChatCompletionsRejectsEmptyMessages(t *testing.T) {
	srv := testServer(&stubResponder{}, WithCompleter(&stubCompleter{}))

	resp, payload := postChat(t, srv, `{"messages":[]}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "messages are required", payload["error"].(map[string]any)["message"])
}

func TestChatCompletionsUpstreamFailure(t *testing.T) {
	completer := &stubCompleter{err: fmt.Errorf("gateway unreachable")}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(&stubSearcher{}))

	resp, payload := postChat(t, srv, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "api_error", payload["error"].(map[string]any)["type"])
}

func TestChatCompletionsEmptyCompletionFailsLoudly(t *testing.T) {
	completer := &stubCompleter{completion: &openai.ChatCompletion{}}

	srv := testServer(&stubResponder{}, WithCompleter(completer), WithSearcher(&stubSearcher{}))

	resp, _ := postChat(t, srv, `{"messages":[{"role":"user","content":"hi"}]}`)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestChatCompletionsPassesDiscoveredTools(t *testing.T) {
	completer := &stubCompleter{completion: completionWith("ok")}
	tools := []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{Name: "lookup"},
	}}

	srv := testServer(&stubResponder{},
		WithCompleter(completer),
		WithSearcher(&stubSearcher{}),
		WithTools(tools),
	)

	postChat(t, srv, `{"messages":[{"role":"user","content":"hi"}]}`)

	require.Len(t, completer.gotTools, 1)
	assert.Equal(t, "lookup", completer.gotTools[0].Function.Name)
}

package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type stubChatClient struct {
	calls     int
	requests  []openai.ChatCompletionRequest
	responses []openai.ChatCompletionResponse
	errs      []error
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	index := s.calls
	s.calls++
	s.requests = append(s.requests, req)

	var err error
	if index < len(s.errs) {
		err = s.errs[index]
	}
	var resp openai.ChatCompletionResponse
	if index < len(s.responses) {
		resp = s.responses[index]
	}
	return resp, err
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestResponderReturnsTrimmedAnswer(t *testing.T) {
	client := &stubChatClient{responses: []openai.ChatCompletionResponse{chatResponse("  4  \n")}}
	responder := NewResponder(client, 1, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt41", "What is 2+2?", "")
	require.Equal(t, "4", answer)
	require.Equal(t, 1, client.calls)
	require.Equal(t, "openai/gpt-4.1", client.requests[0].Model)
}

func TestResponderIncludesSystemMessage(t *testing.T) {
	client := &stubChatClient{responses: []openai.ChatCompletionResponse{chatResponse("ok")}}
	responder := NewResponder(client, 1, testLogger())

	responder.GetAnswer(context.Background(), "gemini", "Question?", "Answer briefly.")

	messages := client.requests[0].Messages
	require.Len(t, messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	require.Equal(t, "Answer briefly.", messages[0].Content)
	require.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)
	require.Equal(t, "Question?", messages[1].Content)
}

func TestResponderOmitsEmptySystemMessage(t *testing.T) {
	client := &stubChatClient{responses: []openai.ChatCompletionResponse{chatResponse("ok")}}
	responder := NewResponder(client, 1, testLogger())

	responder.GetAnswer(context.Background(), "gemini", "Question?", "")
	require.Len(t, client.requests[0].Messages, 1)
}

func TestResponderUnsupportedModel(t *testing.T) {
	client := &stubChatClient{}
	responder := NewResponder(client, 1, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt99", "Question?", "")
	require.Equal(t, "Model gpt99 is not supported.", answer)
	require.Zero(t, client.calls)
}

func TestResponderFormatsUpstreamAPIError(t *testing.T) {
	client := &stubChatClient{errs: []error{&openai.APIError{Message: "rate limit exceeded"}}}
	responder := NewResponder(client, 1, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt41", "Question?", "")
	require.Equal(t, "Error getting response from gpt41 via OpenRouter: rate limit exceeded", answer)
}

func TestResponderFormatsGenericError(t *testing.T) {
	client := &stubChatClient{errs: []error{errors.New("connection refused")}}
	responder := NewResponder(client, 1, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt41", "Question?", "")
	require.Equal(t, "Error getting response from gpt41 via OpenRouter: connection refused", answer)
}

func TestResponderTreatsEmptyChoicesAsFailure(t *testing.T) {
	client := &stubChatClient{responses: []openai.ChatCompletionResponse{{}}}
	responder := NewResponder(client, 1, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt41", "Question?", "")
	require.Contains(t, answer, "Error getting response from gpt41")
}

func TestResponderRetriesUpToMaxAttempts(t *testing.T) {
	client := &stubChatClient{
		errs:      []error{errors.New("boom"), nil},
		responses: []openai.ChatCompletionResponse{{}, chatResponse("recovered")},
	}
	responder := NewResponder(client, 2, testLogger())

	answer := responder.GetAnswer(context.Background(), "gpt41", "Question?", "")
	require.Equal(t, "recovered", answer)
	require.Equal(t, 2, client.calls)
}

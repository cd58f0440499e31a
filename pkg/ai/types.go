package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

var errNoChoices = errors.New("no choices returned")

// ChatClient is the narrow slice of the model-routing service the
// responder and judge depend on. *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Verdict is the judge's decision about one model answer.
type Verdict struct {
	IsCorrect bool   `json:"is_correct"`
	Reasoning string `json:"reasoning"`
}

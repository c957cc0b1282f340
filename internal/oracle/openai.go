package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var errEmptyCompletion = errors.New("completion returned no choices")

// OpenAI calls the OpenAI chat-completions API.
type OpenAI struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewOpenAI creates an OpenAI-backed completer. timeout bounds each call so
// the conversation can never stall on an upstream outage.
func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   openai.ChatModel(model),
		timeout: timeout,
	}
}

// Complete sends the prompt and returns the model's text.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAI)(nil)

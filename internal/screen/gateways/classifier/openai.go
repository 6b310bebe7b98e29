package classifier

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// ChatCompleter is the subset of *openai.Client the adapter uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ ChatCompleter = (*openai.Client)(nil)

// OpenAI classifies emails with an OpenAI chat completion.
type OpenAI struct {
	client ChatCompleter
	model  string
	logger log.Logger
}

type OpenAIOptions struct {
	Client ChatCompleter
	Model  string
	Logger log.Logger
}

// NewOpenAIClient returns an API client for key.
func NewOpenAIClient(key string) *openai.Client {
	return openai.NewClient(key)
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &OpenAI{client: opts.Client, model: opts.Model, logger: opts.Logger}
}

func (o *OpenAI) Classify(ctx context.Context, email domain.Email) (domain.Classification, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(email)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: openai: %w", domain.ErrGateway, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: openai returned no choices", domain.ErrGateway)
	}
	text := resp.Choices[0].Message.Content
	c, err := ParseResponse(text)
	if err != nil {
		o.logger.Warn(map[string]any{"model": o.model, "response": text}, "unparseable classifier response")
		return domain.Classification{}, err
	}
	return c, nil
}

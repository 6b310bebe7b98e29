package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/domain"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the subset of genai's Models service the adapter uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies emails with Google Gemini.
type Gemini struct {
	models ContentGenerator
	model  string
	logger log.Logger
}

type GeminiOptions struct {
	Models ContentGenerator // typically (*genai.Client).Models
	Model  string
	Logger log.Logger
}

// NewGeminiClient returns a Gemini API client for key.
func NewGeminiClient(ctx context.Context, key string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
}

func NewGemini(opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Gemini{models: opts.Models, model: opts.Model, logger: opts.Logger}
}

func (g *Gemini) Classify(ctx context.Context, email domain.Email) (domain.Classification, error) {
	result, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildPrompt(email)}},
		}},
		buildGeminiConfig(),
	)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: gemini: %w", domain.ErrGateway, err)
	}
	if result == nil {
		return domain.Classification{}, fmt.Errorf("%w: gemini returned nil result", domain.ErrGateway)
	}
	text := result.Text()
	c, err := ParseResponse(text)
	if err != nil {
		g.logger.Warn(map[string]any{"model": g.model, "response": text}, "unparseable classifier response")
		return domain.Classification{}, err
	}
	return c, nil
}

func buildGeminiConfig() *genai.GenerateContentConfig {
	temp := float32(temperature)
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
	}
}

package proposer

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Generator is the AI collaborator: one prompt in, raw text out.
type Generator interface {
	GetAIResponse(ctx context.Context, prompt, profileID string) (string, error)
}

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// LLMConfig selects and authenticates the model behind LLMGenerator.
type LLMConfig struct {
	Provider   string
	Model      string
	APIKey     string
	OllamaHost string
}

const systemPrompt = `You plan a baby's feeds and naps for the rest of today.
Reply with a JSON array only. Each item is {"type":"feed"|"sleep","time":"HH:MM","patternCount":N}.
Use 24 hour local times. Do not include wake entries or any prose.`

// LLMGenerator wraps a langchaingo model.
type LLMGenerator struct {
	llm       llms.Model
	modelName string
}

// NewLLMGenerator creates a generator for the configured provider.
func NewLLMGenerator(cfg LLMConfig) (*LLMGenerator, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return NewLLMGeneratorFromModel(model, cfg.Model), nil
}

// NewLLMGeneratorFromModel wraps an already constructed model.
func NewLLMGeneratorFromModel(model llms.Model, modelName string) *LLMGenerator {
	return &LLMGenerator{llm: model, modelName: modelName}
}

// GetAIResponse sends prompt with the scheduling system prompt. The model is
// stateless, so the profile id only matters to callers that key on it.
func (g *LLMGenerator) GetAIResponse(ctx context.Context, prompt, _ string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := g.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate schedule: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (g *LLMGenerator) Model() string {
	return g.modelName
}

package proposer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type stubModel struct {
	reply    *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (m *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	return m.reply, m.err
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMGenerator_GetAIResponse(t *testing.T) {
	model := &stubModel{reply: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "[]"}}}}
	gen := NewLLMGeneratorFromModel(model, "test-model")

	out, err := gen.GetAIResponse(context.Background(), "plan today", "baby-1")

	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Equal(t, "test-model", gen.Model())
	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
}

func TestLLMGenerator_Errors(t *testing.T) {
	gen := NewLLMGeneratorFromModel(&stubModel{err: errors.New("429 rate limit")}, "m")
	_, err := gen.GetAIResponse(context.Background(), "p", "")
	require.Error(t, err)
	assert.ErrorIs(t, classify(err), ErrQuotaExceeded)

	gen = NewLLMGeneratorFromModel(&stubModel{reply: &llms.ContentResponse{}}, "m")
	_, err = gen.GetAIResponse(context.Background(), "p", "")
	assert.EqualError(t, err, "no response choices")
}

func TestNewLLMGenerator_Validation(t *testing.T) {
	_, err := NewLLMGenerator(LLMConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"})
	assert.EqualError(t, err, "OpenAI API key required")

	_, err = NewLLMGenerator(LLMConfig{Provider: ProviderAnthropic})
	assert.EqualError(t, err, "Anthropic API key required")

	_, err = NewLLMGenerator(LLMConfig{Provider: "bard"})
	assert.EqualError(t, err, "unsupported LLM provider: bard")
}

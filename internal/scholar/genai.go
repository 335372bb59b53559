package scholar

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultModel      = "gemini-2.0-flash"
	maxAnswerTokens   = 600
	answerTemperature = 0.7
)

// GenAIModel answers persona prompts through Google's Gemini API.
type GenAIModel struct {
	client *genai.Client
	model  string
}

// NewGenAIFactory returns a ModelFactory that builds a Gemini client per
// credential. The key comes from settings, so it is not known at startup.
func NewGenAIFactory(model string) ModelFactory {
	if model == "" {
		model = DefaultModel
	}
	return func(ctx context.Context, apiKey string) (Model, error) {
		if apiKey == "" {
			return nil, fmt.Errorf("GenAI API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		return &GenAIModel{client: client, model: model}, nil
	}
}

func (m *GenAIModel) Complete(ctx context.Context, system, question string) (string, error) {
	result, err := m.client.Models.GenerateContent(ctx,
		m.model,
		genai.Text(question),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](answerTemperature),
			MaxOutputTokens:   maxAnswerTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return result.Text(), nil
}

package align

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
)

const DefaultModel = openai.GPT4oMini

const promptTemplate = `Você é um analista legislativo. Avalie o alinhamento entre a ementa de uma proposição legislativa e a missão de uma organização.

Organização: %s
Missão: %s

Ementa da proposição:
%s

Responda APENAS com um objeto JSON no formato:
{"alinhamento": "<Alinha|Parcial|Não Alinha>", "justificativa": "<uma frase curta em português>"}

Critérios:
- "Alinha": a proposição contribui diretamente para a missão da organização.
- "Parcial": há relação indireta ou apenas parte da proposição toca a missão.
- "Não Alinha": a proposição não tem relação com a missão ou a contraria.`

// OpenAIClassifier labels summaries through the OpenAI chat completion API.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds a classifier from an API key and model name.
func NewOpenAIClassifier(apiKey, model string) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", internalerr.ErrInvalidConfig)
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClassifier{client: openai.NewClient(apiKey), model: model}, nil
}

// Classify sends one summary to the model and decodes the labeled result.
// Rate-limit responses surface as ErrRateLimited so the batch pass can back
// off and retry.
func (c *OpenAIClassifier) Classify(ctx context.Context, summary string, org Org) (Result, error) {
	if strings.TrimSpace(summary) == "" {
		return EmptySummaryResult(), nil
	}
	mission := org.Mission
	if mission == "" {
		mission = "(missão não informada)"
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Você responde sempre com JSON válido e nada mais.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(promptTemplate, org.Name, mission, summary),
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return Result{}, fmt.Errorf("%w: %v", internalerr.ErrRateLimited, err)
		}
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{Label: LabelPartial, Justification: justNoJSON}, nil
	}
	return DecodeResult(resp.Choices[0].Message.Content), nil
}

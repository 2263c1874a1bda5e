package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/sentia/internal/models"
	"go.uber.org/zap"
)

// GPTConfig configures the external chat-completion model.
type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GPTClassifier asks a chat-completion model for the distribution. When the
// call or its answer fails and a fallback is set, the fallback answers
// instead.
type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    Classifier
	logger      *zap.Logger
}

func NewGPTClassifier(cfg GPTConfig, fallback Classifier, logger *zap.Logger) *GPTClassifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &GPTClassifier{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		fallback:    fallback,
		logger:      logger,
	}
}

// ModelID identifies the external model in stored results.
func (c *GPTClassifier) ModelID() string {
	return "openai/" + c.model
}

func (c *GPTClassifier) Classify(ctx context.Context, in Input) (models.Distribution, error) {
	dist, _, err := c.ClassifyWithSource(ctx, in)
	return dist, err
}

// ClassifyWithSource reports the fallback's id when the external model fails
// and the fallback answers instead.
func (c *GPTClassifier) ClassifyWithSource(ctx context.Context, in Input) (models.Distribution, string, error) {
	text, err := in.Text()
	if err != nil {
		return models.Distribution{}, "", err
	}

	dist, err := c.complete(ctx, text)
	if err == nil {
		return dist, c.ModelID(), nil
	}
	if c.fallback == nil {
		return models.Distribution{}, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.logger.Warn("External model failed, using fallback",
		zap.Error(err),
		zap.String("model", c.model),
		zap.String("fallback", c.fallback.ModelID()))
	return ClassifyWithSource(ctx, c.fallback, in)
}

func (c *GPTClassifier) complete(ctx context.Context, text string) (models.Distribution, error) {
	prompt := fmt.Sprintf(`Classify the emotional state expressed in the following employee self-report (Spanish).
Return only a JSON object with the probability of each class, summing to 1:
{"negativo": 0.0, "neutro": 0.0, "positivo": 0.0}

Report: %s`, text)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return models.Distribution{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Distribution{}, fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var raw map[string]float64
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", content))
		return models.Distribution{}, fmt.Errorf("parse response: %w", err)
	}

	return ParseDistribution(raw)
}

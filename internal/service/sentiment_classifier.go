package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightflow/hub/internal/models"
)

const classifyPromptTemplate = `Classify the sentiment of the message
Input: I had a terrible experience with this store. The clothes were of poor quality and overpriced.
Output: negative

Input: The clothing selection is decent, but the customer service needs improvement. It was just an okay experience.
Output: neutral

Input: I absolutely love shopping here! The staff is so helpful, and I always find stylish and affordable clothes.
Output: positive

Input: {input}
Output:
`

// DefaultClassifyTemperature keeps sentiment labels stable across calls.
const DefaultClassifyTemperature = 0.2

// SentimentClassifier labels feedback text with one of the three sentiments using a few-shot prompt.
type SentimentClassifier struct {
	generator   TextGenerator
	temperature float64
	logger      *slog.Logger
}

// NewSentimentClassifier creates a classifier. A zero temperature uses DefaultClassifyTemperature.
func NewSentimentClassifier(generator TextGenerator, temperature float64, logger *slog.Logger) *SentimentClassifier {
	if temperature == 0 {
		temperature = DefaultClassifyTemperature
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SentimentClassifier{generator: generator, temperature: temperature, logger: logger}
}

// Classify returns the sentiment of text. Model output outside the label set falls back to neutral.
// Model errors are returned as-is; there is no retry.
func (c *SentimentClassifier) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	prompt := strings.Replace(classifyPromptTemplate, "{input}", text, 1)

	raw, err := c.generator.Generate(ctx, models.GenerationRequest{
		Messages:    []models.ChatMessage{{Role: models.ChatRoleUser, Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("classify sentiment: %w", err)
	}

	sentiment, ok := models.ParseSentiment(raw)
	if !ok {
		c.logger.WarnContext(ctx, "unrecognized sentiment label, using neutral", "raw_output", raw)
	}

	return sentiment, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/insightflow/hub/internal/models"
)

const summarizePromptTemplate = "User given feedback for us, please provide a summary or suggestion how to address " +
	"common issues raised to act for us as company. Format the results in markdown. Here is the feedback: {input}"

// DefaultSummarizeTemperature allows some variety in the suggested response.
const DefaultSummarizeTemperature = 0.7

// ErrEmptySummary is returned when the model produced no suggestion text.
var ErrEmptySummary = errors.New("summarize: model returned empty text")

// ResponseSummarizer produces a company-facing markdown suggestion for a piece of feedback.
type ResponseSummarizer struct {
	generator   TextGenerator
	temperature float64
}

// NewResponseSummarizer creates a summarizer. A zero temperature uses DefaultSummarizeTemperature.
func NewResponseSummarizer(generator TextGenerator, temperature float64) *ResponseSummarizer {
	if temperature == 0 {
		temperature = DefaultSummarizeTemperature
	}

	return &ResponseSummarizer{generator: generator, temperature: temperature}
}

// Summarize returns the trimmed suggestion text.
func (s *ResponseSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt := strings.Replace(summarizePromptTemplate, "{input}", text, 1)

	out, err := s.generator.Generate(ctx, models.GenerationRequest{
		Messages:    []models.ChatMessage{{Role: models.ChatRoleUser, Content: prompt}},
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarize feedback: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptySummary
	}

	return out, nil
}

package service

import (
	"context"

	"github.com/insightflow/hub/internal/models"
)

// EmbeddingClient generates embedding vectors for texts in one batched call,
// returning one vector per input in input order.
// Implemented by provider-specific clients (e.g. OpenAI, Google Gemini).
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// TextGenerator produces text from a system instruction and a conversation.
// Implemented by OpenAI, Google Gemini and AWS Bedrock clients.
type TextGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

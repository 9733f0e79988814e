// Package openai provides a thin wrapper around the official OpenAI Go SDK for chat completions and embeddings.
package openai

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

const providerName = "openai"

var (
	// ErrEmptyInput is returned when CreateEmbeddings is called with no input or a blank text.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the response does not carry one vector per input.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
	// ErrNoChoices is returned when a chat completion has no choices.
	ErrNoChoices = errors.New("openai: no choices in response")
)

const (
	defaultDimension      = 768
	defaultEmbeddingModel = openaisdk.EmbeddingModelTextEmbedding3Small
	defaultChatModel      = "gpt-4o-mini"
)

// Client calls the OpenAI chat completions and embeddings APIs via the official SDK.
type Client struct {
	sdk            openaisdk.Client
	requestOpts    []option.RequestOption
	dimensions     int
	embeddingModel string
	chatModel      string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match DB column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithEmbeddingModel sets the embedding model. Empty keeps the default.
func WithEmbeddingModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.embeddingModel = model
		}
	}
}

// WithChatModel sets the chat completion model. Empty keeps the default.
func WithChatModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithRequestOptions passes extra SDK options (base URL, HTTP client, retries) to the underlying client.
func WithRequestOptions(opts ...option.RequestOption) ClientOption {
	return func(c *Client) {
		c.requestOpts = append(c.requestOpts, opts...)
	}
}

// NewClient creates an OpenAI client using the official SDK.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		dimensions:     defaultDimension,
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.sdk = openaisdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, client.requestOpts...)...)

	return client
}

// Generate runs a chat completion with the system instruction followed by the conversation.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		if m.Role == models.ChatRoleAssistant {
			messages = append(messages, openaisdk.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openaisdk.UserMessage(m.Content))
		}
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openaisdk.ChatModel(c.chatModel),
		Temperature: param.NewOpt(req.Temperature),
	})
	if err != nil {
		return "", mapError(fmt.Errorf("openai chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateEmbeddings returns one vector per input, in input order, from a single API call.
// Every returned vector has the configured dimensions.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}

	for i := range inputs {
		if strings.TrimSpace(inputs[i]) == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyInput, i)
		}
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: inputs,
		},
		Model:      openaisdk.EmbeddingModel(c.embeddingModel),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("openai embedding: %w", err))
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrNoEmbeddingInResponse, len(resp.Data), len(inputs))
	}

	// The API reports each vector's input position; do not rely on response order.
	sorted := slices.Clone(resp.Data)
	slices.SortFunc(sorted, func(a, b openaisdk.Embedding) int { return cmp.Compare(a.Index, b.Index) })

	out := make([][]float32, len(sorted))

	for i, d := range sorted {
		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Embedding), c.dimensions)
		}

		vec := make([]float32, len(d.Embedding))
		for j := range d.Embedding {
			vec[j] = float32(d.Embedding[j])
		}

		out[i] = vec
	}

	return out, nil
}

// mapError turns rate-limit and auth failures into the typed errors callers categorize on.
func mapError(err error) error {
	var apiErr *openaisdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return huberrors.NewModelQuotaError(providerName, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return huberrors.NewConfigurationError("OPENAI_API_KEY", "openai rejected the API key")
	default:
		return err
	}
}

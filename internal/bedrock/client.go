// Package bedrock generates text with Anthropic models hosted on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

const (
	providerName     = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 1024
	defaultModel     = "anthropic.claude-3-haiku-20240307-v1:0"
)

// ErrEmptyResponse is returned when the model returns no text content.
var ErrEmptyResponse = errors.New("bedrock: empty response content")

// InvokeModelAPI is the subset of the Bedrock runtime client used here.
type InvokeModelAPI interface {
	InvokeModel(
		ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Client calls Anthropic messages models through Bedrock InvokeModel.
type Client struct {
	api       InvokeModelAPI
	modelID   string
	maxTokens int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the Bedrock model ID. Empty keeps the default.
func WithModel(modelID string) ClientOption {
	return func(c *Client) {
		if modelID != "" {
			c.modelID = modelID
		}
	}
}

// WithMaxTokens caps the generated tokens per call.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewClient loads the default AWS credential chain for region and returns a client.
func NewClient(ctx context.Context, region string, opts ...ClientOption) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	return NewClientWithAPI(bedrockruntime.NewFromConfig(cfg), opts...), nil
}

// NewClientWithAPI wraps an existing runtime client.
func NewClientWithAPI(api InvokeModelAPI, opts ...ClientOption) *Client {
	client := &Client{
		api:       api,
		modelID:   defaultModel,
		maxTokens: defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends the system instruction and conversation as one messages request.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	body := invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		System:           req.System,
		Temperature:      req.Temperature,
		Messages:         make([]message, 0, len(req.Messages)),
	}

	for _, m := range req.Messages {
		body.Messages = append(body.Messages, message{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", mapError(fmt.Errorf("bedrock invoke model: %w", err))
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		sb.WriteString(part.Text)
	}

	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return sb.String(), nil
}

func mapError(err error) error {
	var (
		throttled *types.ThrottlingException
		quota     *types.ServiceQuotaExceededException
		denied    *types.AccessDeniedException
	)

	switch {
	case errors.As(err, &throttled), errors.As(err, &quota):
		return huberrors.NewModelQuotaError(providerName, err)
	case errors.As(err, &denied):
		return huberrors.NewConfigurationError("AWS credentials", "bedrock denied access to the model")
	default:
		return err
	}
}

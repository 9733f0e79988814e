package googleai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

func TestToContents(t *testing.T) {
	contents := toContents([]models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "What do guests dislike?"},
		{Role: models.ChatRoleAssistant, Content: "Mostly parking."},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "Mostly parking.", contents[1].Parts[0].Text)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "429", err: genai.APIError{Code: 429}, want: huberrors.ErrModelQuota},
		{name: "resource exhausted", err: genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, want: huberrors.ErrModelQuota},
		{name: "unauthorized", err: genai.APIError{Code: 401}, want: huberrors.ErrConfiguration},
		{name: "forbidden", err: genai.APIError{Code: 403}, want: huberrors.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(fmt.Errorf("gemini generate: %w", tt.err))
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Equal(t, plain, mapError(plain))

		server := fmt.Errorf("wrapped: %w", genai.APIError{Code: 500})
		assert.Equal(t, server, mapError(server))
	})
}

func TestClient_CreateEmbeddings_Validation(t *testing.T) {
	c := &Client{dimensions: defaultDimension}

	_, err := c.CreateEmbeddings(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = c.CreateEmbeddings(context.Background(), []string{"ok", "  "})
	require.ErrorIs(t, err, ErrEmptyInput)

	c.dimensions = 0
	_, err = c.CreateEmbeddings(context.Background(), []string{"ok"})
	require.ErrorIs(t, err, ErrInvalidDims)
}

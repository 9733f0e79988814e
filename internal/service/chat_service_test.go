package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

func scored(content string, distance float64) models.ScoredDocument {
	return models.ScoredDocument{
		Document: models.IndexedDocument{EmbeddedDocument: models.EmbeddedDocument{Content: content}},
		Distance: distance,
	}
}

func newChatService(t *testing.T, gen TextGenerator, client EmbeddingClient, repo *mockDocumentsRepo, allowGlobal bool) *ChatService {
	t.Helper()

	embedder, err := NewQueryEmbedder(NewEmbeddingIndexer(client, repo), 8, nil)
	require.NoError(t, err)

	return NewChatService(ChatServiceParams{
		Generator:         gen,
		Embedder:          embedder,
		Search:            NewSimilaritySearch(repo, 0),
		AllowGlobalSearch: allowGlobal,
	})
}

func TestBuildChatSystemPrompt(t *testing.T) {
	prompt := BuildChatSystemPrompt("Dana", []models.ScoredDocument{
		scored("prices are high", 0.1),
		scored("staff was great", 0.2),
	})

	assert.Contains(t, prompt, "- Name: Dana")
	assert.Contains(t, prompt, "received:\n- prices are high\n- staff was great\n\nRules:")
	assert.Contains(t, prompt, "just say you don't know")
	assert.Contains(t, prompt, "Format the results in markdown")
}

func TestChatService_Reply(t *testing.T) {
	t.Run("answers from retrieved feedback", func(t *testing.T) {
		repo := &mockDocumentsRepo{
			nearestFunc: func(_ context.Context, vec []float32, tenantID *string, k int) ([]models.ScoredDocument, error) {
				assert.Equal(t, []float32{1, 0}, vec)
				assert.Equal(t, "t1", *tenantID)
				assert.Equal(t, DefaultRetrievalLimit, k)

				return []models.ScoredDocument{scored("Great staff, terrible prices!", 0.05)}, nil
			},
		}
		client := &mockEmbeddingClient{
			createFunc: func(_ context.Context, inputs []string) ([][]float32, error) {
				assert.Equal(t, []string{"What do customers complain about?"}, inputs)

				return [][]float32{{1, 0}}, nil
			},
		}
		gen := &mockGenerator{
			generateFunc: func(_ context.Context, req models.GenerationRequest) (string, error) {
				assert.Contains(t, req.System, "- Great staff, terrible prices!")
				assert.Contains(t, req.System, "- Name: Sam")
				assert.Len(t, req.Messages, 3)
				assert.InDelta(t, DefaultChatTemperature, req.Temperature, 1e-9)

				return "Customers mostly complain about **prices**.", nil
			},
		}

		reply, err := newChatService(t, gen, client, repo, false).Reply(context.Background(), &models.ChatRequest{
			Messages: []models.ChatMessage{
				{Role: models.ChatRoleUser, Content: "hi"},
				{Role: models.ChatRoleAssistant, Content: "Hello! Ask me about your feedback."},
				{Role: models.ChatRoleUser, Content: " What do customers complain about? "},
			},
			TenantID:    strPtr("t1"),
			UserContext: models.UserContext{Name: "Sam"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ChatRoleAssistant, reply.Role)
		assert.NotEmpty(t, reply.Content)
	})

	t.Run("empty corpus still generates", func(t *testing.T) {
		gen := &mockGenerator{
			generateFunc: func(context.Context, models.GenerationRequest) (string, error) { return "I don't know.", nil },
		}

		reply, err := newChatService(t, gen, &mockEmbeddingClient{}, &mockDocumentsRepo{}, false).Reply(context.Background(),
			&models.ChatRequest{Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "why?"}}, TenantID: strPtr("t1")})
		require.NoError(t, err)
		assert.Equal(t, "I don't know.", reply.Content)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			req  *models.ChatRequest
		}{
			{"no messages", &models.ChatRequest{TenantID: strPtr("t1")}},
			{"last message from assistant", &models.ChatRequest{
				Messages: []models.ChatMessage{{Role: models.ChatRoleAssistant, Content: "hi"}}, TenantID: strPtr("t1"),
			}},
			{"blank question", &models.ChatRequest{
				Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "  "}}, TenantID: strPtr("t1"),
			}},
			{"unknown role", &models.ChatRequest{
				Messages: []models.ChatMessage{{Role: "system", Content: "x"}, {Role: models.ChatRoleUser, Content: "q"}},
				TenantID: strPtr("t1"),
			}},
			{"missing tenant", &models.ChatRequest{Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "q"}}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := newChatService(t, &mockGenerator{}, &mockEmbeddingClient{}, &mockDocumentsRepo{}, false).
					Reply(context.Background(), tt.req)
				assert.ErrorIs(t, err, huberrors.ErrValidation)
			})
		}
	})

	t.Run("global search when allowed", func(t *testing.T) {
		repo := &mockDocumentsRepo{
			nearestFunc: func(_ context.Context, _ []float32, tenantID *string, _ int) ([]models.ScoredDocument, error) {
				assert.Nil(t, tenantID)

				return nil, nil
			},
		}
		gen := &mockGenerator{
			generateFunc: func(context.Context, models.GenerationRequest) (string, error) { return "ok", nil },
		}

		_, err := newChatService(t, gen, &mockEmbeddingClient{}, repo, true).Reply(context.Background(),
			&models.ChatRequest{Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "q"}}})
		require.NoError(t, err)
	})

	t.Run("no generator is a configuration error", func(t *testing.T) {
		_, err := newChatService(t, nil, &mockEmbeddingClient{}, &mockDocumentsRepo{}, false).Reply(context.Background(),
			&models.ChatRequest{Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "q"}}, TenantID: strPtr("t1")})
		assert.ErrorIs(t, err, huberrors.ErrConfiguration)
	})

	t.Run("failures keep their category", func(t *testing.T) {
		tests := []struct {
			name     string
			client   *mockEmbeddingClient
			repo     *mockDocumentsRepo
			gen      *mockGenerator
			category huberrors.Category
		}{
			{
				name: "embedding",
				client: &mockEmbeddingClient{createFunc: func(context.Context, []string) ([][]float32, error) {
					return nil, errors.New("dial tcp: i/o timeout")
				}},
				repo:     &mockDocumentsRepo{},
				gen:      &mockGenerator{},
				category: huberrors.CategoryEmbedding,
			},
			{
				name:   "database",
				client: &mockEmbeddingClient{},
				repo: &mockDocumentsRepo{nearestFunc: func(context.Context, []float32, *string, int) ([]models.ScoredDocument, error) {
					return nil, huberrors.NewStoreError("nearest documents", errors.New("connection refused"))
				}},
				gen:      &mockGenerator{},
				category: huberrors.CategoryDatabase,
			},
			{
				name:   "quota",
				client: &mockEmbeddingClient{},
				repo:   &mockDocumentsRepo{},
				gen: &mockGenerator{generateFunc: func(context.Context, models.GenerationRequest) (string, error) {
					return "", huberrors.NewModelQuotaError("openai", errors.New("429"))
				}},
				category: huberrors.CategoryModelQuota,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := newChatService(t, tt.gen, tt.client, tt.repo, false).Reply(context.Background(),
					&models.ChatRequest{Messages: []models.ChatMessage{{Role: models.ChatRoleUser, Content: "q"}}, TenantID: strPtr("t1")})
				require.Error(t, err)
				assert.Equal(t, tt.category, huberrors.Categorize(err))
			})
		}
	})
}

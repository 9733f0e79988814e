package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
	"github.com/insightflow/hub/internal/observability"
)

// DefaultChatTimeout bounds one chat reply including retrieval and generation.
const DefaultChatTimeout = 30 * time.Second

// DefaultChatTemperature is the sampling temperature for chat answers.
const DefaultChatTemperature = 0.7

const chatSystemPromptTemplate = `You are a smart assistant who helps users analyze feedback for their company. Here is the user profile:
- Name: {name}

Here is the feedback list the company has received:
{context}

Rules:
- Format the results in markdown
- If you don't know the answer, just say you don't know. Don't try to make up an answer
- Answer concisely & in detail`

// ChatService answers questions about a tenant's feedback with retrieval-augmented generation.
type ChatService struct {
	generator         TextGenerator
	embedder          *QueryEmbedder
	search            *SimilaritySearch
	retrievalLimit    int
	allowGlobalSearch bool
	temperature       float64
	timeout           time.Duration
	metrics           observability.ChatMetrics
	logger            *slog.Logger
}

// ChatServiceParams configures ChatService. Generator is nil when no generation provider is
// configured; Reply then fails with a ConfigurationError.
type ChatServiceParams struct {
	Generator         TextGenerator
	Embedder          *QueryEmbedder
	Search            *SimilaritySearch
	RetrievalLimit    int
	AllowGlobalSearch bool
	Temperature       float64
	Timeout           time.Duration
	Metrics           observability.ChatMetrics
	Logger            *slog.Logger
}

// NewChatService creates a ChatService.
func NewChatService(p ChatServiceParams) *ChatService {
	limit := p.RetrievalLimit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}

	temperature := p.Temperature
	if temperature == 0 {
		temperature = DefaultChatTemperature
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatService{
		generator:         p.Generator,
		embedder:          p.Embedder,
		search:            p.Search,
		retrievalLimit:    limit,
		allowGlobalSearch: p.AllowGlobalSearch,
		temperature:       temperature,
		timeout:           timeout,
		metrics:           p.Metrics,
		logger:            logger,
	}
}

// Reply answers the last user message using the feedback documents nearest to it as context.
func (s *ChatService) Reply(ctx context.Context, req *models.ChatRequest) (reply *models.ChatMessage, err error) {
	start := time.Now()

	defer func() {
		if s.metrics != nil {
			category := "ok"
			if err != nil {
				category = string(huberrors.Categorize(err))
			}

			s.metrics.RecordChat(ctx, category, time.Since(start))
		}
	}()

	if s.generator == nil {
		return nil, huberrors.NewConfigurationError("GENERATION_API_KEY", "no generation provider configured")
	}

	question, err := validateChatRequest(req)
	if err != nil {
		return nil, err
	}

	tenantID, err := scopeTenant(req.TenantID, s.allowGlobalSearch)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if tenantID != nil {
		ctx = observability.WithTenantID(ctx, *tenantID)
	}

	ctx, span := observability.StartSpan(ctx, "chat.reply", attribute.Int("chat.messages", len(req.Messages)))
	defer func() { observability.EndSpan(span, err) }()

	vec, err := s.embedder.EmbedQuery(ctx, observability.QuerySourceChat, question)
	if err != nil {
		s.logger.ErrorContext(ctx, "chat: embed question failed", "error", err)

		return nil, err
	}

	docs, err := s.search.Nearest(ctx, vec, tenantID, s.retrievalLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "chat: retrieval failed", "error", err)

		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRetrievedDocuments(ctx, len(docs))
	}

	answer, err := s.generator.Generate(ctx, models.GenerationRequest{
		System:      BuildChatSystemPrompt(req.UserContext.Name, docs),
		Messages:    req.Messages,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "chat: generation failed", "error", err, "documents", len(docs))

		return nil, err
	}

	return &models.ChatMessage{Role: models.ChatRoleAssistant, Content: answer}, nil
}

// BuildChatSystemPrompt renders the system instruction with the user's name and the retrieved documents
// as a bulleted list, nearest first.
func BuildChatSystemPrompt(userName string, docs []models.ScoredDocument) string {
	contents := make([]string, 0, len(docs))
	for _, d := range docs {
		contents = append(contents, d.Document.Content)
	}

	var feedbackList string
	if len(contents) > 0 {
		feedbackList = "- " + strings.Join(contents, "\n- ")
	}

	return strings.NewReplacer("{name}", userName, "{context}", feedbackList).Replace(chatSystemPromptTemplate)
}

// validateChatRequest returns the trimmed text of the last message, which must come from the user.
func validateChatRequest(req *models.ChatRequest) (string, error) {
	if req == nil || len(req.Messages) == 0 {
		return "", huberrors.NewValidationError("messages", "at least one message is required")
	}

	for _, m := range req.Messages {
		if m.Role != models.ChatRoleUser && m.Role != models.ChatRoleAssistant {
			return "", huberrors.NewValidationError("messages", "message role must be user or assistant")
		}
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != models.ChatRoleUser {
		return "", huberrors.NewValidationError("messages", "the last message must come from the user")
	}

	question := strings.TrimSpace(last.Content)
	if question == "" {
		return "", huberrors.NewValidationError("messages", "the last message must not be empty")
	}

	return question, nil
}

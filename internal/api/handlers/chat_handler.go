package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/insightflow/hub/internal/api/response"
	"github.com/insightflow/hub/internal/api/validation"
	"github.com/insightflow/hub/internal/huberrors"
	"github.com/insightflow/hub/internal/models"
)

// ChatService answers questions about feedback.
type ChatService interface {
	Reply(ctx context.Context, req *models.ChatRequest) (*models.ChatMessage, error)
}

// ChatHandler handles chat requests.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Reply handles POST /v1/chat.
// Only an unparseable body is a 400. Every other failure is rendered as an assistant
// message whose error field carries the failure category, so chat clients can show it inline.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest

	err := validation.DecodeJSONBody(r, &req)
	if err != nil {
		var malformed *validation.MalformedBodyError
		if errors.As(err, &malformed) {
			response.RespondBadRequest(w, malformed.Error())
			return
		}

		respondChatError(w, huberrors.NewValidationError("messages", err.Error()))

		return
	}

	reply, err := h.service.Reply(r.Context(), &req)
	if err != nil {
		if category := huberrors.Categorize(err); category != huberrors.CategoryValidation {
			slog.ErrorContext(r.Context(), "chat reply failed", "error", err, "category", string(category))
		}

		respondChatError(w, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, models.ChatResponse{Role: reply.Role, Content: reply.Content})
}

func respondChatError(w http.ResponseWriter, err error) {
	response.RespondJSON(w, http.StatusOK, models.ChatResponse{
		Role:    models.ChatRoleAssistant,
		Content: huberrors.UserMessage(err),
		Error:   string(huberrors.Categorize(err)),
	})
}

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/insightflow/hub/internal/api/response"
	"github.com/insightflow/hub/internal/api/validation"
	"github.com/insightflow/hub/internal/huberrors"
)

// respondServiceError maps a service failure to an envelope response.
// Validation failures are 400, missing resources 404, everything else 500 with a categorized message.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	switch category := huberrors.Categorize(err); category {
	case huberrors.CategoryValidation:
		response.RespondBadRequest(w, err.Error())
	case huberrors.CategoryNotFound:
		response.RespondNotFound(w, err.Error())
	default:
		slog.ErrorContext(ctx, msg, "error", err, "category", string(category))
		response.RespondInternalServerError(w, huberrors.UserMessage(err))
	}
}

// respondDecodeError writes a 400 for a body that failed to decode or validate.
func respondDecodeError(w http.ResponseWriter, err error) {
	var malformed *validation.MalformedBodyError
	if errors.As(err, &malformed) {
		response.RespondBadRequest(w, malformed.Error())

		return
	}

	validation.RespondValidationError(w, err)
}
